package main

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v2"

	"github.com/null-channel/fat12"
)

// lsRow is the CSV projection of a fat12.Entry; gocsv drives its
// output entirely off these struct tags.
type lsRow struct {
	Name string `csv:"name"`
	Dir  bool   `csv:"is_dir"`
	Size uint32 `csv:"size"`
}

func lsCommand() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "list a directory",
		ArgsUsage: "[PATH]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "csv", Usage: "print as CSV instead of a plain table"},
		},
		Action: withVolume(runLs),
	}
}

func runLs(c *cli.Context, v *fat12.Volume) error {
	entries, err := v.Ls(c.Args().First())
	if err != nil {
		return err
	}

	if !c.Bool("csv") {
		for _, e := range entries {
			kind := "f"
			if e.IsDir {
				kind = "d"
			}
			fmt.Printf("%s %-12s %8d\n", kind, e.Name, e.Size)
		}
		return nil
	}

	rows := make([]lsRow, len(entries))
	for i, e := range entries {
		rows[i] = lsRow{Name: e.Name, Dir: e.IsDir, Size: e.Size}
	}
	out, err := gocsv.MarshalString(&rows)
	if err != nil {
		return err
	}
	_, err = os.Stdout.WriteString(out)
	return err
}
