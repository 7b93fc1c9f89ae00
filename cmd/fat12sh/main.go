// Command fat12sh runs one-shot filesystem operations against a FAT12
// image file from the command line.
package main

import (
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/null-channel/fat12"
	"github.com/null-channel/fat12/image"
)

func main() {
	app := &cli.App{
		Name:  "fat12sh",
		Usage: "inspect and modify a FAT12 volume image",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "image", Required: true, Usage: "path to the volume image"},
		},
		Commands: []*cli.Command{
			lsCommand(),
			{
				Name:      "cat",
				Usage:     "print a file's contents",
				ArgsUsage: "PATH",
				Action:    withVolume(runCat),
			},
			{
				Name:      "touch",
				Usage:     "create an empty file",
				ArgsUsage: "PATH",
				Action:    withVolume(runTouch),
			},
			{
				Name:      "mkdir",
				Usage:     "create a directory",
				ArgsUsage: "PATH",
				Action:    withVolume(runMkdir),
			},
			{
				Name:      "rm",
				Usage:     "remove a file",
				ArgsUsage: "PATH",
				Action:    withVolume(runRm),
			},
			{
				Name:      "rmdir",
				Usage:     "remove an empty directory",
				ArgsUsage: "PATH",
				Action:    withVolume(runRmdir),
			},
			{
				Name:      "append",
				Usage:     "append stdin to a file",
				ArgsUsage: "PATH",
				Action:    withVolume(runAppend),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fat12sh: %s", err.Error())
	}
}

// withVolume wraps a cli.ActionFunc that needs a mounted, writable
// Volume: it loads the image named by --image, runs fn, and saves the
// (possibly mutated) buffer back in place.
func withVolume(fn func(*cli.Context, *fat12.Volume) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		path := c.String("image")
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			return err
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return err
		}
		buf, err := image.LoadReaderAt(f, info.Size())
		if err != nil {
			return err
		}

		vol, err := fat12.Mount(buf)
		if err != nil {
			return err
		}
		if err := fn(c, vol); err != nil {
			return err
		}

		if _, err := f.WriteAt(vol.Bytes(), 0); err != nil {
			return err
		}
		return nil
	}
}

func runCat(c *cli.Context, v *fat12.Volume) error {
	data, err := v.Cat(c.Args().First())
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func runTouch(c *cli.Context, v *fat12.Volume) error { return v.Touch(c.Args().First()) }
func runMkdir(c *cli.Context, v *fat12.Volume) error { return v.Mkdir(c.Args().First()) }
func runRm(c *cli.Context, v *fat12.Volume) error    { return v.Rm(c.Args().First()) }
func runRmdir(c *cli.Context, v *fat12.Volume) error { return v.Rmdir(c.Args().First()) }

func runAppend(c *cli.Context, v *fat12.Volume) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	return v.Append(c.Args().First(), data)
}
