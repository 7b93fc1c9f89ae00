package fat12

import "testing"

func TestNormalizeNameExamples(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"test.txt", "TEST    TXT"},
		{"TextFile.Mine.txt", "TEXTFI~1TXT"},
		{"ver +1.2.text", "VER_12~1TEX"},
		{".bashrc.swp", "BASHRC~1SWP"},
		{"test.po", "TEST    PO "},
		{".", ".          "},
		{"..", "..         "},
	}
	for _, c := range cases {
		got := NormalizeName(c.in)
		gotStr := string(got[:])
		if gotStr != c.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", c.in, gotStr, c.want)
		}
	}
}

func TestNormalizeNameIdempotent(t *testing.T) {
	names := []string{"test.txt", "TextFile.Mine.txt", "ver +1.2.text", ".bashrc.swp"}
	for _, n := range names {
		first := NormalizeName(n)
		second := NormalizeName(first.Display())
		if first != second {
			t.Errorf("NormalizeName not stable across round-trip for %q: %q then %q", n, first.Display(), second.Display())
		}
	}
}

func TestUniqueNameEnumeratesTails(t *testing.T) {
	taken := map[ShortName]bool{}
	base := NormalizeName("TextFile.Mine.txt")
	exists := func(s ShortName) bool { return taken[s] }

	for i := 0; i < 5; i++ {
		n := uniqueName(base, exists)
		if taken[n] {
			t.Fatalf("uniqueName returned a name already taken: %q", n.Display())
		}
		taken[n] = true
	}
}
