package fat12

import "testing"

func TestResolveExactMatchOnly(t *testing.T) {
	v := newTestVolume(t, 10)
	if err := v.Touch("report.txt"); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := v.Touch("report.tx"); err != nil {
		// "report.tx" normalizes to a distinct 8.3 name ("REPORT  TX ")
		// from "report.txt" ("REPORT  TXT"); both must resolve
		// independently rather than one prefix-matching the other.
		t.Fatalf("Touch: %v", err)
	}

	loc, err := v.resolvePath("")
	if err != nil {
		t.Fatalf("resolvePath: %v", err)
	}
	_, found, err := v.resolve(loc, NormalizeName("report.txt"))
	if err != nil || !found {
		t.Fatalf("resolve(report.txt) = found=%v err=%v", found, err)
	}
	_, found, err = v.resolve(loc, NormalizeName("report.tx"))
	if err != nil || !found {
		t.Fatalf("resolve(report.tx) = found=%v err=%v", found, err)
	}
	_, found, err = v.resolve(loc, NormalizeName("nope.txt"))
	if err != nil {
		t.Fatalf("resolve(nope.txt): %v", err)
	}
	if found {
		t.Fatalf("resolve(nope.txt) unexpectedly found a match")
	}
}

func TestFindOrGrowSlotReusesFreedSlot(t *testing.T) {
	v := newTestVolume(t, 10)
	if err := v.Touch("a.txt"); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := v.Rm("a.txt"); err != nil {
		t.Fatalf("Rm: %v", err)
	}
	loc := rootLocation()
	off, err := v.findOrGrowSlot(loc)
	if err != nil {
		t.Fatalf("findOrGrowSlot: %v", err)
	}
	if !v.slotAt(off).isFree() {
		t.Fatalf("findOrGrowSlot did not return the freed slot")
	}
}

func TestRootDirectoryFull(t *testing.T) {
	// 20 data clusters: comfortably more than the 16 files touched, so
	// the root directory's own 16-entry capacity is what's exhausted,
	// not the data area (Touch allocates one cluster per file).
	v := newTestVolume(t, 20)
	// The test volume's root holds 16 entries.
	for i := 0; i < 16; i++ {
		name := string(rune('a'+i)) + ".txt"
		if err := v.Touch(name); err != nil {
			t.Fatalf("Touch %s: %v", name, err)
		}
	}
	if err := v.Touch("overflow.txt"); Kind(err) != ErrRootDirectoryFull {
		t.Fatalf("Touch on a full root = %v, want ErrRootDirectoryFull", err)
	}
}
