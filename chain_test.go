package fat12

import "testing"

func TestAllocateAndFollow(t *testing.T) {
	v := newTestVolume(t, 20)

	c1, err := v.allocate(0)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if c1 != clusterMinData {
		t.Fatalf("first allocation = %d, want %d (lowest free wins)", c1, clusterMinData)
	}
	c2, err := v.allocate(c1)
	if err != nil {
		t.Fatalf("allocate chained: %v", err)
	}
	if c2 != c1+1 {
		t.Fatalf("second allocation = %d, want %d", c2, c1+1)
	}

	clusters, err := v.chainClusters(c1)
	if err != nil {
		t.Fatalf("chainClusters: %v", err)
	}
	if len(clusters) != 2 || clusters[0] != c1 || clusters[1] != c2 {
		t.Fatalf("chainClusters = %v, want [%d %d]", clusters, c1, c2)
	}

	last, err := v.lastCluster(c1)
	if err != nil || last != c2 {
		t.Fatalf("lastCluster = %d, %v; want %d, nil", last, err, c2)
	}
}

func TestAllocateMirrorsAllCopies(t *testing.T) {
	v := newTestVolume(t, 10)
	c, err := v.allocate(0)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	for copyIdx := 0; copyIdx < int(v.geom.NumFATs); copyIdx++ {
		got := readFATEntry(v.buf, v.geom.FATOffset(copyIdx), c)
		if !isEndOfChain(got) {
			t.Errorf("copy %d: entry %d = %#x, want end-of-chain", copyIdx, c, got)
		}
	}
}

func TestFreeChainReleasesClusters(t *testing.T) {
	v := newTestVolume(t, 10)
	c1, _ := v.allocate(0)
	c2, _ := v.allocate(c1)

	if err := v.freeChain(c1); err != nil {
		t.Fatalf("freeChain: %v", err)
	}
	if v.readEntry(c1) != clusterFree || v.readEntry(c2) != clusterFree {
		t.Fatalf("freeChain did not clear entries: c1=%#x c2=%#x", v.readEntry(c1), v.readEntry(c2))
	}
}

func TestVolumeFull(t *testing.T) {
	v := newTestVolume(t, 2)
	if _, err := v.allocate(0); err != nil {
		t.Fatalf("allocate 1: %v", err)
	}
	if _, err := v.allocate(0); err != nil {
		t.Fatalf("allocate 2: %v", err)
	}
	if _, err := v.allocate(0); Kind(err) != ErrVolumeFull {
		t.Fatalf("allocate 3 = %v, want ErrVolumeFull", err)
	}
}
