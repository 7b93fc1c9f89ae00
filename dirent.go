package fat12

import (
	"encoding/binary"
	"errors"
)

// Directory entry attribute bits, per spec §3.
const (
	AttrReadOnly  = 1 << 0
	AttrHidden    = 1 << 1
	AttrSystem    = 1 << 2
	AttrVolume    = 1 << 3
	AttrDirectory = 1 << 4
	AttrArchive   = 1 << 5
)

// Directory entry field offsets, per spec §3 / §6 (32 bytes, packed,
// little-endian). Named the way the teacher names its dir* offsets in
// tables.go.
const (
	dirName         = 0
	dirAttr         = 11
	dirNTRes        = 12
	dirCrtTimeTenth = 13
	dirCrtTime      = 14
	dirCrtDate      = 16
	dirLastAccDate  = 18
	dirReserved2    = 20
	dirWrtTime      = 22
	dirWrtDate      = 24
	dirFstClus      = 26
	dirFileSize     = 28
)

const (
	sentinelEnd  = 0x00
	sentinelFree = 0xE5
	ddemReplace  = 0x05 // replacement for a real name that collides with the free-slot marker.
)

// dirEntry is a struct view over one 32-byte directory-entry slot: a
// slice into the volume's buffer, never copied. Mirrors the teacher's
// dirSector struct-view pattern in sectors.go, narrowed to a single
// entry.
type dirEntry struct {
	data []byte // len == 32
}

func (e dirEntry) firstByte() byte { return e.data[dirName] }
func (e dirEntry) isEnd() bool     { return e.firstByte() == sentinelEnd }
func (e dirEntry) isFree() bool    { return e.firstByte() == sentinelFree }

func (e dirEntry) name() ShortName {
	var s ShortName
	copy(s[:], e.data[dirName:dirName+11])
	if s[0] == ddemReplace {
		s[0] = sentinelFree
	}
	return s
}

func (e dirEntry) setName(s ShortName) {
	if s[0] == sentinelFree {
		s[0] = ddemReplace // avoid colliding with the free-slot sentinel.
	}
	copy(e.data[dirName:dirName+11], s[:])
}

func (e dirEntry) attr() byte { return e.data[dirAttr] }
func (e dirEntry) setAttr(a byte) { e.data[dirAttr] = a }
func (e dirEntry) isDir() bool { return e.attr()&AttrDirectory != 0 }

func (e dirEntry) firstCluster() uint32 {
	return uint32(binary.LittleEndian.Uint16(e.data[dirFstClus:]))
}

func (e dirEntry) setFirstCluster(c uint32) {
	binary.LittleEndian.PutUint16(e.data[dirFstClus:], uint16(c))
}

func (e dirEntry) size() uint32 { return binary.LittleEndian.Uint32(e.data[dirFileSize:]) }
func (e dirEntry) setSize(n uint32) { binary.LittleEndian.PutUint32(e.data[dirFileSize:], n) }

// isDotEntry reports whether this slot is the "." or ".." pseudo-entry.
func (e dirEntry) isDotEntry() bool {
	n := e.name()
	return n[0] == '.' && (n[1] == ' ' || n[1] == '.')
}

// markFree zeroes the entry and sets its first byte to 0xE5, per the
// rm lifecycle in spec §4.7/§4.8.
func (e dirEntry) markFree() {
	for i := range e.data {
		e.data[i] = 0
	}
	e.data[dirName] = sentinelFree
}

// dirLocation names where a directory's entries live: the fixed flat
// root, or a cluster chain in the data area.
type dirLocation struct {
	isRoot       bool
	firstCluster uint32
}

func rootLocation() dirLocation { return dirLocation{isRoot: true} }

func subdirLocation(firstCluster uint32) dirLocation {
	return dirLocation{firstCluster: firstCluster}
}

// slotAt returns the dirEntry view at byte offset off in the volume buffer.
func (v *Volume) slotAt(off int64) dirEntry {
	return dirEntry{data: v.buf[off : off+sizeDirEntry]}
}

// forEachSlot walks every slot of loc in storage order, calling visit
// with the slot's byte offset. It stops when visit returns stop=true,
// an error, or the scanner's own 0x00 end-of-directory sentinel is
// reached. Ported from the teacher's dir.next/dir.find pair (fat.go),
// collapsed onto direct byte offsets since this engine has no sector
// window to move.
func (v *Volume) forEachSlot(loc dirLocation, visit func(off int64) (stop bool, err error)) error {
	if loc.isRoot {
		for i := 0; i < v.geom.RootDirEntries(); i++ {
			off := v.geom.RootDirOffset + int64(i)*sizeDirEntry
			e := v.slotAt(off)
			if e.isEnd() {
				return nil
			}
			if e.isFree() {
				continue
			}
			stop, err := visit(off)
			if err != nil || stop {
				return err
			}
		}
		return nil
	}

	entriesPerCluster := v.geom.EntriesPerCluster()
	err := v.follow(loc.firstCluster, func(cluster uint32) error {
		base := v.geom.ClusterOffset(cluster)
		for i := 0; i < entriesPerCluster; i++ {
			off := base + int64(i)*sizeDirEntry
			e := v.slotAt(off)
			if e.isEnd() {
				return errStopScan
			}
			if e.isFree() {
				continue
			}
			stop, err := visit(off)
			if err != nil {
				return err
			}
			if stop {
				return errStopScan
			}
		}
		return nil
	})
	if err == errStopScan {
		return nil
	}
	return err
}

// errStopScan unwinds follow's cluster loop early once the caller's
// visit function is satisfied or hits the end-of-directory sentinel;
// it never escapes forEachSlot as a real error.
var errStopScan = errors.New("fat12: internal scan stop")

// resolve looks up name in loc by exact 11-byte comparison against each
// slot's stored short name. Per spec §9.5, this engine does not
// reproduce the source's prefix match — two names differing only past
// the first mismatching byte are never treated as equal.
func (v *Volume) resolve(loc dirLocation, name ShortName) (off int64, found bool, err error) {
	err = v.forEachSlot(loc, func(slotOff int64) (bool, error) {
		if v.slotAt(slotOff).name() == name {
			off, found = slotOff, true
			return true, nil
		}
		return false, nil
	})
	return off, found, err
}

// findOrGrowSlot returns the byte offset of a free (0xE5 or 0x00) slot
// in loc, growing a subdirectory's chain by one cluster if its existing
// clusters are full. The root directory cannot grow; a full root
// reports ErrRootDirectoryFull.
func (v *Volume) findOrGrowSlot(loc dirLocation) (int64, error) {
	if loc.isRoot {
		for i := 0; i < v.geom.RootDirEntries(); i++ {
			off := v.geom.RootDirOffset + int64(i)*sizeDirEntry
			e := v.slotAt(off)
			if e.isEnd() || e.isFree() {
				return off, nil
			}
		}
		return 0, wrapErr("create", "", ErrRootDirectoryFull)
	}

	clusters, err := v.chainClusters(loc.firstCluster)
	if err != nil {
		return 0, err
	}
	entriesPerCluster := v.geom.EntriesPerCluster()
	for _, c := range clusters {
		base := v.geom.ClusterOffset(c)
		for i := 0; i < entriesPerCluster; i++ {
			off := base + int64(i)*sizeDirEntry
			e := v.slotAt(off)
			if e.isEnd() || e.isFree() {
				return off, nil
			}
		}
	}

	newCluster, err := v.allocate(loc.firstCluster)
	if err != nil {
		return 0, err
	}
	v.initDirCluster(newCluster)
	return v.geom.ClusterOffset(newCluster), nil
}

// initDirCluster zeroes a freshly allocated directory cluster and marks
// every slot free (0xE5) with the directory attribute bit set, per spec
// §4.5's directory-cluster-initialization rule. Both findOrGrowSlot
// (extending an existing subdirectory) and newSubdirectory (creating
// one) call this for every cluster they allocate.
func (v *Volume) initDirCluster(cluster uint32) {
	base := v.geom.ClusterOffset(cluster)
	n := v.geom.EntriesPerCluster()
	for i := 0; i < n; i++ {
		e := v.slotAt(base + int64(i)*sizeDirEntry)
		for j := range e.data {
			e.data[j] = 0
		}
		e.data[dirName] = sentinelFree
		e.data[dirAttr] = AttrDirectory
	}
}

// insertDotEntries writes the "." and ".." pseudo-entries into slots 0
// and 1 of a newly created subdirectory's first cluster. parentCluster
// is 0 when the parent is the root directory, matching the convention
// every other first-cluster field uses for "no cluster".
func (v *Volume) insertDotEntries(selfCluster, parentCluster uint32) {
	base := v.geom.ClusterOffset(selfCluster)

	dot := v.slotAt(base)
	dot.setName(NormalizeName("."))
	dot.setAttr(AttrDirectory)
	dot.setFirstCluster(selfCluster)

	dotdot := v.slotAt(base + sizeDirEntry)
	dotdot.setName(NormalizeName(".."))
	dotdot.setAttr(AttrDirectory)
	dotdot.setFirstCluster(parentCluster)
}

// newSubdirectory allocates and initializes the first cluster of a new
// subdirectory, with "." and ".." already populated, and returns its
// first cluster number.
func (v *Volume) newSubdirectory(parentCluster uint32) (uint32, error) {
	cluster, err := v.allocate(0)
	if err != nil {
		return 0, err
	}
	v.initDirCluster(cluster)
	v.insertDotEntries(cluster, parentCluster)
	return cluster, nil
}

// collapseTrailingClusters trims unused clusters off the tail of a
// subdirectory's chain after a deletion, per spec §4.7. It finds the
// last cluster in the chain that still holds any real entry (a slot
// that is neither 0x00 nor 0xE5 — "." and ".." in the first cluster
// always count), marks that cluster end-of-chain, and frees everything
// after it.
func (v *Volume) collapseTrailingClusters(firstCluster uint32) error {
	clusters, err := v.chainClusters(firstCluster)
	if err != nil {
		return err
	}
	entriesPerCluster := v.geom.EntriesPerCluster()
	lastUsed := 0
	for idx, c := range clusters {
		base := v.geom.ClusterOffset(c)
		for i := 0; i < entriesPerCluster; i++ {
			e := v.slotAt(base + int64(i)*sizeDirEntry)
			if !e.isEnd() && !e.isFree() {
				lastUsed = idx
			}
		}
	}
	if lastUsed == len(clusters)-1 {
		return nil
	}
	v.writeEntryAllCopies(clusters[lastUsed], clusterEOC)
	for _, c := range clusters[lastUsed+1:] {
		v.writeEntryAllCopies(c, clusterFree)
	}
	return nil
}
