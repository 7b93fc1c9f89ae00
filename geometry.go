package fat12

import (
	"encoding/binary"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Byte offsets into the Boot Parameter Block, per spec: packed,
// little-endian, bytes 0..35 of sector 0. Named the way the teacher
// names its bpb* constants in sectors.go.
const (
	bpbBytsPerSec = 11
	bpbSecPerClus = 13
	bpbRsvdSecCnt = 14
	bpbNumFATs    = 16
	bpbRootEntCnt = 17
	bpbTotSec16   = 19
	bpbFATSz16    = 22
	bpbTotSec32   = 32

	sizeBPB       = 36
	sizeDirEntry  = 32
	clustMaxFAT12 = 4085 // spec §3: FAT12 iff count_of_clusters <= 4085.
)

// biosParamBlock is a struct view over the raw boot sector bytes: field
// accessors read/write fixed offsets directly, never relying on Go
// struct layout or host endianness. Mirrors the teacher's
// biosParamBlock/dirSector pattern in sectors.go.
type biosParamBlock struct {
	data []byte
}

func (bs biosParamBlock) bytesPerSector() uint16 { return binary.LittleEndian.Uint16(bs.data[bpbBytsPerSec:]) }
func (bs biosParamBlock) sectorsPerCluster() uint8 { return bs.data[bpbSecPerClus] }
func (bs biosParamBlock) reservedSectors() uint16 { return binary.LittleEndian.Uint16(bs.data[bpbRsvdSecCnt:]) }
func (bs biosParamBlock) numFATs() uint8 { return bs.data[bpbNumFATs] }
func (bs biosParamBlock) rootEntryCount() uint16 { return binary.LittleEndian.Uint16(bs.data[bpbRootEntCnt:]) }
func (bs biosParamBlock) sectorsPerFAT() uint16 { return binary.LittleEndian.Uint16(bs.data[bpbFATSz16:]) }
func (bs biosParamBlock) totalSectors16() uint16 { return binary.LittleEndian.Uint16(bs.data[bpbTotSec16:]) }
func (bs biosParamBlock) totalSectors32() uint32 { return binary.LittleEndian.Uint32(bs.data[bpbTotSec32:]) }

func (bs biosParamBlock) totalSectors() uint32 {
	if t32 := bs.totalSectors32(); t32 >= 0x10000 {
		return t32
	}
	return uint32(bs.totalSectors16())
}

// VolumeKind classifies a mounted volume's FAT width, per spec §3's
// count_of_clusters rule.
type VolumeKind uint8

const (
	KindUnknown VolumeKind = iota
	KindFAT12
	KindFAT16
	KindFAT32
)

func (k VolumeKind) String() string {
	switch k {
	case KindFAT12:
		return "FAT12"
	case KindFAT16:
		return "FAT16"
	case KindFAT32:
		return "FAT32"
	default:
		return "unknown"
	}
}

// Geometry is the pure derivation from a BPB: byte offsets for the
// reserved region, each allocation-table copy, the root directory, and
// the data area, plus the cluster count used to classify the volume.
// It never mutates the underlying buffer.
type Geometry struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	SectorsPerFAT     uint16

	BytesPerCluster uint32
	FATBytes        uint32
	RootDirSectors  uint32
	RootDirOffset   int64
	DataAreaOffset  int64
	CountOfClusters uint32
	Kind            VolumeKind
}

// ParseGeometry reads the BPB at the start of buf and derives the
// geometry. It returns ErrNotAFat12Volume (wrapping every violated
// precondition it found) if the image is structurally invalid or is
// not a FAT12 volume.
func ParseGeometry(buf []byte) (Geometry, error) {
	if len(buf) < sizeBPB {
		return Geometry{}, wrapErr("mount", "", ErrNotAFat12Volume)
	}
	bs := biosParamBlock{data: buf}

	var merr *multierror.Error
	bytesPerSector := bs.bytesPerSector()
	if bytesPerSector == 0 {
		merr = multierror.Append(merr, fmt.Errorf("bytes per sector is zero"))
	}
	reservedSectors := bs.reservedSectors()
	if reservedSectors == 0 {
		merr = multierror.Append(merr, fmt.Errorf("reserved sector count is zero"))
	}
	numFATs := bs.numFATs()
	if numFATs == 0 {
		merr = multierror.Append(merr, fmt.Errorf("number of FATs is zero"))
	}
	sectorsPerCluster := bs.sectorsPerCluster()
	if sectorsPerCluster == 0 {
		merr = multierror.Append(merr, fmt.Errorf("sectors per cluster is zero"))
	}
	if merr.ErrorOrNil() != nil {
		return Geometry{}, fmt.Errorf("%w: %s", ErrNotAFat12Volume, merr.Error())
	}

	sectorsPerFAT := bs.sectorsPerFAT()
	rootEntryCount := bs.rootEntryCount()
	rootDirSectors := (uint32(sizeDirEntry)*uint32(rootEntryCount) + uint32(bytesPerSector) - 1) / uint32(bytesPerSector)

	fatAreaSectors := uint32(numFATs) * uint32(sectorsPerFAT)
	rootDirOffset := (int64(reservedSectors) + int64(fatAreaSectors)) * int64(bytesPerSector)
	dataAreaOffset := rootDirOffset + int64(rootDirSectors)*int64(bytesPerSector)

	totalSectors := bs.totalSectors()
	dataStartSector := uint32(reservedSectors) + fatAreaSectors + rootDirSectors
	var countOfClusters uint32
	if totalSectors > dataStartSector {
		countOfClusters = (totalSectors - dataStartSector) / uint32(sectorsPerCluster)
	}

	kind := KindFAT32
	switch {
	case countOfClusters <= clustMaxFAT12:
		kind = KindFAT12
	case countOfClusters <= 65525:
		kind = KindFAT16
	}

	g := Geometry{
		BytesPerSector:    bytesPerSector,
		SectorsPerCluster: sectorsPerCluster,
		ReservedSectors:   reservedSectors,
		NumFATs:           numFATs,
		RootEntryCount:    rootEntryCount,
		SectorsPerFAT:     sectorsPerFAT,
		BytesPerCluster:   uint32(bytesPerSector) * uint32(sectorsPerCluster),
		FATBytes:          uint32(sectorsPerFAT) * uint32(bytesPerSector),
		RootDirSectors:    rootDirSectors,
		RootDirOffset:     rootDirOffset,
		DataAreaOffset:    dataAreaOffset,
		CountOfClusters:   countOfClusters,
		Kind:              kind,
	}
	if g.Kind != KindFAT12 {
		return Geometry{}, fmt.Errorf("%w: volume classified as %s (%d clusters)", ErrNotAFat12Volume, g.Kind, countOfClusters)
	}
	return g, nil
}

// FATOffset returns the byte offset of allocation-table copy copyIndex
// (0-based).
func (g Geometry) FATOffset(copyIndex int) int64 {
	return (int64(g.ReservedSectors) + int64(copyIndex)*int64(g.SectorsPerFAT)) * int64(g.BytesPerSector)
}

// ClusterOffset returns the byte position of cluster c in the data
// area. Per spec §3, this is data_area_offset + (c-2) * bytes_per_cluster
// — the corrected formula; see SPEC_FULL.md §9 for the rejected,
// off-by-"-2" source behavior.
func (g Geometry) ClusterOffset(c uint32) int64 {
	return g.DataAreaOffset + int64(c-2)*int64(g.BytesPerCluster)
}

// RootDirEntries is the fixed capacity of the root directory.
func (g Geometry) RootDirEntries() int {
	return int(g.RootEntryCount)
}

// EntriesPerCluster is the number of 32-byte directory entries that fit
// in one cluster.
func (g Geometry) EntriesPerCluster() int {
	return int(g.BytesPerCluster) / sizeDirEntry
}
