package fat12

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// makeBPB builds a minimal, valid boot sector for a small FAT12 image:
// 512-byte sectors, 1 sector/cluster, 1 reserved sector, 2 FATs of 1
// sector each, 16 root entries, 32 total sectors.
func makeBPB() []byte {
	buf := make([]byte, 512)
	buf[bpbSecPerClus] = 1
	buf[bpbRsvdSecCnt], buf[bpbRsvdSecCnt+1] = 1, 0
	buf[bpbNumFATs] = 2
	buf[bpbBytsPerSec], buf[bpbBytsPerSec+1] = 0, 2 // 512
	buf[bpbRootEntCnt], buf[bpbRootEntCnt+1] = 16, 0
	buf[bpbFATSz16], buf[bpbFATSz16+1] = 1, 0
	buf[bpbTotSec16], buf[bpbTotSec16+1] = 32, 0
	return buf
}

func TestParseGeometryValid(t *testing.T) {
	g, err := ParseGeometry(makeBPB())
	require.NoError(t, err)
	require.Equal(t, KindFAT12, g.Kind)
	require.EqualValues(t, 512, g.BytesPerCluster)

	// reserved(1) + fats(2*1) = 3 sectors before root dir.
	require.EqualValues(t, 3*512, g.RootDirOffset)
	// root dir: 16 entries * 32 bytes = 512 bytes = 1 sector.
	require.EqualValues(t, 4*512, g.DataAreaOffset)
}

func TestParseGeometryRejectsZeroFields(t *testing.T) {
	buf := makeBPB()
	buf[bpbBytsPerSec], buf[bpbBytsPerSec+1] = 0, 0
	_, err := ParseGeometry(buf)
	require.Error(t, err)
}

func TestParseGeometryRejectsTooLarge(t *testing.T) {
	buf := makeBPB()
	// Blow up total sectors so count_of_clusters exceeds the FAT12 ceiling.
	buf[bpbTotSec32], buf[bpbTotSec32+1], buf[bpbTotSec32+2], buf[bpbTotSec32+3] = 0, 0, 0, 1
	buf[bpbTotSec16], buf[bpbTotSec16+1] = 0, 0
	_, err := ParseGeometry(buf)
	require.Error(t, err)
}

func TestClusterOffset(t *testing.T) {
	g, err := ParseGeometry(makeBPB())
	require.NoError(t, err)
	require.Equal(t, g.DataAreaOffset, g.ClusterOffset(2))
	require.Equal(t, g.DataAreaOffset+int64(g.BytesPerCluster), g.ClusterOffset(3))
}
