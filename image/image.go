// Package image loads and saves raw FAT12 volume images. Mounting and
// every filesystem operation live in the fat12 package; this package
// only gets the bytes in and out.
package image

import (
	"io"

	"github.com/noxer/bytewriter"
	"github.com/xaionaro-go/bytesextra"
)

// Load reads an entire volume image from r.
func Load(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

// LoadReaderAt reads size bytes starting at offset 0 of ra, the way a
// caller holding an *os.File or other ReaderAt would supply an image
// without loading the whole backing store through a plain Reader.
func LoadReaderAt(ra io.ReaderAt, size int64) ([]byte, error) {
	return io.ReadAll(io.NewSectionReader(ra, 0, size))
}

// Save writes buf into dst, which must be at least len(buf) bytes.
// Unlike io.Writer's usual append-style semantics, dst's capacity is
// fixed: writing past its end is an error rather than a silent growth.
func Save(dst []byte, buf []byte) (int, error) {
	w := bytewriter.New(dst)
	return w.Write(buf)
}

// AsReadWriteSeeker wraps a volume's raw buffer in an io.ReadWriteSeeker,
// for callers (REPLs, test harnesses) that want to treat an in-memory
// image like a block device without writing their own cursor tracking.
func AsReadWriteSeeker(buf []byte) io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(buf)
}
