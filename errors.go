package fat12

import "errors"

// ErrorKind is the taxonomy of failures the engine can surface. Every
// operation that fails returns one of these (optionally wrapped with
// extra context via fmt.Errorf's %w), never a bare string or a negative
// sentinel mixed in with success values.
type ErrorKind uint8

const (
	_ ErrorKind = iota
	ErrNotAFat12Volume
	ErrNotFound
	ErrNotADirectory
	ErrNotAFile
	ErrNameExists
	ErrVolumeFull
	ErrRootDirectoryFull
	ErrNotEmpty
	ErrDefectiveCluster
	ErrChainCorrupt
	ErrInvalidArgument
	ErrStaleHandle
)

var errorText = [...]string{
	"",
	"not a FAT12 volume",
	"no such file or directory",
	"not a directory",
	"not a file",
	"name already exists",
	"volume full",
	"root directory full",
	"directory not empty",
	"defective cluster",
	"cluster chain corrupt",
	"invalid argument",
	"stale current-directory handle",
}

// Error implements the error interface. ErrorKind is the comparable,
// switchable value callers should match against; wrapped errors carry
// additional detail but always unwrap to one of these.
func (k ErrorKind) Error() string {
	if int(k) >= len(errorText) {
		return "fat12: unknown error"
	}
	return "fat12: " + errorText[k]
}

// Is lets errors.Is(err, ErrNotFound) match a wrapped *opError carrying
// this kind.
func (k ErrorKind) Is(target error) bool {
	kk, ok := target.(ErrorKind)
	return ok && kk == k
}

// opError adds the failing operation and name to an ErrorKind, the way
// a driver reports "which call, which path" without losing the
// switchable kind.
type opError struct {
	op   string
	name string
	kind ErrorKind
}

func (e *opError) Error() string {
	if e.name == "" {
		return e.op + ": " + e.kind.Error()
	}
	return e.op + " " + e.name + ": " + e.kind.Error()
}

func (e *opError) Unwrap() error { return e.kind }

func wrapErr(op, name string, kind ErrorKind) error {
	return &opError{op: op, name: name, kind: kind}
}

// Kind extracts the ErrorKind from any error produced by this package,
// or 0 if err is nil or foreign.
func Kind(err error) ErrorKind {
	var k ErrorKind
	if errors.As(err, &k) {
		return k
	}
	var oe *opError
	if errors.As(err, &oe) {
		return oe.kind
	}
	return 0
}
