package fat12

import (
	"log/slog"
	"strings"
)

// cwdHandle names the engine's current-directory position. Re-derived
// from loc on every use via currentLocation, not cached as a dirEntry,
// so a directory removed out from under an open handle is detected
// rather than silently followed into freed clusters — the source left
// this case undefined (spec §9.4).
type cwdHandle struct {
	isRoot       bool
	firstCluster uint32
}

// Volume is a mounted FAT12 filesystem over an in-memory image. All
// operations act directly on buf; nothing is buffered or deferred.
type Volume struct {
	buf  []byte
	geom Geometry
	cwd  cwdHandle
	log  *slog.Logger
}

// MountOption configures a Volume at Mount time.
type MountOption func(*Volume)

// WithLogger overrides the default slog logger used for operation
// tracing, the way the teacher's fsys takes a logger at construction.
// A nil logger keeps the default.
func WithLogger(l *slog.Logger) MountOption {
	return func(v *Volume) {
		if l != nil {
			v.log = l
		}
	}
}

// Mount parses buf's boot parameter block and returns a Volume
// positioned at the root directory. buf is retained, not copied: every
// subsequent mutation writes through it.
func Mount(buf []byte, opts ...MountOption) (*Volume, error) {
	geom, err := ParseGeometry(buf)
	if err != nil {
		return nil, err
	}
	v := &Volume{
		buf:  buf,
		geom: geom,
		cwd:  cwdHandle{isRoot: true},
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.trace("mount", "kind", geom.Kind, "clusters", geom.CountOfClusters, "bytesPerCluster", geom.BytesPerCluster)
	return v, nil
}

// Geometry exposes the volume's parsed geometry.
func (v *Volume) Geometry() Geometry { return v.geom }

// Bytes exposes the volume's backing image buffer, for callers that
// need to persist it (see the image package).
func (v *Volume) Bytes() []byte { return v.buf }

func (v *Volume) trace(op string, args ...any) { v.log.Debug(op, args...) }
func (v *Volume) warn(op string, args ...any) { v.log.Warn(op, args...) }

func (v *Volume) logError(op string, err error) error {
	if err != nil {
		v.log.Error(op, "err", err)
	}
	return err
}

// currentLocation resolves the active current-directory handle,
// revalidating a subdirectory handle against the allocation table: if
// its first cluster has been freed since Cd last set it, the handle is
// stale and this returns ErrStaleHandle instead of reading through
// freed clusters.
func (v *Volume) currentLocation() (dirLocation, error) {
	if v.cwd.isRoot {
		return rootLocation(), nil
	}
	if v.readEntry(v.cwd.firstCluster) == clusterFree {
		return dirLocation{}, wrapErr("cwd", "", ErrStaleHandle)
	}
	return subdirLocation(v.cwd.firstCluster), nil
}

// splitPath splits a path into its slash-separated components. A
// leading "/" marks the path absolute (resolved from the root);
// otherwise it is resolved from the current directory. Empty
// components (from "//" or a trailing "/") are dropped.
func splitPath(path string) (segments []string, absolute bool) {
	absolute = strings.HasPrefix(path, "/")
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments, absolute
}

func (v *Volume) startLocation(absolute bool) (dirLocation, error) {
	if absolute {
		return rootLocation(), nil
	}
	return v.currentLocation()
}

// descend resolves name as a directory entry inside loc and returns
// the location it names. It fails with ErrNotADirectory if the entry
// exists but is a file.
func (v *Volume) descend(loc dirLocation, name string) (dirLocation, error) {
	sn := NormalizeName(name)
	off, found, err := v.resolve(loc, sn)
	if err != nil {
		return dirLocation{}, err
	}
	if !found {
		return dirLocation{}, wrapErr("open", name, ErrNotFound)
	}
	e := v.slotAt(off)
	if !e.isDir() {
		return dirLocation{}, wrapErr("open", name, ErrNotADirectory)
	}
	if fc := e.firstCluster(); fc != 0 {
		return subdirLocation(fc), nil
	}
	return rootLocation(), nil
}

func (v *Volume) walkDirs(segments []string, start dirLocation) (dirLocation, error) {
	loc := start
	for _, s := range segments {
		next, err := v.descend(loc, s)
		if err != nil {
			return dirLocation{}, err
		}
		loc = next
	}
	return loc, nil
}

// resolvePath walks every component of path as a directory and returns
// the location it names. Used by Ls and Cd, whose argument always
// names a directory.
func (v *Volume) resolvePath(path string) (dirLocation, error) {
	segments, absolute := splitPath(path)
	start, err := v.startLocation(absolute)
	if err != nil {
		return dirLocation{}, err
	}
	return v.walkDirs(segments, start)
}

// parentAndLeaf splits path into the location of its containing
// directory and its final component, without requiring the final
// component to exist yet. Used by Touch and Mkdir.
func (v *Volume) parentAndLeaf(path string) (dirLocation, string, error) {
	segments, absolute := splitPath(path)
	if len(segments) == 0 {
		return dirLocation{}, "", wrapErr("create", path, ErrInvalidArgument)
	}
	start, err := v.startLocation(absolute)
	if err != nil {
		return dirLocation{}, "", err
	}
	parentLoc, err := v.walkDirs(segments[:len(segments)-1], start)
	if err != nil {
		return dirLocation{}, "", err
	}
	return parentLoc, segments[len(segments)-1], nil
}

// lookup resolves path to an existing entry (file or directory) and
// the location of the directory containing it.
func (v *Volume) lookup(path string) (parentLoc dirLocation, off int64, entry dirEntry, err error) {
	parentLoc, leaf, err := v.parentAndLeaf(path)
	if err != nil {
		return dirLocation{}, 0, dirEntry{}, err
	}
	sn := NormalizeName(leaf)
	off, found, err := v.resolve(parentLoc, sn)
	if err != nil {
		return dirLocation{}, 0, dirEntry{}, err
	}
	if !found {
		return dirLocation{}, 0, dirEntry{}, wrapErr("open", leaf, ErrNotFound)
	}
	return parentLoc, off, v.slotAt(off), nil
}

// Entry describes one directory listing row.
type Entry struct {
	Name  string
	IsDir bool
	Size  uint32
}

// Ls lists the entries of path, or of the current directory if path is
// empty. A subdirectory listing includes its "." and ".." pseudo-entries;
// the root never has them.
func (v *Volume) Ls(path string) ([]Entry, error) {
	loc, err := v.resolvePath(path)
	if err != nil {
		return nil, v.logError("ls", err)
	}
	var out []Entry
	err = v.forEachSlot(loc, func(off int64) (bool, error) {
		e := v.slotAt(off)
		if e.attr()&AttrVolume != 0 {
			return false, nil
		}
		out = append(out, Entry{Name: e.name().Display(), IsDir: e.isDir(), Size: e.size()})
		return false, nil
	})
	if err != nil {
		return nil, v.logError("ls", err)
	}
	return out, nil
}

// Cd changes the current directory to path.
func (v *Volume) Cd(path string) error {
	loc, err := v.resolvePath(path)
	if err != nil {
		return v.logError("cd", err)
	}
	if loc.isRoot {
		v.cwd = cwdHandle{isRoot: true}
	} else {
		v.cwd = cwdHandle{firstCluster: loc.firstCluster}
	}
	v.trace("cd", "path", path)
	return nil
}

// Cat returns the full contents of the file at path.
func (v *Volume) Cat(path string) ([]byte, error) {
	_, _, entry, err := v.lookup(path)
	if err != nil {
		return nil, v.logError("cat", err)
	}
	if entry.isDir() {
		return nil, v.logError("cat", wrapErr("cat", path, ErrNotAFile))
	}
	data, err := v.readFile(entry.firstCluster(), entry.size())
	return data, v.logError("cat", err)
}

func (v *Volume) readFile(start uint32, size uint32) ([]byte, error) {
	if size == 0 || start == 0 {
		return []byte{}, nil
	}
	out := make([]byte, 0, size)
	remaining := size
	bpc := v.geom.BytesPerCluster
	err := v.follow(start, func(c uint32) error {
		if remaining == 0 {
			return nil
		}
		take := bpc
		if remaining < take {
			take = remaining
		}
		base := v.geom.ClusterOffset(c)
		out = append(out, v.buf[base:base+int64(take)]...)
		remaining -= take
		return nil
	})
	return out, err
}

// Touch creates an empty file at path. It fails with ErrNameExists if
// an entry of that name is already present.
func (v *Volume) Touch(path string) error {
	parentLoc, leaf, err := v.parentAndLeaf(path)
	if err != nil {
		return v.logError("touch", err)
	}
	sn := NormalizeName(leaf)
	_, found, err := v.resolve(parentLoc, sn)
	if err != nil {
		return v.logError("touch", err)
	}
	if found {
		return v.logError("touch", wrapErr("touch", leaf, ErrNameExists))
	}
	off, err := v.findOrGrowSlot(parentLoc)
	if err != nil {
		return v.logError("touch", err)
	}
	c, err := v.allocate(0)
	if err != nil {
		return v.logError("touch", err)
	}
	e := v.slotAt(off)
	for i := range e.data {
		e.data[i] = 0
	}
	e.setName(sn)
	e.setAttr(AttrArchive)
	e.setFirstCluster(c)
	v.trace("touch", "path", path)
	return nil
}

// Append writes data to the end of the file at path, allocating
// clusters as needed. Per spec §8, a 514-byte append to an empty file
// on a 512-byte-cluster volume yields a 2-cluster chain.
func (v *Volume) Append(path string, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	_, _, entry, err := v.lookup(path)
	if err != nil {
		return v.logError("append", err)
	}
	if entry.isDir() {
		return v.logError("append", wrapErr("append", path, ErrNotAFile))
	}

	bpc := int(v.geom.BytesPerCluster)
	size := entry.size()
	cur := entry.firstCluster()

	var last uint32
	usedInLast := 0
	if cur == 0 {
		c, err := v.allocate(0)
		if err != nil {
			return v.logError("append", err)
		}
		entry.setFirstCluster(c)
		last = c
	} else {
		last, err = v.lastCluster(cur)
		if err != nil {
			return v.logError("append", err)
		}
		usedInLast = int(size) % bpc
		if usedInLast == 0 && size != 0 {
			usedInLast = bpc
		}
	}

	remaining := data
	for len(remaining) > 0 {
		if usedInLast >= bpc {
			nc, err := v.allocate(last)
			if err != nil {
				return v.logError("append", err)
			}
			last = nc
			usedInLast = 0
		}
		space := bpc - usedInLast
		n := len(remaining)
		if n > space {
			n = space
		}
		base := v.geom.ClusterOffset(last)
		copy(v.buf[base+int64(usedInLast):base+int64(usedInLast+n)], remaining[:n])
		usedInLast += n
		remaining = remaining[n:]
	}
	entry.setSize(size + uint32(len(data)))
	v.trace("append", "path", path, "bytes", len(data))
	return nil
}

// Mkdir creates a new, empty subdirectory at path.
func (v *Volume) Mkdir(path string) error {
	parentLoc, leaf, err := v.parentAndLeaf(path)
	if err != nil {
		return v.logError("mkdir", err)
	}
	sn := NormalizeName(leaf)
	_, found, err := v.resolve(parentLoc, sn)
	if err != nil {
		return v.logError("mkdir", err)
	}
	if found {
		return v.logError("mkdir", wrapErr("mkdir", leaf, ErrNameExists))
	}

	var parentFirstCluster uint32
	if !parentLoc.isRoot {
		parentFirstCluster = parentLoc.firstCluster
	}
	childCluster, err := v.newSubdirectory(parentFirstCluster)
	if err != nil {
		return v.logError("mkdir", err)
	}

	off, err := v.findOrGrowSlot(parentLoc)
	if err != nil {
		// Roll back: the directory cluster was allocated but has no
		// parent entry pointing at it.
		_ = v.freeChain(childCluster)
		return v.logError("mkdir", err)
	}
	e := v.slotAt(off)
	for i := range e.data {
		e.data[i] = 0
	}
	e.setName(sn)
	e.setAttr(AttrDirectory)
	e.setFirstCluster(childCluster)
	v.trace("mkdir", "path", path)
	return nil
}

// Rm removes the file at path. Per spec §9.2, the read-only and
// volume-label refusal tests the attribute byte bitwise, not the whole
// byte against a fixed constant.
func (v *Volume) Rm(path string) error {
	parentLoc, _, entry, err := v.lookup(path)
	if err != nil {
		return v.logError("rm", err)
	}
	if entry.isDir() {
		return v.logError("rm", wrapErr("rm", path, ErrNotAFile))
	}
	if entry.attr()&(AttrReadOnly|AttrVolume) != 0 {
		return v.logError("rm", wrapErr("rm", path, ErrInvalidArgument))
	}
	if fc := entry.firstCluster(); fc != 0 {
		if err := v.freeChain(fc); err != nil {
			return v.logError("rm", err)
		}
	}
	entry.markFree()
	if !parentLoc.isRoot {
		if err := v.collapseTrailingClusters(parentLoc.firstCluster); err != nil {
			return v.logError("rm", err)
		}
	}
	v.trace("rm", "path", path)
	return nil
}

// Rmdir removes the empty subdirectory at path.
func (v *Volume) Rmdir(path string) error {
	parentLoc, _, entry, err := v.lookup(path)
	if err != nil {
		return v.logError("rmdir", err)
	}
	if !entry.isDir() {
		return v.logError("rmdir", wrapErr("rmdir", path, ErrNotADirectory))
	}
	fc := entry.firstCluster()
	if fc == 0 {
		return v.logError("rmdir", wrapErr("rmdir", path, ErrInvalidArgument))
	}
	empty, err := v.dirIsEmpty(fc)
	if err != nil {
		return v.logError("rmdir", err)
	}
	if !empty {
		return v.logError("rmdir", wrapErr("rmdir", path, ErrNotEmpty))
	}
	if err := v.freeChain(fc); err != nil {
		return v.logError("rmdir", err)
	}
	entry.markFree()
	if !parentLoc.isRoot {
		if err := v.collapseTrailingClusters(parentLoc.firstCluster); err != nil {
			return v.logError("rmdir", err)
		}
	}
	v.trace("rmdir", "path", path)
	return nil
}

func (v *Volume) dirIsEmpty(firstCluster uint32) (bool, error) {
	empty := true
	err := v.forEachSlot(subdirLocation(firstCluster), func(off int64) (bool, error) {
		if !v.slotAt(off).isDotEntry() {
			empty = false
			return true, nil
		}
		return false, nil
	})
	return empty, err
}
