// Package vsfs implements a miniature, self-contained single-image
// filesystem: a superblock, two free-space bitmaps, an inode table with
// direct and single-indirect block indexing, a directory service built on
// ordinary file contents, and an open-handle sharing manager, all
// addressed through slash-delimited paths.
package vsfs

import (
	"github.com/dargueta/vsfs/clock"
	"github.com/dargueta/vsfs/directory"
	vsfserrors "github.com/dargueta/vsfs/errors"
	"github.com/dargueta/vsfs/handle"
	"github.com/dargueta/vsfs/image"
	"github.com/dargueta/vsfs/inode"
	"github.com/dargueta/vsfs/path"
	"github.com/dargueta/vsfs/rw"
)

// FormatVersion is the on-disk format version this package writes and
// expects to read.
const FormatVersion = 1

// Handle identifies one open file or directory handle, returned by
// OpenFile/OpenDirectory and consumed by CloseFile/CloseDirectory,
// ReadFile, and WriteFile. It carries no exported fields; callers treat it
// as opaque.
type Handle = handle.ID

// FileSystem is a single mounted vsfs image, along with the engines that
// operate on it and the table of handles currently held open against it.
type FileSystem struct {
	img     *image.Image
	inodes  *inode.Manager
	rw      *rw.Engine
	handles *handle.Manager
	clock   clock.Clock
}

// New formats a brand new, empty image and returns a FileSystem backed by
// it. Timestamps are drawn from clk.
func New(clk clock.Clock) *FileSystem {
	fs := &FileSystem{
		img:     image.New(),
		handles: handle.New(),
		clock:   clk,
	}
	fs.inodes = inode.New(fs.img)
	fs.rw = rw.New(fs.img, fs.inodes)
	fs.init()
	return fs
}

// Open wraps an already-formatted image in a FileSystem, without
// reinitializing it. Callers that loaded an image from storage (see
// Export/Import) should use this instead of New.
func Open(img *image.Image, clk clock.Clock) *FileSystem {
	fs := &FileSystem{img: img, handles: handle.New(), clock: clk}
	fs.inodes = inode.New(fs.img)
	fs.rw = rw.New(fs.img, fs.inodes)
	return fs
}

// Image returns the underlying image, for Export/Import.
func (fs *FileSystem) Image() *image.Image {
	return fs.img
}

func (fs *FileSystem) init() {
	fs.img.Reset()

	sb := fs.img.Superblock()
	sb.SetVersion(FormatVersion)
	sb.SetRootInum(0)

	rootInum, err := fs.inodes.Allocate()
	if err != nil {
		panic("vsfs: fresh image has no room for root inode")
	}
	if rootInum != 0 {
		panic("vsfs: root inode must be inum 0")
	}

	now := fs.clock.Now()
	fs.img.WriteInode(rootInum, image.Inode{
		IsDir: true,
		Atime: now,
		Ctime: now,
		Mtime: now,
	})
}

func (fs *FileSystem) touchModify(inum uint32) {
	n := fs.img.ReadInode(inum)
	now := fs.clock.Now()
	n.Mtime = now
	n.Atime = now
	fs.img.WriteInode(inum, n)
}

func (fs *FileSystem) touchAccess(inum uint32) {
	n := fs.img.ReadInode(inum)
	n.Atime = fs.clock.Now()
	fs.img.WriteInode(inum, n)
}

// dirIsEmpty reports whether inum, which must name a directory, currently
// holds no live entries.
func (fs *FileSystem) dirIsEmpty(inum uint32) (bool, error) {
	return fs.openDirOf(inum).IsEmpty()
}

// IsDir reports whether p names a directory.
func (fs *FileSystem) IsDir(p path.Path) (bool, error) {
	inum, err := fs.resolve(p)
	if err != nil {
		return false, err
	}
	return fs.img.ReadInode(inum).IsDir, nil
}

// Exists reports whether p names anything at all, touching its access
// time if so.
func (fs *FileSystem) Exists(p path.Path) bool {
	inum, err := fs.resolve(p)
	if err != nil {
		return false
	}
	fs.touchAccess(inum)
	return true
}

func (fs *FileSystem) allocateChild(parent path.Path, name string, isDir bool) (uint32, error) {
	parentInum, err := fs.resolveDir(parent)
	if err != nil {
		return 0, err
	}
	dir := fs.openDirOf(parentInum)

	if exists, err := dir.Exists(name); err != nil {
		return 0, err
	} else if exists {
		return 0, vsfserrors.ErrFileExists.WithMessage(parent.Join(name).String())
	}

	childInum, err := fs.inodes.Allocate()
	if err != nil {
		return 0, err
	}

	now := fs.clock.Now()
	fs.img.WriteInode(childInum, image.Inode{
		IsDir: isDir,
		Atime: now,
		Ctime: now,
		Mtime: now,
	})

	if err := dir.Add(name, childInum); err != nil {
		return 0, err
	}
	return childInum, nil
}

// Mkdir creates a new, empty directory named name inside the directory at
// parent. It returns ErrFileExists if an entry by that name is already
// present, ErrPathNotFound if parent does not exist, or ErrInvalidFileType
// if parent names a regular file.
func (fs *FileSystem) Mkdir(parent path.Path, name string) error {
	_, err := fs.allocateChild(parent, name, true)
	return err
}

// CreateFile creates a new, empty regular file named name inside the
// directory at parent.
func (fs *FileSystem) CreateFile(parent path.Path, name string) error {
	_, err := fs.allocateChild(parent, name, false)
	return err
}

// Rmdir removes the empty directory at p. It returns ErrInvalidFileType if
// p names the root or a regular file, and ErrDirNotEmpty if it names a
// non-empty directory.
func (fs *FileSystem) Rmdir(p path.Path) error {
	if p.IsRoot() {
		return vsfserrors.ErrInvalidFileType.WithMessage("cannot remove the root directory")
	}

	inum, err := fs.resolveDir(p)
	if err != nil {
		return err
	}

	empty, err := fs.dirIsEmpty(inum)
	if err != nil {
		return err
	}
	if !empty {
		return vsfserrors.ErrDirNotEmpty.WithMessage(p.String())
	}

	if err := fs.inodes.Free(inum); err != nil {
		return err
	}
	return fs.compactParentOf(p)
}

// DeleteFile removes the regular file at p. It returns ErrInvalidFileType
// if p names a directory.
func (fs *FileSystem) DeleteFile(p path.Path) error {
	inum, err := fs.resolve(p)
	if err != nil {
		return err
	}
	if fs.img.ReadInode(inum).IsDir {
		return vsfserrors.ErrInvalidFileType.WithMessage(p.String())
	}

	if err := fs.inodes.Free(inum); err != nil {
		return err
	}
	return fs.compactParentOf(p)
}

// compactParentOf rewrites p's parent directory, dropping whatever stale
// entries now point at freed inodes. Freeing an inode's bitmap bit is what
// makes an entry stale; this only needs to run against the immediate
// parent since nothing else can reference the freed inode.
func (fs *FileSystem) compactParentOf(p path.Path) error {
	parent, ok := p.Parent()
	if !ok {
		return vsfserrors.ErrInvalidFileType.WithMessage(p.String())
	}
	parentInum, err := fs.resolveDir(parent)
	if err != nil {
		return err
	}
	return fs.openDirOf(parentInum).Compact()
}

// List returns the live entries of the directory at p, touching its
// access time.
func (fs *FileSystem) List(p path.Path) ([]directory.Entry, error) {
	inum, err := fs.resolveDir(p)
	if err != nil {
		return nil, err
	}
	entries, err := fs.openDirOf(inum).List()
	if err != nil {
		return nil, err
	}
	fs.touchAccess(inum)
	return entries, nil
}

// fileInfoFor looks up h's current state and re-resolves the path it names
// back to an inum, failing if the handle is unknown, already closed, or no
// longer resolves to anything.
func (fs *FileSystem) fileInfoFor(h Handle) (handle.FileInfo, uint32, error) {
	info, ok := fs.handles.FileInfo(h)
	if !ok || info.Closed {
		return handle.FileInfo{}, 0, vsfserrors.ErrFileNotOpen.WithMessage("handle is not open")
	}

	p, ok := path.Parse(info.Path)
	if !ok {
		return handle.FileInfo{}, 0, vsfserrors.ErrPathNotFound.WithMessage(info.Path)
	}
	inum, err := fs.resolve(p)
	if err != nil {
		return handle.FileInfo{}, 0, err
	}
	return info, inum, nil
}

// ReadFile reads up to len(buf) bytes from h's current position, advancing
// it by however many bytes were read, and touches the file's access time.
// It returns ErrAccess if h was not opened for reading.
func (fs *FileSystem) ReadFile(h Handle, buf []byte) (int, error) {
	info, inum, err := fs.fileInfoFor(h)
	if err != nil {
		return 0, err
	}
	if info.Mode != handle.Read && info.Mode != handle.ReadWrite {
		return 0, vsfserrors.ErrAccess.WithMessage(info.Path)
	}

	n, err := fs.rw.ReadAt(inum, info.Position, buf)
	if err != nil {
		return n, err
	}
	fs.handles.Advance(h, uint32(n))
	fs.touchAccess(inum)
	return n, nil
}

// WriteFile writes data at h's current position, growing the file if the
// write extends past its current size, advancing h's position by
// len(data), and touching the file's modification time. It returns
// ErrAccess if h was not opened for writing.
func (fs *FileSystem) WriteFile(h Handle, data []byte) (int, error) {
	info, inum, err := fs.fileInfoFor(h)
	if err != nil {
		return 0, err
	}
	if info.Mode != handle.Write && info.Mode != handle.ReadWrite {
		return 0, vsfserrors.ErrAccess.WithMessage(info.Path)
	}

	n, err := fs.rw.WriteAt(inum, info.Position, data)
	if err != nil {
		return n, err
	}
	fs.handles.Advance(h, uint32(n))
	fs.touchModify(inum)
	return n, nil
}

// Description is a snapshot of an inode's metadata, returned by Describe.
type Description struct {
	Path       string
	IsDir      bool
	Size       uint32
	BlockCount uint32
	Atime      uint32
	Ctime      uint32
	Mtime      uint32
}

// Describe returns a metadata snapshot of the file or directory at p,
// touching its access time first so the snapshot reflects the access this
// call itself makes.
func (fs *FileSystem) Describe(p path.Path) (Description, error) {
	inum, err := fs.resolve(p)
	if err != nil {
		return Description{}, err
	}
	fs.touchAccess(inum)
	n := fs.img.ReadInode(inum)
	return Description{
		Path:       p.String(),
		IsDir:      n.IsDir,
		Size:       n.Size,
		BlockCount: n.BlockCount,
		Atime:      n.Atime,
		Ctime:      n.Ctime,
		Mtime:      n.Mtime,
	}, nil
}

// OpenFile opens the regular file at p in mode for pid, returning a Handle
// with its position initialized to 0. It returns ErrFileCannotWrite if
// mode requests writing and another handle already holds p open for
// writing, and ErrPathNotFound if p does not exist. Order matters here:
// the write-exclusivity check happens before the existence check, so
// opening a nonexistent path for writing while some other conflicting
// writer holds it reports FileCannotWrite rather than PathNotFound. The
// access time is touched only once the existence check has passed.
func (fs *FileSystem) OpenFile(pid uint32, p path.Path, mode handle.AccessMode) (Handle, error) {
	key := p.String()

	if mode == handle.Write || mode == handle.ReadWrite {
		if !fs.handles.CanWrite(key) {
			return 0, vsfserrors.ErrFileCannotWrite.WithMessage(key)
		}
	}

	inum, err := fs.resolve(p)
	if err != nil {
		return 0, err
	}
	if fs.img.ReadInode(inum).IsDir {
		return 0, vsfserrors.ErrInvalidFileType.WithMessage(key)
	}

	fs.touchAccess(inum)
	return fs.handles.OpenFile(pid, key, mode), nil
}

// CloseFile releases the file handle h. It returns ErrFileNotOpen if h is
// unknown or already closed.
func (fs *FileSystem) CloseFile(h Handle) error {
	return fs.handles.CloseFile(h)
}

// OpenDirectory opens the directory at p for pid, touching its access
// time, and returns a Handle.
func (fs *FileSystem) OpenDirectory(pid uint32, p path.Path) (Handle, error) {
	inum, err := fs.resolveDir(p)
	if err != nil {
		return 0, err
	}
	fs.touchAccess(inum)
	return fs.handles.OpenDirectory(pid, p.String()), nil
}

// CloseDirectory releases the directory handle h. It returns
// ErrFileNotOpen if h is unknown or already closed.
func (fs *FileSystem) CloseDirectory(h Handle) error {
	return fs.handles.CloseDirectory(h)
}
