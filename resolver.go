package vsfs

import (
	"github.com/dargueta/vsfs/directory"
	vsfserrors "github.com/dargueta/vsfs/errors"
	"github.com/dargueta/vsfs/path"
)

// resolve walks p segment by segment from the root inode, returning the
// inum it names. It returns ErrPathNotFound if any segment along the way
// is missing, or names something that is not a directory.
func (fs *FileSystem) resolve(p path.Path) (uint32, error) {
	inum := fs.img.Superblock().RootInum()
	if p.IsRoot() {
		return inum, nil
	}

	for _, seg := range p.Segments() {
		n := fs.img.ReadInode(inum)
		if !n.IsDir {
			return 0, vsfserrors.ErrPathNotFound.WithMessage(p.String())
		}

		dir := directory.Open(fs.img, fs.rw, inum)
		next, ok, err := dir.Lookup(seg)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, vsfserrors.ErrPathNotFound.WithMessage(p.String())
		}
		inum = next
	}
	return inum, nil
}

// resolveDir resolves p and verifies it names a directory.
func (fs *FileSystem) resolveDir(p path.Path) (uint32, error) {
	inum, err := fs.resolve(p)
	if err != nil {
		return 0, err
	}
	n := fs.img.ReadInode(inum)
	if !n.IsDir {
		return 0, vsfserrors.ErrInvalidFileType.WithMessage(p.String())
	}
	return inum, nil
}

// openDirOf returns a directory.Directory view over the directory that
// inum names.
func (fs *FileSystem) openDirOf(inum uint32) *directory.Directory {
	return directory.Open(fs.img, fs.rw, inum)
}
