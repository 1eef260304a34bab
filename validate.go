package vsfs

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/dargueta/vsfs/image"
)

// CheckInvariants walks the entire image and reports every structural
// inconsistency it finds, rather than stopping at the first one: bitmap
// consistency (every allocated inode is either the root or reachable from
// it, and vice versa), block ownership (every data block an inode
// references is marked allocated, and referenced by exactly one inode),
// size/count consistency (an inode's block count always matches its
// size), directory entry reachability, and name uniqueness within a
// directory. It returns nil if the image is internally consistent.
func (fs *FileSystem) CheckInvariants() error {
	var result *multierror.Error

	reachable := fs.reachableInodes()

	result = multierror.Append(result, fs.checkIndexBitmapWordAlignment())
	result = multierror.Append(result, fs.checkBlockOwnership())
	result = multierror.Append(result, fs.checkSizeBlockCountConsistency())
	result = multierror.Append(result, fs.checkDirectoryEntryReachability(reachable))
	result = multierror.Append(result, fs.checkNameUniqueness())
	result = multierror.Append(result, fs.checkRootIsDirectory())

	return result.ErrorOrNil()
}

// reachableInodes walks the directory tree from the root, following only
// live entries, and returns the set of inums reachable that way. The root
// itself is always included, even though nothing references it.
func (fs *FileSystem) reachableInodes() map[uint32]bool {
	root := fs.img.Superblock().RootInum()
	seen := map[uint32]bool{root: true}
	queue := []uint32{root}

	for len(queue) > 0 {
		inum := queue[0]
		queue = queue[1:]

		n := fs.img.ReadInode(inum)
		if !n.IsDir {
			continue
		}
		entries, err := fs.openDirOf(inum).List()
		if err != nil {
			continue
		}
		for _, e := range entries {
			if seen[e.Inum] {
				continue
			}
			seen[e.Inum] = true
			queue = append(queue, e.Inum)
		}
	}
	return seen
}

// checkIndexBitmapWordAlignment verifies that every inode whose BlockCount
// exceeds DirectBlockCount has an indirect table allocated, and that the
// word governing that table is fully set, never partially set.
func (fs *FileSystem) checkIndexBitmapWordAlignment() error {
	var result *multierror.Error
	bits := fs.img.IndexBitmap()

	for inum := uint32(0); inum < image.IndexBlockCount*image.InodesPerBlock; inum++ {
		if !bits.Get(int(inum)) {
			continue
		}
		n := fs.img.ReadInode(inum)
		if n.BlockCount <= image.DirectBlockCount {
			continue
		}
		word := int(image.IndexUnitOfIndirectBlock(n.Indirect))
		for i := 0; i < 32; i++ {
			if !bits.Get(word*32 + i) {
				result = multierror.Append(result, fmt.Errorf(
					"inode %d: indirect word %d is only partially allocated", inum, word))
				break
			}
		}
	}
	return result.ErrorOrNil()
}

// checkBlockOwnership verifies that every data block an inode references
// is marked allocated in the data bitmap, and that no data block is
// referenced by more than one live inode.
func (fs *FileSystem) checkBlockOwnership() error {
	var result *multierror.Error
	owner := make(map[uint32]uint32)
	indexBits := fs.img.IndexBitmap()
	dataBits := fs.img.DataBitmap()

	for inum := uint32(0); inum < image.IndexBlockCount*image.InodesPerBlock; inum++ {
		if !indexBits.Get(int(inum)) {
			continue
		}
		n := fs.img.ReadInode(inum)
		for i := uint32(0); i < n.BlockCount; i++ {
			dnum, ok := fs.inodes.BlockAt(inum, i)
			if !ok {
				continue
			}
			if !dataBits.Get(int(dnum)) {
				result = multierror.Append(result, fmt.Errorf(
					"inode %d: data block %d is referenced but not marked allocated", inum, dnum))
			}
			if prev, taken := owner[dnum]; taken {
				result = multierror.Append(result, fmt.Errorf(
					"data block %d referenced by both inode %d and inode %d", dnum, prev, inum))
				continue
			}
			owner[dnum] = inum
		}
	}
	return result.ErrorOrNil()
}

// checkSizeBlockCountConsistency verifies that every allocated inode's
// BlockCount is exactly ⌈Size/BlockSize⌉.
func (fs *FileSystem) checkSizeBlockCountConsistency() error {
	var result *multierror.Error
	indexBits := fs.img.IndexBitmap()

	for inum := uint32(0); inum < image.IndexBlockCount*image.InodesPerBlock; inum++ {
		if !indexBits.Get(int(inum)) {
			continue
		}
		n := fs.img.ReadInode(inum)
		want := (n.Size + image.BlockSize - 1) / image.BlockSize
		if n.BlockCount != want {
			result = multierror.Append(result, fmt.Errorf(
				"inode %d: block count %d does not match size %d (want %d)",
				inum, n.BlockCount, n.Size, want))
		}
	}
	return result.ErrorOrNil()
}

// checkDirectoryEntryReachability verifies that every allocated inode is
// reachable from the root directory: an allocated inode nothing reaches is
// an orphan, leaked by a crash between inode allocation and the directory
// Add that was meant to follow it.
func (fs *FileSystem) checkDirectoryEntryReachability(reachable map[uint32]bool) error {
	var result *multierror.Error
	indexBits := fs.img.IndexBitmap()

	for inum := uint32(0); inum < image.IndexBlockCount*image.InodesPerBlock; inum++ {
		if !indexBits.Get(int(inum)) {
			continue
		}
		if !reachable[inum] {
			result = multierror.Append(result, fmt.Errorf(
				"inode %d is allocated but unreachable from the root directory", inum))
		}
	}
	return result.ErrorOrNil()
}

// checkNameUniqueness verifies that no directory holds two live entries
// with the same name.
func (fs *FileSystem) checkNameUniqueness() error {
	var result *multierror.Error
	indexBits := fs.img.IndexBitmap()

	for inum := uint32(0); inum < image.IndexBlockCount*image.InodesPerBlock; inum++ {
		if !indexBits.Get(int(inum)) {
			continue
		}
		n := fs.img.ReadInode(inum)
		if !n.IsDir {
			continue
		}
		entries, err := fs.openDirOf(inum).List()
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		seen := make(map[string]bool, len(entries))
		for _, e := range entries {
			if seen[e.Name] {
				result = multierror.Append(result, fmt.Errorf(
					"directory inode %d: duplicate entry name %q", inum, e.Name))
				continue
			}
			seen[e.Name] = true
		}
	}
	return result.ErrorOrNil()
}

// checkRootIsDirectory verifies that the root inum always names a
// directory.
func (fs *FileSystem) checkRootIsDirectory() error {
	root := fs.img.Superblock().RootInum()
	n := fs.img.ReadInode(root)
	if !n.IsDir {
		return fmt.Errorf("root inode %d is not a directory", root)
	}
	return nil
}
