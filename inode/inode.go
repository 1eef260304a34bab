// Package inode implements allocation and block-index management for vsfs
// inodes: acquiring and releasing inode slots, translating a logical block
// index within a file into the physical data-block number that backs it,
// and growing or shrinking a file's block allocation.
package inode

import (
	"github.com/dargueta/vsfs/bitmap"
	vsfserrors "github.com/dargueta/vsfs/errors"
	"github.com/dargueta/vsfs/image"
)

// Manager allocates and resizes inodes and their block allocations against
// a single Image.
type Manager struct {
	img *image.Image
}

// New returns a Manager operating on img.
func New(img *image.Image) *Manager {
	return &Manager{img: img}
}

// totalInodeSlots is the number of inode slots addressable by the index
// bitmap: one block of the index region holds InodesPerBlock of them.
const totalInodeSlots = image.IndexBlockCount * image.InodesPerBlock

// Allocate claims the lowest-numbered free inode slot, zero-fills it, and
// returns its inum. It returns ErrNoSpace if every slot is taken.
func (m *Manager) Allocate() (uint32, error) {
	bits := m.img.IndexBitmap()
	i, err := bitmap.AllocateBit(bits, totalInodeSlots)
	if err != nil {
		return 0, err
	}
	inum := uint32(i)
	m.img.WriteInode(inum, image.Inode{})
	return inum, nil
}

// Free releases inode slot inum's data blocks and indirect table (if any)
// by clearing their bitmap bits, zero-fills the inode slot itself, and
// finally clears its own bitmap bit — in that order, so that a crash mid-free never leaves a bit
// clear while the slot still looks populated.
func (m *Manager) Free(inum uint32) error {
	n := m.img.ReadInode(inum)

	dataBits := m.img.DataBitmap()
	for i := uint32(0); i < n.BlockCount && i < image.DirectBlockCount; i++ {
		dataBits.Set(int(n.Direct[i]), false)
	}
	if n.HasIndirect() && n.BlockCount > image.DirectBlockCount {
		ib := m.img.IndirectBlockNumbers(n.Indirect)
		indirectCount := n.BlockCount - image.DirectBlockCount
		for i := uint32(0); i < indirectCount; i++ {
			dataBits.Set(int(ib.Get(int(i))), false)
		}
		indexBits := m.img.IndexBitmap()
		bitmap.ReleaseWord(indexBits, int(image.IndexUnitOfIndirectBlock(n.Indirect)))
	}

	m.img.WriteInode(inum, image.Inode{})

	indexBits := m.img.IndexBitmap()
	indexBits.Set(int(inum), false)
	return nil
}

// BlockAt translates logical block index i (0-based) within the file
// backed by inum into a physical data-block number. ok is false if i is
// beyond the inode's current BlockCount.
func (m *Manager) BlockAt(inum uint32, i uint32) (dnum uint32, ok bool) {
	n := m.img.ReadInode(inum)
	if i >= n.BlockCount {
		return 0, false
	}
	if i < image.DirectBlockCount {
		return n.Direct[i], true
	}
	ib := m.img.IndirectBlockNumbers(n.Indirect)
	return ib.Get(int(i - image.DirectBlockCount)), true
}

// Grow extends inum's block allocation to exactly newCount blocks,
// allocating new data blocks (and an indirect table, if newCount exceeds
// DirectBlockCount and none is yet allocated) as needed. newCount must be
// greater than or equal to the inode's current BlockCount.
func (m *Manager) Grow(inum uint32, newCount uint32) error {
	n := m.img.ReadInode(inum)
	if newCount <= n.BlockCount {
		return nil
	}
	if newCount > image.MaxBlocksPerFile {
		return vsfserrors.ErrNoSpace.WithMessage("file exceeds maximum block count")
	}

	dataBits := m.img.DataBitmap()

	if newCount > image.DirectBlockCount && !n.HasIndirect() {
		indexBits := m.img.IndexBitmap()
		w, err := bitmap.AllocateWord(indexBits, image.IndexBlockCount)
		if err != nil {
			return err
		}
		n.Indirect = uint32(w)
		m.img.IndirectBlockNumbers(n.Indirect).Zero()
	}

	for n.BlockCount < newCount {
		dnum, err := bitmap.AllocateBit(dataBits, image.DataBlockCount)
		if err != nil {
			return err
		}
		if n.BlockCount < image.DirectBlockCount {
			n.Direct[n.BlockCount] = uint32(dnum)
		} else {
			ib := m.img.IndirectBlockNumbers(n.Indirect)
			ib.Set(int(n.BlockCount-image.DirectBlockCount), uint32(dnum))
		}
		n.BlockCount++
	}

	m.img.WriteInode(inum, n)
	return nil
}

// Shrink reduces inum's block allocation to exactly newCount blocks,
// releasing data blocks from the tail of the file, and releasing the
// indirect table too if newCount no longer needs one. newCount must be
// less than or equal to the inode's current BlockCount.
func (m *Manager) Shrink(inum uint32, newCount uint32) error {
	n := m.img.ReadInode(inum)
	if newCount >= n.BlockCount {
		return nil
	}
	hadIndirect := n.HasIndirect()
	indirectBlock := n.Indirect

	dataBits := m.img.DataBitmap()

	for n.BlockCount > newCount {
		last := n.BlockCount - 1
		var dnum uint32
		if last < image.DirectBlockCount {
			dnum = n.Direct[last]
			n.Direct[last] = 0
		} else {
			ib := m.img.IndirectBlockNumbers(n.Indirect)
			idx := int(last - image.DirectBlockCount)
			dnum = ib.Get(idx)
			ib.Set(idx, 0)
		}
		dataBits.Set(int(dnum), false)
		n.BlockCount--
	}

	if n.BlockCount <= image.DirectBlockCount && hadIndirect {
		indexBits := m.img.IndexBitmap()
		bitmap.ReleaseWord(indexBits, int(image.IndexUnitOfIndirectBlock(indirectBlock)))
		n.Indirect = 0
	}

	m.img.WriteInode(inum, n)
	return nil
}

// Resize changes inum's block allocation to hold exactly size bytes,
// growing or shrinking as needed, and updates the inode's Size field.
func (m *Manager) Resize(inum uint32, size uint32) error {
	blockCount := blockCountForSize(size)
	n := m.img.ReadInode(inum)

	if blockCount > n.BlockCount {
		if err := m.Grow(inum, blockCount); err != nil {
			return err
		}
	} else if blockCount < n.BlockCount {
		if err := m.Shrink(inum, blockCount); err != nil {
			return err
		}
	}

	n = m.img.ReadInode(inum)
	n.Size = size
	m.img.WriteInode(inum, n)
	return nil
}

// blockCountForSize returns ⌈size/BlockSize⌉.
func blockCountForSize(size uint32) uint32 {
	return (size + image.BlockSize - 1) / image.BlockSize
}
