package image

import "encoding/binary"

// Inode is the in-memory, unpacked form of a single 128-byte on-disk inode
// slot.
//
// Layout (little-endian, 128 bytes total):
//
//	offset  0: uint32 Size         file size in bytes
//	offset  4: uint8  IsDir        1 if directory, 0 if regular file
//	offset  8: uint32 Atime        last access time, seconds since epoch
//	offset 12: uint32 Ctime        inode change time
//	offset 16: uint32 Mtime        content modification time
//	offset 20: uint32 BlockCount   number of data blocks currently allocated
//	offset 24: [12]uint32 Direct   direct data-block numbers
//	offset 72: uint32 Indirect     indirect index-block number, or 0 if unused
//	offset 76..128: reserved
type Inode struct {
	Size       uint32
	IsDir      bool
	Atime      uint32
	Ctime      uint32
	Mtime      uint32
	BlockCount uint32
	Direct     [DirectBlockCount]uint32
	Indirect   uint32
}

// HasIndirect reports whether the inode has an indirect table allocated.
func (n *Inode) HasIndirect() bool {
	return n.Indirect != 0 || n.BlockCount > DirectBlockCount
}

func (n *Inode) marshalInto(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], n.Size)
	if n.IsDir {
		dst[4] = 1
	} else {
		dst[4] = 0
	}
	binary.LittleEndian.PutUint32(dst[8:12], n.Atime)
	binary.LittleEndian.PutUint32(dst[12:16], n.Ctime)
	binary.LittleEndian.PutUint32(dst[16:20], n.Mtime)
	binary.LittleEndian.PutUint32(dst[20:24], n.BlockCount)
	for i, b := range n.Direct {
		off := 24 + i*4
		binary.LittleEndian.PutUint32(dst[off:off+4], b)
	}
	binary.LittleEndian.PutUint32(dst[72:76], n.Indirect)
	for i := 76; i < InodeSize; i++ {
		dst[i] = 0
	}
}

func unmarshalInode(src []byte) Inode {
	var n Inode
	n.Size = binary.LittleEndian.Uint32(src[0:4])
	n.IsDir = src[4] != 0
	n.Atime = binary.LittleEndian.Uint32(src[8:12])
	n.Ctime = binary.LittleEndian.Uint32(src[12:16])
	n.Mtime = binary.LittleEndian.Uint32(src[16:20])
	n.BlockCount = binary.LittleEndian.Uint32(src[20:24])
	for i := range n.Direct {
		off := 24 + i*4
		n.Direct[i] = binary.LittleEndian.Uint32(src[off : off+4])
	}
	n.Indirect = binary.LittleEndian.Uint32(src[72:76])
	return n
}

// inodeSlot returns the byte slice backing inode slot number inum, wherever
// it falls in the index region. Slots are packed InodesPerBlock to a block
// in slot order; the block that holds slot inum is never also used as an
// indirect table, since bitmap allocation of "index units" (see package
// bitmap) treats an inode block and an indirect block the same way: both
// are one 32-bit-word unit of the index bitmap.
func (img *Image) inodeSlot(inum uint32) []byte {
	region := img.IndexRegion()
	start := int(inum) * InodeSize
	return region[start : start+InodeSize]
}

// ReadInode unpacks inode slot inum.
func (img *Image) ReadInode(inum uint32) Inode {
	return unmarshalInode(img.inodeSlot(inum))
}

// WriteInode packs n into inode slot inum.
func (img *Image) WriteInode(inum uint32, n Inode) {
	n.marshalInto(img.inodeSlot(inum))
}

// IndirectBlockNumbers returns the entry slice for indirect index-block
// number ibnum, as IndirectEntryCount uint32 data-block numbers packed
// little-endian into one 4096-byte index block. Callers read and write
// entries directly through the returned accessor; there is no copy.
func (img *Image) IndirectBlockNumbers(ibnum uint32) IndirectBlock {
	region := img.IndexRegion()
	start := int(ibnum) * BlockSize
	return IndirectBlock{bytes: region[start : start+BlockSize]}
}

// IndirectBlock is a typed view over one index block reserved to hold
// IndirectEntryCount data-block numbers rather than packed inodes.
type IndirectBlock struct {
	bytes []byte
}

// Get returns the data-block number stored at entry i.
func (ib IndirectBlock) Get(i int) uint32 {
	off := i * 4
	return binary.LittleEndian.Uint32(ib.bytes[off : off+4])
}

// Set stores data-block number dnum at entry i.
func (ib IndirectBlock) Set(i int, dnum uint32) {
	off := i * 4
	binary.LittleEndian.PutUint32(ib.bytes[off:off+4], dnum)
}

// Zero clears every entry in the indirect block to 0.
func (ib IndirectBlock) Zero() {
	for i := range ib.bytes {
		ib.bytes[i] = 0
	}
}

// IndexUnitOfInode returns the index-bitmap word number that governs the
// block containing inode slot inum: InodesPerBlock inodes share one word.
func IndexUnitOfInode(inum uint32) uint32 {
	return inum / InodesPerBlock
}

// IndexUnitOfIndirectBlock returns the index-bitmap word number that
// governs indirect index-block ibnum. Since one index block is exactly one
// bitmap word's worth of units wide, this is the identity.
func IndexUnitOfIndirectBlock(ibnum uint32) uint32 {
	return ibnum
}
