// Package image defines the on-disk layout of a vsfs image: a contiguous,
// block-aligned byte region partitioned into a superblock, two bitmaps, an
// index (inode) region, and a data region, following the classical
// UNIX-style layout described in spec.md §3.
//
// Image owns the single backing byte slice; every other component borrows
// typed views into it rather than copying it, so that two regions can be
// mutated within the same call without aliasing a third.
package image

import (
	"encoding/binary"

	"github.com/boljen/go-bitmap"
)

// BlockSize is the size, in bytes, of every block-aligned region and slot
// boundary in the image.
const BlockSize = 4096

// DirectBlockCount is the number of direct data-block slots in an inode.
const DirectBlockCount = 12

// IndirectEntryCount is the number of uint32 data-block numbers a single
// indirect index block can hold.
const IndirectEntryCount = BlockSize / 4 // 1024

// InodeSize is the size, in bytes, of a single packed inode slot.
const InodeSize = 128

// InodesPerBlock is the number of inode slots packed into one index block.
const InodesPerBlock = BlockSize / InodeSize // 32

// IndexBlockCount is the number of 4096-byte blocks in the index region.
// Each block is either 32 packed inodes or, when reserved as an indirect
// table, 1024 uint32 data-block numbers.
const IndexBlockCount = 1024 * 4

// IndexBitmapBlockCount is the number of blocks backing the inode bitmap.
// Each block holds 1024*32 = 32768 bits, one per inode slot.
const IndexBitmapBlockCount = IndexBlockCount / 1024

// DataBitmapBlockCount is the number of blocks backing the data bitmap.
const DataBitmapBlockCount = 2

// TotalBlocks is the total size of an image, in 4096-byte blocks: one
// superblock, the two bitmaps, the index region, and the data region.
const TotalBlocks = 4096 * 16

// DataBlockCount is the number of blocks in the data region: everything
// left over after the superblock, the two bitmaps, and the index region.
const DataBlockCount = TotalBlocks - 1 - IndexBlockCount - IndexBitmapBlockCount - DataBitmapBlockCount

// MaxBlocksPerFile is the largest number of data blocks a single inode can
// reference: the direct slots plus one full indirect table.
const MaxBlocksPerFile = DirectBlockCount + IndirectEntryCount

// MaxFileSize is the largest byte size representable by a single inode.
const MaxFileSize = MaxBlocksPerFile * BlockSize

const (
	superblockOffset = 0
	indexBitmapOffset = superblockOffset + BlockSize
	dataBitmapOffset  = indexBitmapOffset + IndexBitmapBlockCount*BlockSize
	indexRegionOffset = dataBitmapOffset + DataBitmapBlockCount*BlockSize
	dataRegionOffset  = indexRegionOffset + IndexBlockCount*BlockSize
	totalSize         = dataRegionOffset + DataBlockCount*BlockSize
)

// Size is the total size, in bytes, of a vsfs image.
const Size = totalSize

// Image is the in-memory representation of an entire disk image: a single
// contiguous byte buffer, sliced into typed regions.
type Image struct {
	bytes []byte
}

// New allocates a fresh, zero-filled image of exactly Size bytes.
func New() *Image {
	return &Image{bytes: make([]byte, Size)}
}

// Bytes returns the raw backing buffer. Callers must not change its length;
// mutating its contents directly bypasses every invariant the rest of this
// module maintains, and is intended only for Export/Import.
func (img *Image) Bytes() []byte {
	return img.bytes
}

// Reset zero-fills the entire image in place.
func (img *Image) Reset() {
	for i := range img.bytes {
		img.bytes[i] = 0
	}
}

// Superblock returns the typed view over the superblock region.
func (img *Image) Superblock() Superblock {
	return Superblock{bytes: img.bytes[superblockOffset : superblockOffset+BlockSize]}
}

// IndexBitmap returns the bit-addressable view over the inode bitmap
// region: one bit per inode slot across the whole index region.
func (img *Image) IndexBitmap() bitmap.Bitmap {
	return bitmap.Bitmap(img.bytes[indexBitmapOffset : indexBitmapOffset+IndexBitmapBlockCount*BlockSize])
}

// DataBitmap returns the bit-addressable view over the data bitmap region:
// one bit per data block.
func (img *Image) DataBitmap() bitmap.Bitmap {
	return bitmap.Bitmap(img.bytes[dataBitmapOffset : dataBitmapOffset+DataBitmapBlockCount*BlockSize])
}

// IndexRegion returns the raw index region: IndexBlockCount blocks, each
// either 32 packed inodes or one 1024-entry indirect table.
func (img *Image) IndexRegion() []byte {
	return img.bytes[indexRegionOffset : indexRegionOffset+IndexBlockCount*BlockSize]
}

// DataRegion returns the raw data region: DataBlockCount blocks of raw file
// and directory-payload bytes.
func (img *Image) DataRegion() []byte {
	return img.bytes[dataRegionOffset : dataRegionOffset+DataBlockCount*BlockSize]
}

// DataBlock returns the 4096-byte slice for data block dnum.
func (img *Image) DataBlock(dnum uint32) []byte {
	region := img.DataRegion()
	start := int(dnum) * BlockSize
	return region[start : start+BlockSize]
}

// Superblock is the typed view over the first block of the image: the
// filesystem format version and the inum of the root directory.
type Superblock struct {
	bytes []byte
}

// Version returns the on-disk filesystem format version.
func (sb Superblock) Version() uint32 {
	return binary.LittleEndian.Uint32(sb.bytes[0:4])
}

// SetVersion sets the on-disk filesystem format version.
func (sb Superblock) SetVersion(v uint32) {
	binary.LittleEndian.PutUint32(sb.bytes[0:4], v)
}

// RootInum returns the inum of the root directory. It is always 0.
func (sb Superblock) RootInum() uint32 {
	return binary.LittleEndian.Uint32(sb.bytes[4:8])
}

// SetRootInum sets the inum of the root directory.
func (sb Superblock) SetRootInum(inum uint32) {
	binary.LittleEndian.PutUint32(sb.bytes[4:8], inum)
}
