// Package bitmap implements the free-space allocators used by the image's
// inode bitmap and data bitmap: first-fit bit scanning for individual
// inodes and data blocks, plus whole-word (32-bit) scanning and atomic
// allocation for the index-block units that back indirect tables.
//
// A word must never be left in a mixed state when it is claimed or
// released as an indirect-table unit: either all 32 bits are free, or all
// 32 are set. Individual inode allocation, by contrast, claims and clears
// single bits within a word freely.
package bitmap

import (
	"encoding/binary"

	gobitmap "github.com/boljen/go-bitmap"

	vsfserrors "github.com/dargueta/vsfs/errors"
)

const wordBits = 32

// Get reports whether bit i is set.
func Get(b gobitmap.Bitmap, i int) bool {
	return b.Get(i)
}

// Set sets or clears bit i.
func Set(b gobitmap.Bitmap, i int, v bool) {
	b.Set(i, v)
}

// FindFreeBit returns the index of the lowest-numbered clear bit in b, or
// -1 if every bit in the first n bits is set.
func FindFreeBit(b gobitmap.Bitmap, n int) int {
	for i := 0; i < n; i++ {
		if !b.Get(i) {
			return i
		}
	}
	return -1
}

// AllocateBit finds the lowest-numbered free bit among the first n bits,
// sets it, and returns its index. It returns ErrNoSpace if none are free.
func AllocateBit(b gobitmap.Bitmap, n int) (int, error) {
	i := FindFreeBit(b, n)
	if i < 0 {
		return 0, vsfserrors.ErrNoSpace.WithMessage("no free bit available")
	}
	b.Set(i, true)
	return i, nil
}

// wordValue reads word index w (32 consecutive bits, bit w*32 through
// w*32+31) out of b as a little-endian uint32.
func wordValue(b gobitmap.Bitmap, w int) uint32 {
	byteOff := w * 4
	return binary.LittleEndian.Uint32(b[byteOff : byteOff+4])
}

// WordIsFree reports whether every bit in word w is clear.
func WordIsFree(b gobitmap.Bitmap, w int) bool {
	return wordValue(b, w) == 0
}

// WordIsFull reports whether every bit in word w is set.
func WordIsFull(b gobitmap.Bitmap, w int) bool {
	return wordValue(b, w) == 0xFFFFFFFF
}

// FindFreeWord returns the index of the lowest-numbered fully-clear word
// among the first n words of b, or -1 if none is free.
func FindFreeWord(b gobitmap.Bitmap, n int) int {
	for w := 0; w < n; w++ {
		if WordIsFree(b, w) {
			return w
		}
	}
	return -1
}

// SetWord sets every bit in word w to v in a single operation, so the word
// never passes through a partially-set intermediate state.
func SetWord(b gobitmap.Bitmap, w int, v bool) {
	byteOff := w * 4
	var raw uint32
	if v {
		raw = 0xFFFFFFFF
	}
	binary.LittleEndian.PutUint32(b[byteOff:byteOff+4], raw)
}

// AllocateWord finds the lowest-numbered fully-free word among the first n
// words, claims it atomically, and returns its index. It returns
// ErrNoSpace if none is free.
func AllocateWord(b gobitmap.Bitmap, n int) (int, error) {
	w := FindFreeWord(b, n)
	if w < 0 {
		return 0, vsfserrors.ErrNoSpace.WithMessage("no free index unit available")
	}
	SetWord(b, w, true)
	return w, nil
}

// ReleaseWord clears every bit in word w atomically. The caller is
// responsible for ensuring nothing still references the unit.
func ReleaseWord(b gobitmap.Bitmap, w int) {
	SetWord(b, w, false)
}
