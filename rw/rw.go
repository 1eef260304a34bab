// Package rw implements the byte-level read/write engine: translating an
// arbitrary (inum, offset, length) read or write into the sequence of
// block-level operations needed to satisfy it, growing a file's block
// allocation on demand when a write extends past its current size.
package rw

import (
	"encoding/binary"

	vsfserrors "github.com/dargueta/vsfs/errors"
	"github.com/dargueta/vsfs/image"
	"github.com/dargueta/vsfs/inode"
)

// structLengthPrefixSize is the width, in bytes, of the length prefix
// ReadStruct/WriteStruct frame their payload with.
const structLengthPrefixSize = 4

// Engine performs byte-level reads and writes against inode contents
// stored in img, growing and shrinking block allocations through mgr as
// needed.
type Engine struct {
	img *image.Image
	mgr *inode.Manager
}

// New returns an Engine operating on img, allocating blocks through mgr.
func New(img *image.Image, mgr *inode.Manager) *Engine {
	return &Engine{img: img, mgr: mgr}
}

// ReadAt reads into buf starting at byte offset within the file backed by
// inum, stopping at end of file. It returns the number of bytes actually
// read, which is less than len(buf) if the read runs past the end of the
// file.
func (e *Engine) ReadAt(inum uint32, offset uint32, buf []byte) (int, error) {
	n := e.img.ReadInode(inum)
	if offset >= n.Size {
		return 0, nil
	}

	remaining := n.Size - offset
	if uint32(len(buf)) > remaining {
		buf = buf[:remaining]
	}

	read := 0
	for read < len(buf) {
		pos := offset + uint32(read)
		logical := pos / image.BlockSize
		blockOff := pos % image.BlockSize

		dnum, ok := e.mgr.BlockAt(inum, logical)
		if !ok {
			break
		}
		block := e.img.DataBlock(dnum)

		chunk := image.BlockSize - blockOff
		if want := uint32(len(buf) - read); chunk > want {
			chunk = want
		}
		copy(buf[read:read+int(chunk)], block[blockOff:blockOff+chunk])
		read += int(chunk)
	}
	return read, nil
}

// ReadAll returns the full contents of the file backed by inum.
func (e *Engine) ReadAll(inum uint32) ([]byte, error) {
	n := e.img.ReadInode(inum)
	buf := make([]byte, n.Size)
	read, err := e.ReadAt(inum, 0, buf)
	if err != nil {
		return nil, err
	}
	return buf[:read], nil
}

// WriteAt writes data starting at byte offset within the file backed by
// inum. If the write extends past the file's current size, the file is
// grown (both its block allocation and its Size field) to fit exactly;
// there is no separate auto-resize variant, so ordinary WriteAt calls
// double as "WriteAutoResize". A write that ends before the current size
// leaves the size unchanged.
func (e *Engine) WriteAt(inum uint32, offset uint32, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	newEnd := offset + uint32(len(data))
	if newEnd < offset {
		return 0, vsfserrors.ErrNoSpace.WithMessage("write offset overflows file size")
	}

	n := e.img.ReadInode(inum)
	if newEnd > n.Size {
		if err := e.mgr.Resize(inum, newEnd); err != nil {
			return 0, err
		}
	}

	written := 0
	for written < len(data) {
		pos := offset + uint32(written)
		logical := pos / image.BlockSize
		blockOff := pos % image.BlockSize

		dnum, ok := e.mgr.BlockAt(inum, logical)
		if !ok {
			return written, vsfserrors.ErrNoSpace.WithMessage("could not resolve block for write")
		}
		block := e.img.DataBlock(dnum)

		chunk := image.BlockSize - blockOff
		if want := uint32(len(data) - written); chunk > want {
			chunk = want
		}
		copy(block[blockOff:blockOff+chunk], data[written:written+int(chunk)])
		written += int(chunk)
	}
	return written, nil
}

// WriteAll replaces the entire contents of the file backed by inum with
// data, resizing it to exactly len(data) bytes.
func (e *Engine) WriteAll(inum uint32, data []byte) error {
	if err := e.mgr.Resize(inum, uint32(len(data))); err != nil {
		return err
	}
	_, err := e.WriteAt(inum, 0, data)
	return err
}

// ReadStruct reads a 4-byte little-endian length prefix from the start of
// the file backed by inum, followed by that many bytes, and returns the
// payload (not including the prefix). It returns a nil payload if the
// file is empty.
func (e *Engine) ReadStruct(inum uint32) ([]byte, error) {
	n := e.img.ReadInode(inum)
	if n.Size == 0 {
		return nil, nil
	}
	if n.Size < structLengthPrefixSize {
		return nil, vsfserrors.ErrInvalidFileType.WithMessage("truncated length-prefixed payload")
	}

	header := make([]byte, structLengthPrefixSize)
	if _, err := e.ReadAt(inum, 0, header); err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint32(header)
	if length == 0 {
		return nil, nil
	}

	payload := make([]byte, length)
	if _, err := e.ReadAt(inum, structLengthPrefixSize, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteStruct replaces the file backed by inum with a 4-byte little-endian
// length prefix followed by data, resizing the file to exactly
// 4+len(data) bytes.
func (e *Engine) WriteStruct(inum uint32, data []byte) error {
	buf := make([]byte, structLengthPrefixSize+len(data))
	binary.LittleEndian.PutUint32(buf[0:structLengthPrefixSize], uint32(len(data)))
	copy(buf[structLengthPrefixSize:], data)
	return e.WriteAll(inum, buf)
}
