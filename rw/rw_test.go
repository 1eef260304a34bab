package rw_test

import (
	"testing"

	"github.com/dargueta/vsfs/image"
	"github.com/dargueta/vsfs/inode"
	"github.com/dargueta/vsfs/rw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAllAndReadAll(t *testing.T) {
	img := image.New()
	mgr := inode.New(img)
	engine := rw.New(img, mgr)

	inum, err := mgr.Allocate()
	require.NoError(t, err)

	payload := []byte("hello, vsfs")
	require.NoError(t, engine.WriteAll(inum, payload))

	got, err := engine.ReadAll(inum)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestWriteAt_GrowsFile(t *testing.T) {
	img := image.New()
	mgr := inode.New(img)
	engine := rw.New(img, mgr)

	inum, err := mgr.Allocate()
	require.NoError(t, err)

	n, err := engine.WriteAt(inum, 5, []byte("xyz"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := engine.ReadAll(inum)
	require.NoError(t, err)
	assert.Equal(t, 8, len(got))
	assert.Equal(t, []byte("xyz"), got[5:8])
}

func TestWriteAt_SpansMultipleBlocks(t *testing.T) {
	img := image.New()
	mgr := inode.New(img)
	engine := rw.New(img, mgr)

	inum, err := mgr.Allocate()
	require.NoError(t, err)

	data := make([]byte, image.BlockSize*2+100)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, engine.WriteAll(inum, data))

	got, err := engine.ReadAll(inum)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestReadAt_PastEndOfFile(t *testing.T) {
	img := image.New()
	mgr := inode.New(img)
	engine := rw.New(img, mgr)

	inum, err := mgr.Allocate()
	require.NoError(t, err)
	require.NoError(t, engine.WriteAll(inum, []byte("abc")))

	buf := make([]byte, 10)
	n, err := engine.ReadAt(inum, 1, buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("bc"), buf[:n])

	n, err = engine.ReadAt(inum, 100, buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestWriteStructAndReadStruct_RoundTrip(t *testing.T) {
	img := image.New()
	mgr := inode.New(img)
	engine := rw.New(img, mgr)

	inum, err := mgr.Allocate()
	require.NoError(t, err)

	payload := []byte("name,inum\nfoo.txt,3\n")
	require.NoError(t, engine.WriteStruct(inum, payload))

	n := img.ReadInode(inum)
	assert.EqualValues(t, 4+len(payload), n.Size)

	got, err := engine.ReadStruct(inum)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadStruct_EmptyFileReturnsNilPayload(t *testing.T) {
	img := image.New()
	mgr := inode.New(img)
	engine := rw.New(img, mgr)

	inum, err := mgr.Allocate()
	require.NoError(t, err)

	got, err := engine.ReadStruct(inum)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWriteStruct_EmptyPayloadRoundTrips(t *testing.T) {
	img := image.New()
	mgr := inode.New(img)
	engine := rw.New(img, mgr)

	inum, err := mgr.Allocate()
	require.NoError(t, err)

	require.NoError(t, engine.WriteStruct(inum, nil))
	got, err := engine.ReadStruct(inum)
	require.NoError(t, err)
	assert.Nil(t, got)
}
