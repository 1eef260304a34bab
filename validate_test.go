package vsfs_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/vsfs"
	"github.com/dargueta/vsfs/clock"
	"github.com/dargueta/vsfs/handle"
	"github.com/dargueta/vsfs/image"
	"github.com/dargueta/vsfs/inode"
	"github.com/dargueta/vsfs/rw"
)

func TestCheckInvariants_CleanFilesystemWithNestedContent(t *testing.T) {
	fs := vsfs.New(clock.Fixed(1000))
	root := mustPath(t, "/")
	require.NoError(t, fs.Mkdir(root, "a"))
	require.NoError(t, fs.CreateFile(mustPath(t, "/a"), "x.txt"))
	assert.NoError(t, fs.CheckInvariants())
}

func TestCheckInvariants_OrphanedInodeIsReported(t *testing.T) {
	fs := vsfs.New(clock.Fixed(1000))
	img := fs.Image()

	// Claim an inode slot directly, bypassing the directory tree entirely,
	// as if a crash happened between Allocate and the directory Add meant
	// to follow it.
	bits := img.IndexBitmap()
	orphan := uint32(5)
	bits.Set(int(orphan), true)
	img.WriteInode(orphan, image.Inode{})

	err := fs.CheckInvariants()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestCheckInvariants_SizeBlockCountMismatchIsReported(t *testing.T) {
	fs := vsfs.New(clock.Fixed(1000))
	root := mustPath(t, "/")
	require.NoError(t, fs.CreateFile(root, "x.txt"))

	entries, err := fs.List(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	inum := entries[0].Inum

	img := fs.Image()
	n := img.ReadInode(inum)
	n.BlockCount = 3
	img.WriteInode(inum, n)

	err = fs.CheckInvariants()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "block count")
}

func TestCheckInvariants_DoublyAllocatedBlockIsReported(t *testing.T) {
	fs := vsfs.New(clock.Fixed(1000))
	root := mustPath(t, "/")
	require.NoError(t, fs.CreateFile(root, "a.bin"))
	require.NoError(t, fs.CreateFile(root, "b.bin"))

	ha, err := fs.OpenFile(1, mustPath(t, "/a.bin"), handle.Write)
	require.NoError(t, err)
	_, err = fs.WriteFile(ha, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, fs.CloseFile(ha))

	entries, err := fs.List(root)
	require.NoError(t, err)
	var aInum, bInum uint32
	for _, e := range entries {
		switch e.Name {
		case "a.bin":
			aInum = e.Inum
		case "b.bin":
			bInum = e.Inum
		}
	}

	img := fs.Image()
	aNode := img.ReadInode(aInum)
	bNode := img.ReadInode(bInum)
	bNode.Size = 1
	bNode.BlockCount = 1
	bNode.Direct[0] = aNode.Direct[0]
	img.WriteInode(bInum, bNode)

	err = fs.CheckInvariants()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "referenced by both")
}

func TestCheckInvariants_BlockNotMarkedAllocatedIsReported(t *testing.T) {
	fs := vsfs.New(clock.Fixed(1000))
	root := mustPath(t, "/")
	require.NoError(t, fs.CreateFile(root, "a.bin"))

	h, err := fs.OpenFile(1, mustPath(t, "/a.bin"), handle.Write)
	require.NoError(t, err)
	_, err = fs.WriteFile(h, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, fs.CloseFile(h))

	entries, err := fs.List(root)
	require.NoError(t, err)
	inum := entries[0].Inum

	img := fs.Image()
	n := img.ReadInode(inum)
	img.DataBitmap().Set(int(n.Direct[0]), false)

	err = fs.CheckInvariants()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not marked allocated")
}

func TestCheckInvariants_PartialIndirectWordIsReported(t *testing.T) {
	fs := vsfs.New(clock.Fixed(1000))
	root := mustPath(t, "/")
	require.NoError(t, fs.CreateFile(root, "big.bin"))
	p := mustPath(t, "/big.bin")

	h, err := fs.OpenFile(1, p, handle.Write)
	require.NoError(t, err)
	data := make([]byte, image.BlockSize*13)
	_, err = fs.WriteFile(h, data)
	require.NoError(t, err)
	require.NoError(t, fs.CloseFile(h))

	entries, err := fs.List(root)
	require.NoError(t, err)
	inum := entries[0].Inum

	img := fs.Image()
	n := img.ReadInode(inum)
	require.True(t, n.HasIndirect())

	bits := img.IndexBitmap()
	bits.Set(int(n.Indirect)*32+3, false)

	err = fs.CheckInvariants()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "partially allocated")
}

func TestCheckInvariants_DuplicateNameIsReported(t *testing.T) {
	fs := vsfs.New(clock.Fixed(1000))
	root := mustPath(t, "/")
	require.NoError(t, fs.CreateFile(root, "dup.txt"))

	entries, err := fs.List(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	childInum := entries[0].Inum

	img := fs.Image()
	rootInum := img.Superblock().RootInum()

	// Inject a second, colliding raw row directly, bypassing
	// directory.Add's own duplicate-name check.
	inumStr := strconv.FormatUint(uint64(childInum), 10)
	raw := []byte("name,inum\n" +
		"dup.txt," + inumStr + "\n" +
		"dup.txt," + inumStr + "\n")

	engine := rw.New(img, inode.New(img))
	require.NoError(t, engine.WriteStruct(rootInum, raw))

	err = fs.CheckInvariants()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate entry name")
}
