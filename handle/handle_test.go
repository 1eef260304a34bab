package handle_test

import (
	"testing"

	"github.com/dargueta/vsfs/handle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFile_SetsWriteBitImmediately(t *testing.T) {
	m := handle.New()
	assert.True(t, m.CanWrite("/a"))

	m.OpenFile(1, "/a", handle.Write)
	assert.False(t, m.CanWrite("/a"))
}

func TestOpenFile_ReturnsDistinctIncreasingIDs(t *testing.T) {
	m := handle.New()
	first := m.OpenFile(1, "/a", handle.Read)
	second := m.OpenFile(1, "/a", handle.Read)
	assert.NotEqual(t, first, second)
	assert.Greater(t, second, first)
}

func TestTwoWritersExcluded(t *testing.T) {
	m := handle.New()
	m.OpenFile(1, "/a", handle.Write)
	assert.False(t, m.CanWrite("/a"))

	// A second writer sees the summary already reflects the first.
	assert.False(t, m.CanWrite("/a"))
}

func TestClose_RebuildsSummaryFromSurvivors(t *testing.T) {
	m := handle.New()
	writer := m.OpenFile(1, "/a", handle.Write)
	m.OpenFile(2, "/a", handle.Read)
	assert.False(t, m.CanWrite("/a"))

	require.NoError(t, m.CloseFile(writer))
	assert.True(t, m.CanWrite("/a"))
	assert.True(t, m.IsFileOpen(2, "/a", handle.Read))
}

func TestCloseFile_OnlyClosesTheAddressedHandle(t *testing.T) {
	m := handle.New()
	first := m.OpenFile(1, "/a", handle.Read)
	m.OpenFile(1, "/a", handle.Read)

	require.NoError(t, m.CloseFile(first))

	info, ok := m.FileInfo(first)
	require.True(t, ok)
	assert.True(t, info.Closed)
	assert.True(t, m.IsFileOpen(1, "/a", handle.Read), "the second handle on the same path must still be open")
}

func TestCloseFile_TwiceFails(t *testing.T) {
	m := handle.New()
	id := m.OpenFile(1, "/a", handle.Write)
	require.NoError(t, m.CloseFile(id))
	assert.Error(t, m.CloseFile(id))
}

func TestCloseFile_UnknownIDFails(t *testing.T) {
	m := handle.New()
	assert.Error(t, m.CloseFile(handle.ID(999)))
}

func TestCloseFile_DoesNotAffectOtherPaths(t *testing.T) {
	m := handle.New()
	a := m.OpenFile(1, "/a", handle.Write)
	m.OpenFile(1, "/b", handle.Write)

	require.NoError(t, m.CloseFile(a))
	assert.True(t, m.CanWrite("/a"))
	assert.False(t, m.CanWrite("/b"))
}

func TestDirectoryHandles(t *testing.T) {
	m := handle.New()
	assert.False(t, m.IsDirectoryOpen(1, "/dir"))

	id := m.OpenDirectory(1, "/dir")
	assert.True(t, m.IsDirectoryOpen(1, "/dir"))

	require.NoError(t, m.CloseDirectory(id))
	assert.False(t, m.IsDirectoryOpen(1, "/dir"))
}

func TestReadWriteMode_SetsBothBits(t *testing.T) {
	m := handle.New()
	id := m.OpenFile(1, "/a", handle.ReadWrite)
	assert.False(t, m.CanWrite("/a"))

	require.NoError(t, m.CloseFile(id))
	assert.True(t, m.CanWrite("/a"))
}

func TestAdvance_MovesPosition(t *testing.T) {
	m := handle.New()
	id := m.OpenFile(1, "/a", handle.Write)

	info, ok := m.FileInfo(id)
	require.True(t, ok)
	assert.EqualValues(t, 0, info.Position)

	m.Advance(id, 10)
	m.Advance(id, 5)

	info, ok = m.FileInfo(id)
	require.True(t, ok)
	assert.EqualValues(t, 15, info.Position)
}

func TestSeek_SetsPositionDirectly(t *testing.T) {
	m := handle.New()
	id := m.OpenFile(1, "/a", handle.Read)
	m.Seek(id, 42)

	info, ok := m.FileInfo(id)
	require.True(t, ok)
	assert.EqualValues(t, 42, info.Position)
}
