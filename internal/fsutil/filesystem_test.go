package fsutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fs := OSFileSystem{}

	assert.True(t, fs.Exists("filesystem.go"))
	assert.False(t, fs.Exists("nonexistent_file_xyz.go"))
}

func TestOSFileSystem_TempFileOperations(t *testing.T) {
	fs := OSFileSystem{}
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b")

	require.NoError(t, fs.MkdirAll(nested, 0755))
	require.NoError(t, fs.WriteFile(filepath.Join(nested, "2.pcd"), []byte("two"), 0644))
	require.NoError(t, fs.WriteFile(filepath.Join(nested, "1.pcd"), []byte("one"), 0644))

	entries, err := fs.ReadDir(nested)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "1.pcd", entries[0].Name())
	assert.Equal(t, "2.pcd", entries[1].Name())

	data, err := fs.ReadFile(filepath.Join(nested, "1.pcd"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	info, err := fs.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	require.NoError(t, mfs.WriteFile("/test.txt", []byte("hello, world"), 0644))

	data, err := mfs.ReadFile("/test.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(data))
}

func TestMemoryFileSystem_ReadReturnsCopy(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/copy.bin", []byte{1, 2, 3}, 0644))

	data, err := mfs.ReadFile("/copy.bin")
	require.NoError(t, err)
	data[0] = 9

	again, err := mfs.ReadFile("/copy.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, again)
}

func TestMemoryFileSystem_ReadNonExistent(t *testing.T) {
	mfs := NewMemoryFileSystem()

	_, err := mfs.ReadFile("/missing.txt")
	assert.Error(t, err)
}

func TestMemoryFileSystem_WriteCreatesParents(t *testing.T) {
	mfs := NewMemoryFileSystem()

	require.NoError(t, mfs.WriteFile("/data/lidar/s1/team/scene/100.pcd", []byte("x"), 0644))

	for _, dir := range []string{"/data", "/data/lidar", "/data/lidar/s1/team/scene"} {
		info, err := mfs.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}
}

func TestMemoryFileSystem_ReadDir(t *testing.T) {
	mfs := NewMemoryFileSystem()

	require.NoError(t, mfs.WriteFile("/radar/900.pcd", []byte("c"), 0644))
	require.NoError(t, mfs.WriteFile("/radar/100.pcd", []byte("a"), 0644))
	require.NoError(t, mfs.WriteFile("/radar/nested/500.pcd", []byte("b"), 0644))

	entries, err := mfs.ReadDir("/radar")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"100.pcd", "900.pcd", "nested"}, names)
	assert.True(t, entries[2].IsDir())
	assert.False(t, entries[0].IsDir())
}

func TestMemoryFileSystem_ReadDirMissing(t *testing.T) {
	mfs := NewMemoryFileSystem()

	_, err := mfs.ReadDir("/nowhere")
	assert.Error(t, err)
}

func TestMemoryFileSystem_Stat(t *testing.T) {
	mfs := NewMemoryFileSystem()

	require.NoError(t, mfs.WriteFile("/stattest.txt", []byte("stat content"), 0644))

	info, err := mfs.Stat("/stattest.txt")
	require.NoError(t, err)
	assert.Equal(t, "stattest.txt", info.Name())
	assert.Equal(t, int64(len("stat content")), info.Size())
	assert.False(t, info.IsDir())

	_, err = mfs.Stat("/nonexistent.txt")
	assert.Error(t, err)
}

func TestMemoryFileSystem_MkdirAll(t *testing.T) {
	mfs := NewMemoryFileSystem()

	require.NoError(t, mfs.MkdirAll("/a/b/c", 0755))

	assert.True(t, mfs.Exists("/a/b/c"))
	assert.True(t, mfs.Exists("/a/b"))
	assert.True(t, mfs.Exists("/a"))

	entries, err := mfs.ReadDir("/a/b/c")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemoryFileSystem_PathCleaning(t *testing.T) {
	mfs := NewMemoryFileSystem()

	require.NoError(t, mfs.WriteFile("./dirty/../clean.txt", []byte("clean"), 0644))

	data, err := mfs.ReadFile("clean.txt")
	require.NoError(t, err)
	assert.Equal(t, "clean", string(data))
}

func TestMemoryFileSystem_Files(t *testing.T) {
	mfs := NewMemoryFileSystem()

	require.NoError(t, mfs.WriteFile("/b.txt", nil, 0644))
	require.NoError(t, mfs.WriteFile("/a/c.txt", nil, 0644))
	require.NoError(t, mfs.MkdirAll("/empty", 0755))

	assert.Equal(t, []string{"/a/c.txt", "/b.txt"}, mfs.Files())
}
