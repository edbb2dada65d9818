package filestore

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Filestore, string) {
	t.Helper()
	root := t.TempDir()
	fs, err := New(model.FileSharePath{Name: "test", MountPath: root}, nil)
	require.NoError(t, err)
	return fs, fs.Root()
}

func TestAbsoluteRejectsTraversal(t *testing.T) {
	fs, _ := newTestStore(t)

	for _, input := range []string{
		"../outside",
		"../../etc/passwd",
		"a/../../outside",
		"a/b/../../../outside",
	} {
		_, err := fs.Absolute(input)
		var rce *RootCheckError
		assert.ErrorAs(t, err, &rce, "input %q must not resolve", input)
	}
}

func TestAbsoluteRejectsSymlinkEscape(t *testing.T) {
	fs, root := newTestStore(t)
	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	_, err := fs.Absolute("escape/secret.txt")
	var rce *RootCheckError
	assert.ErrorAs(t, err, &rce)
}

func TestAbsoluteAllowsNormalPaths(t *testing.T) {
	fs, root := newTestStore(t)

	abs, err := fs.Absolute("a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", "b", "c.txt"), abs)

	abs, err = fs.Absolute("")
	require.NoError(t, err)
	assert.Equal(t, root, abs)
}

func TestListSortsDirsFirst(t *testing.T) {
	fs, root := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "zdir"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "adir"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "afile.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "zfile.txt"), []byte("x"), 0644))

	infos, err := fs.List("")
	require.NoError(t, err)
	require.Len(t, infos, 4)
	names := []string{infos[0].Name, infos[1].Name, infos[2].Name, infos[3].Name}
	assert.Equal(t, []string{"adir", "zdir", "afile.txt", "zfile.txt"}, names)
	assert.True(t, infos[0].IsDir)
	assert.False(t, infos[2].IsDir)
}

func TestInfoRoot(t *testing.T) {
	fs, _ := newTestStore(t)
	info, err := fs.Info("")
	require.NoError(t, err)
	assert.Equal(t, "", info.Name)
	assert.True(t, info.IsDir)
	assert.Zero(t, info.Size)
	assert.NotEmpty(t, info.Owner)
}

func TestOpenRange(t *testing.T) {
	fs, root := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "data.txt"), []byte("0123456789"), 0644))

	r, err := fs.OpenRange("data.txt", 2, 5)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "2345", string(data))
}

func TestMutations(t *testing.T) {
	fs, root := newTestStore(t)

	require.NoError(t, fs.CreateDir("sub/dir"))
	require.NoError(t, fs.CreateEmptyFile("sub/dir/file.txt"))
	assert.Error(t, fs.CreateEmptyFile("sub/dir/file.txt"))
	assert.ErrorIs(t, fs.CreateDir("sub/dir"), os.ErrExist)

	require.NoError(t, fs.Rename("sub/dir/file.txt", "sub/dir/renamed.txt"))
	_, err := os.Stat(filepath.Join(root, "sub", "dir", "renamed.txt"))
	require.NoError(t, err)

	require.NoError(t, fs.Chmod("sub/dir/renamed.txt", "-rw-rw-r--"))
	stat, err := os.Stat(filepath.Join(root, "sub", "dir", "renamed.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0664), stat.Mode().Perm())

	require.NoError(t, fs.Remove("sub"))
	_, err = os.Stat(filepath.Join(root, "sub"))
	assert.True(t, os.IsNotExist(err))

	// The root itself is never removable.
	assert.Error(t, fs.Remove(""))
}

func TestParsePermissions(t *testing.T) {
	mode, err := ParsePermissions("-rw-r--r--")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), mode)

	mode, err = ParsePermissions("drwxr-xr-x")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), mode)

	_, err = ParsePermissions("rw-r--r--")
	assert.Error(t, err)
	_, err = ParsePermissions("-rw-r--rw")
	assert.Error(t, err)
}

func TestSymlinkTargetResolution(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(other, "proj"), 0755))

	resolver := func(abs string) (string, string, bool) {
		rel, err := filepath.Rel(other, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			return "", "", false
		}
		return "other", filepath.ToSlash(rel), true
	}
	fs, err := New(model.FileSharePath{Name: "test", MountPath: root}, resolver)
	require.NoError(t, err)

	require.NoError(t, os.Symlink(filepath.Join(other, "proj"), filepath.Join(root, "link")))
	infos, err := fs.List("")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.True(t, infos[0].IsSymlink)
	require.NotNil(t, infos[0].SymlinkTarget)
	assert.Equal(t, "other", infos[0].SymlinkTarget.FSPName)
	assert.Equal(t, "proj", infos[0].SymlinkTarget.Path)
}

func TestIsLikelyBinary(t *testing.T) {
	assert.False(t, IsLikelyBinary([]byte("plain text\nwith lines\tand tabs\r\n")))
	assert.False(t, IsLikelyBinary(nil))
	assert.True(t, IsLikelyBinary([]byte{0x00, 0x01, 0x02, 'a', 'b', 'c'}))

	// Below the 1% threshold stays text.
	sample := make([]byte, 200)
	for i := range sample {
		sample[i] = 'a'
	}
	sample[0] = 0x00
	assert.False(t, IsLikelyBinary(sample))
	sample[1] = 0x00
	assert.True(t, IsLikelyBinary(sample))
}
