// Package filestore provides filesystem access rooted at a file share
// mount, with protection against path escapes via traversal or symlinks.
package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JaneliaSciComp/fileglancer-server/internal/config"
	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
)

// RootCheckError reports a path that resolves outside the share root.
type RootCheckError struct {
	Path string
	Root string
}

func (e *RootCheckError) Error() string {
	return fmt.Sprintf("path %s is outside the file share root %s", e.Path, e.Root)
}

// TargetResolver maps an absolute filesystem path back to a known share,
// used to make symlink targets navigable.
type TargetResolver func(absPath string) (fspName, subpath string, ok bool)

// Filestore exposes the contents of one file share.
type Filestore struct {
	fsp     model.FileSharePath
	root    string
	resolve TargetResolver
}

// New creates a Filestore for the share. The mount path has ~ expanded
// and symlinks resolved so that containment checks compare real paths.
func New(fsp model.FileSharePath, resolve TargetResolver) (*Filestore, error) {
	mount := config.ExpandHome(fsp.MountPath)
	abs, err := filepath.Abs(mount)
	if err != nil {
		return nil, fmt.Errorf("resolving mount path %s: %w", mount, err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	return &Filestore{fsp: fsp, root: abs, resolve: resolve}, nil
}

// Root returns the resolved absolute mount path.
func (f *Filestore) Root() string {
	return f.root
}

// FSP returns the share this store serves.
func (f *Filestore) FSP() model.FileSharePath {
	return f.fsp
}

// Absolute resolves a share-relative subpath to an absolute path,
// rejecting anything that escapes the root. The deepest existing
// ancestor is resolved through symlinks so a link inside the share
// cannot smuggle access outside it.
func (f *Filestore) Absolute(subpath string) (string, error) {
	abs := filepath.Join(f.root, filepath.FromSlash(subpath))
	abs = filepath.Clean(abs)
	if !within(f.root, abs) {
		return "", &RootCheckError{Path: abs, Root: f.root}
	}

	parent := filepath.Dir(abs)
	for {
		real, err := filepath.EvalSymlinks(parent)
		if err == nil {
			rel, rerr := filepath.Rel(parent, abs)
			if rerr != nil {
				return "", rerr
			}
			resolved := filepath.Join(real, rel)
			if !within(f.root, resolved) {
				return "", &RootCheckError{Path: resolved, Root: f.root}
			}
			break
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}
	return abs, nil
}

func within(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// Info returns metadata for one path. The root itself has an empty name.
func (f *Filestore) Info(subpath string) (FileInfo, error) {
	abs, err := f.Absolute(subpath)
	if err != nil {
		return FileInfo{}, err
	}
	stat, err := os.Lstat(abs)
	if err != nil {
		return FileInfo{}, err
	}
	return f.fileInfo(subpath, abs, stat), nil
}

// List returns the children of a directory, directories first, each
// group sorted by name. Entries whose metadata cannot be read are
// skipped.
func (f *Filestore) List(subpath string) ([]FileInfo, error) {
	abs, err := f.Absolute(subpath)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}

	infos := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		stat, err := os.Lstat(filepath.Join(abs, entry.Name()))
		if err != nil {
			continue
		}
		rel := entry.Name()
		if subpath != "" {
			rel = subpath + "/" + entry.Name()
		}
		infos = append(infos, f.fileInfo(rel, filepath.Join(abs, entry.Name()), stat))
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].IsDir != infos[j].IsDir {
			return infos[i].IsDir
		}
		return infos[i].Name < infos[j].Name
	})
	return infos, nil
}

// Open opens a file for reading.
func (f *Filestore) Open(subpath string) (*os.File, error) {
	abs, err := f.Absolute(subpath)
	if err != nil {
		return nil, err
	}
	return os.Open(abs)
}

// OpenRange opens a reader over bytes [start, end] of a file.
func (f *Filestore) OpenRange(subpath string, start, end int64) (io.ReadCloser, error) {
	file, err := f.Open(subpath)
	if err != nil {
		return nil, err
	}
	if _, err := file.Seek(start, io.SeekStart); err != nil {
		file.Close()
		return nil, err
	}
	return &rangeReader{file: file, remaining: end - start + 1}, nil
}

type rangeReader struct {
	file      *os.File
	remaining int64
}

func (r *rangeReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.file.Read(p)
	r.remaining -= int64(n)
	return n, err
}

func (r *rangeReader) Close() error {
	return r.file.Close()
}

// Rename moves a file or directory to a new share-relative path.
func (f *Filestore) Rename(subpath, newSubpath string) error {
	from, err := f.Absolute(subpath)
	if err != nil {
		return err
	}
	to, err := f.Absolute(newSubpath)
	if err != nil {
		return err
	}
	return os.Rename(from, to)
}

// Remove deletes a file, or a directory recursively.
func (f *Filestore) Remove(subpath string) error {
	abs, err := f.Absolute(subpath)
	if err != nil {
		return err
	}
	if abs == f.root {
		return &RootCheckError{Path: abs, Root: f.root}
	}
	stat, err := os.Lstat(abs)
	if err != nil {
		return err
	}
	if stat.IsDir() {
		return os.RemoveAll(abs)
	}
	return os.Remove(abs)
}

// CreateDir creates a directory, including missing parents.
func (f *Filestore) CreateDir(subpath string) error {
	abs, err := f.Absolute(subpath)
	if err != nil {
		return err
	}
	if _, serr := os.Lstat(abs); serr == nil {
		return os.ErrExist
	}
	return os.MkdirAll(abs, 0755)
}

// CreateEmptyFile creates a new empty file, failing if it exists.
func (f *Filestore) CreateEmptyFile(subpath string) error {
	abs, err := f.Absolute(subpath)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(abs, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	return file.Close()
}

// Chmod applies a 10-character permission string such as "-rw-r--r--".
func (f *Filestore) Chmod(subpath, permissions string) error {
	abs, err := f.Absolute(subpath)
	if err != nil {
		return err
	}
	mode, err := ParsePermissions(permissions)
	if err != nil {
		return err
	}
	return os.Chmod(abs, mode)
}

// ParsePermissions converts a 10-character mode string to permission bits.
// The leading type character is ignored.
func ParsePermissions(s string) (os.FileMode, error) {
	if len(s) != 10 {
		return 0, fmt.Errorf("invalid permission string %q", s)
	}
	var mode os.FileMode
	for i, ch := range s[1:] {
		if ch == '-' {
			continue
		}
		expected := "rwxrwxrwx"[i]
		if byte(ch) != expected {
			return 0, fmt.Errorf("invalid permission string %q", s)
		}
		mode |= 1 << (8 - i)
	}
	return mode, nil
}
