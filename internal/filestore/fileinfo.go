package filestore

import (
	"os"
	"os/user"
	"path"
	"path/filepath"
	"strconv"
	"syscall"
	"time"
)

// SymlinkTarget points a symlink at its resolved location within a
// known share.
type SymlinkTarget struct {
	FSPName string `json:"fsp_name"`
	Path    string `json:"path"`
}

// FileInfo is the metadata served for one file or directory.
type FileInfo struct {
	Name          string         `json:"name"`
	Path          string         `json:"path"`
	Size          int64          `json:"size"`
	IsDir         bool           `json:"is_dir"`
	Permissions   string         `json:"permissions"`
	Owner         string         `json:"owner"`
	Group         string         `json:"group"`
	LastModified  time.Time      `json:"last_modified"`
	HasRead       bool           `json:"has_read"`
	HasWrite      bool           `json:"has_write"`
	IsSymlink     bool           `json:"is_symlink,omitempty"`
	SymlinkTarget *SymlinkTarget `json:"symlink_target,omitempty"`
}

func (f *Filestore) fileInfo(subpath, abs string, stat os.FileInfo) FileInfo {
	info := FileInfo{
		Name:         path.Base(subpath),
		Path:         subpath,
		Size:         stat.Size(),
		IsDir:        stat.IsDir(),
		Permissions:  stat.Mode().String(),
		LastModified: stat.ModTime().UTC(),
		IsSymlink:    stat.Mode()&os.ModeSymlink != 0,
	}
	if subpath == "" {
		info.Name = ""
	}
	if info.IsDir {
		info.Size = 0
	}

	if st, ok := stat.Sys().(*syscall.Stat_t); ok {
		info.Owner = lookupUser(st.Uid)
		info.Group = lookupGroup(st.Gid)
		info.HasRead, info.HasWrite = accessBits(st, stat.Mode())
	}

	if info.IsSymlink && f.resolve != nil {
		if target, err := os.Readlink(abs); err == nil {
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(abs), target)
			}
			if resolved, err := filepath.EvalSymlinks(target); err == nil {
				target = resolved
			}
			if fspName, sub, ok := f.resolve(target); ok {
				info.SymlinkTarget = &SymlinkTarget{FSPName: fspName, Path: sub}
			}
		}
	}
	return info
}

func lookupUser(uid uint32) string {
	if u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10)); err == nil {
		return u.Username
	}
	return strconv.FormatUint(uint64(uid), 10)
}

func lookupGroup(gid uint32) string {
	if g, err := user.LookupGroupId(strconv.FormatUint(uint64(gid), 10)); err == nil {
		return g.Name
	}
	return strconv.FormatUint(uint64(gid), 10)
}

// accessBits reports read and write access for the current process
// user based on ownership, group membership, and other bits.
func accessBits(st *syscall.Stat_t, mode os.FileMode) (read, write bool) {
	perm := mode.Perm()
	uid := uint32(os.Getuid())
	if uid == 0 {
		return true, true
	}
	if st.Uid == uid {
		return perm&0400 != 0, perm&0200 != 0
	}
	if inGroup(st.Gid) {
		return perm&0040 != 0, perm&0020 != 0
	}
	return perm&0004 != 0, perm&0002 != 0
}

func inGroup(gid uint32) bool {
	if uint32(os.Getgid()) == gid {
		return true
	}
	groups, err := os.Getgroups()
	if err != nil {
		return false
	}
	for _, g := range groups {
		if uint32(g) == gid {
			return true
		}
	}
	return false
}

// IsLikelyBinary reports whether a content sample looks like binary
// data: at least 1% control bytes outside the usual text whitespace.
func IsLikelyBinary(sample []byte) bool {
	if len(sample) == 0 {
		return false
	}
	control := 0
	for _, b := range sample {
		if b < 9 || (b > 13 && b < 32) {
			control++
		}
	}
	return float64(control)/float64(len(sample)) >= 0.01
}
