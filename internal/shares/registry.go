// Package shares maintains the registry of browsable file share paths.
package shares

import (
	"os"
	"sort"

	"github.com/JaneliaSciComp/fileglancer-server/internal/config"
	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
	"github.com/JaneliaSciComp/fileglancer-server/internal/shared/fgpath"
)

// Registry is a read-only snapshot of the configured file shares.
type Registry struct {
	list    []model.FileSharePath
	byName  map[string]model.FileSharePath
	buckets map[string][]model.ExternalBucket
}

// NewRegistry builds a registry from explicit share records.
func NewRegistry(shares []model.FileSharePath) *Registry {
	r := &Registry{
		list:    shares,
		byName:  make(map[string]model.FileSharePath, len(shares)),
		buckets: make(map[string][]model.ExternalBucket),
	}
	for _, fsp := range shares {
		r.byName[fsp.Name] = fsp
	}
	return r
}

// FromConfig builds a registry from the TOML mounts file, optionally
// adding the current user's home directory as an implicit share.
func FromConfig(fc *config.FileConfig, homeShare bool) *Registry {
	shares := make([]model.FileSharePath, 0, len(fc.Shares)+1)
	for _, m := range fc.Shares {
		if m.MountPath == "" {
			continue
		}
		fsp := model.FileSharePath{
			Name:        m.Name,
			Zone:        m.Zone,
			Group:       m.Group,
			Storage:     m.Storage,
			MountPath:   config.ExpandHome(m.MountPath),
			MacPath:     m.MacPath,
			WindowsPath: m.WindowsPath,
			LinuxPath:   m.LinuxPath,
		}
		if fsp.Name == "" {
			fsp.Name = fgpath.Slugify(m.MountPath)
		}
		if fsp.Zone == "" {
			fsp.Zone = "Local"
		}
		if fsp.LinuxPath == "" {
			fsp.LinuxPath = fsp.MountPath
		}
		shares = append(shares, fsp)
	}
	if homeShare {
		if home, err := os.UserHomeDir(); err == nil {
			shares = append(shares, model.FileSharePath{
				Name:      fgpath.Slugify(home),
				Zone:      "Home",
				MountPath: home,
				LinuxPath: home,
			})
		}
	}

	r := NewRegistry(shares)
	for _, b := range fc.ExternalBuckets {
		bucket := model.ExternalBucket{
			FSPName:      b.FSPName,
			FullPath:     b.FullPath,
			ExternalURL:  b.ExternalURL,
			RelativePath: b.RelativePath,
		}
		r.buckets[b.FSPName] = append(r.buckets[b.FSPName], bucket)
	}
	return r
}

// All returns every share, sorted by zone then name.
func (r *Registry) All() []model.FileSharePath {
	out := make([]model.FileSharePath, len(r.list))
	copy(out, r.list)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Zone != out[j].Zone {
			return out[i].Zone < out[j].Zone
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Get looks up a share by name.
func (r *Registry) Get(name string) (model.FileSharePath, bool) {
	fsp, ok := r.byName[name]
	return fsp, ok
}

// Resolve matches a free-text path against the registry.
func (r *Registry) Resolve(input string) (fgpath.Match, error) {
	return fgpath.Resolve(input, r.list)
}

// Buckets returns the external buckets for a share, or all buckets when
// fspName is empty.
func (r *Registry) Buckets(fspName string) []model.ExternalBucket {
	if fspName != "" {
		return r.buckets[fspName]
	}
	var all []model.ExternalBucket
	names := make([]string, 0, len(r.buckets))
	for name := range r.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		all = append(all, r.buckets[name]...)
	}
	return all
}
