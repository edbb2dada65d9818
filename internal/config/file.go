package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// FileConfig is the on-disk TOML description of the available file
// shares and external buckets.
type FileConfig struct {
	Shares          []ShareMount  `toml:"shares"`
	ExternalBuckets []BucketEntry `toml:"external_buckets"`
}

// ShareMount describes one file share mount. Name is optional; when
// empty a slug of the mount path is used.
type ShareMount struct {
	Name        string `toml:"name"`
	Zone        string `toml:"zone"`
	Group       string `toml:"group"`
	Storage     string `toml:"storage"`
	MountPath   string `toml:"mount_path"`
	MacPath     string `toml:"mac_path"`
	WindowsPath string `toml:"windows_path"`
	LinuxPath   string `toml:"linux_path"`
}

// BucketEntry maps a share to an externally reachable S3 bucket.
type BucketEntry struct {
	FSPName      string `toml:"fsp_name"`
	FullPath     string `toml:"full_path"`
	ExternalURL  string `toml:"external_url"`
	RelativePath string `toml:"relative_path"`
}

// LoadFile parses the TOML mounts file at path.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var fc FileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &fc, nil
}

// LoadFileOrEmpty parses the mounts file, treating a missing or unset
// path as an empty configuration.
func LoadFileOrEmpty(path string) (*FileConfig, error) {
	if path == "" {
		return &FileConfig{}, nil
	}
	fc, err := LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &FileConfig{}, nil
	}
	return fc, err
}
