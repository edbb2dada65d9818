// Package model defines the shared API types served by the Fileglancer
// server and persisted in its store.
package model

import "time"

// FileSharePath describes a single browsable file share mount with its
// per-platform path notations.
type FileSharePath struct {
	Name        string `json:"name"`
	Zone        string `json:"zone"`
	Group       string `json:"group,omitempty"`
	Storage     string `json:"storage,omitempty"`
	MountPath   string `json:"mount_path"`
	MacPath     string `json:"mac_path,omitempty"`
	WindowsPath string `json:"windows_path,omitempty"`
	LinuxPath   string `json:"linux_path,omitempty"`
}

// Zone is a logical grouping of file share mounts.
type Zone struct {
	Name           string          `json:"name"`
	FileSharePaths []FileSharePath `json:"file_share_paths"`
}

// ZonesAndPaths maps prefixed keys to zones and shares in one flat
// structure. Keys are "zone_<name>" for Zone values and "fsp_<name>"
// for FileSharePath values.
type ZonesAndPaths map[string]any

// BuildZonesAndPaths folds a share list into the keyed map the UI
// consumes. Shares must already be sorted by zone then name.
func BuildZonesAndPaths(shares []FileSharePath) ZonesAndPaths {
	out := make(ZonesAndPaths, 2*len(shares))
	for _, fsp := range shares {
		key := "zone_" + fsp.Zone
		zone, ok := out[key].(Zone)
		if !ok {
			zone = Zone{Name: fsp.Zone}
		}
		zone.FileSharePaths = append(zone.FileSharePaths, fsp)
		out[key] = zone
		out["fsp_"+fsp.Name] = fsp
	}
	return out
}

// ExternalBucket maps a file share to an externally reachable S3 bucket.
type ExternalBucket struct {
	FSPName      string `json:"fsp_name"`
	FullPath     string `json:"full_path"`
	ExternalURL  string `json:"external_url"`
	RelativePath string `json:"relative_path,omitempty"`
}

// ProxiedPath is a shareable data link to a path within a file share.
type ProxiedPath struct {
	Username    string    `json:"username"`
	SharingKey  string    `json:"sharing_key"`
	SharingName string    `json:"sharing_name"`
	Path        string    `json:"path"`
	FSPName     string    `json:"fsp_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	URL         string    `json:"url,omitempty"`
	BrowseURL   string    `json:"browse_url,omitempty"`
}

// Notification is a banner message shown to all users.
type Notification struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Active    bool       `json:"active"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Preference is a per-user key/value setting with a free-form JSON value.
type Preference struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// NeuroglancerLink is a stored viewer state addressable by a short key.
type NeuroglancerLink struct {
	Username  string    `json:"username"`
	ShortKey  string    `json:"short_key"`
	ShortName string    `json:"short_name,omitempty"`
	Title     string    `json:"title,omitempty"`
	State     string    `json:"-"`
	StateURL  string    `json:"state_url"`
	ViewerURL string    `json:"neuroglancer_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile describes the requesting user.
type Profile struct {
	Username    string   `json:"username"`
	HomeFSPName string   `json:"home_fsp_name,omitempty"`
	HomeSubpath string   `json:"home_subpath,omitempty"`
	Groups      []string `json:"groups"`
}

// SSHKeyInfo describes one managed entry in authorized_keys.
type SSHKeyInfo struct {
	KeyType     string `json:"key_type"`
	Fingerprint string `json:"fingerprint"`
	Comment     string `json:"comment"`
}
