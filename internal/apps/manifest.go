// Package apps fetches app manifests, validates launch parameters, and
// runs jobs through a local process executor.
package apps

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-retryablehttp"
)

// ManifestName is the manifest filename looked up in app repositories.
const ManifestName = "runnables.yaml"

// Parameter describes one launch parameter of an entry point.
type Parameter struct {
	Key         string   `yaml:"key" json:"key"`
	Name        string   `yaml:"name" json:"name"`
	Type        string   `yaml:"type" json:"type"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Required    bool     `yaml:"required,omitempty" json:"required,omitempty"`
	Default     any      `yaml:"default,omitempty" json:"default,omitempty"`
	Options     []string `yaml:"options,omitempty" json:"options,omitempty"`
	Min         *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max         *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Pattern     string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Flag        string   `yaml:"flag,omitempty" json:"flag,omitempty"`
}

// ResourceDefaults are the default cluster resources of an entry point.
type ResourceDefaults struct {
	CPUs     *int   `yaml:"cpus,omitempty" json:"cpus,omitempty"`
	Memory   string `yaml:"memory,omitempty" json:"memory,omitempty"`
	Walltime string `yaml:"walltime,omitempty" json:"walltime,omitempty"`
}

// EntryPoint is one runnable command within an app.
type EntryPoint struct {
	ID          string            `yaml:"id" json:"id"`
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Command     string            `yaml:"command" json:"command"`
	Parameters  []Parameter       `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Env         map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	PreRun      string            `yaml:"pre_run,omitempty" json:"pre_run,omitempty"`
	PostRun     string            `yaml:"post_run,omitempty" json:"post_run,omitempty"`
	Resources   *ResourceDefaults `yaml:"resources,omitempty" json:"resources,omitempty"`
}

// Manifest describes an app: its runnable entry points and tool
// requirements.
type Manifest struct {
	Name         string       `yaml:"name" json:"name"`
	Description  string       `yaml:"description,omitempty" json:"description,omitempty"`
	Version      string       `yaml:"version,omitempty" json:"version,omitempty"`
	RepoURL      string       `yaml:"repo_url,omitempty" json:"repo_url,omitempty"`
	Requirements []string     `yaml:"requirements,omitempty" json:"requirements,omitempty"`
	Runnables    []EntryPoint `yaml:"runnables" json:"runnables"`
}

// EntryPoint finds a runnable by id.
func (m *Manifest) EntryPoint(id string) (EntryPoint, bool) {
	for _, ep := range m.Runnables {
		if ep.ID == id {
			return ep, true
		}
	}
	return EntryPoint{}, false
}

var githubURLPattern = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+?)(?:\.git)?(?:/tree/([^/]+))?/?$`)

// ParseGitHubURL splits a repository URL into owner, repo, and branch.
// The branch defaults to main. Components containing path separators or
// traversal sequences are rejected.
func ParseGitHubURL(url string) (owner, repo, branch string, err error) {
	m := githubURLPattern.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return "", "", "", fmt.Errorf("not a valid GitHub repository URL: %s", url)
	}
	owner, repo, branch = m[1], m[2], m[3]
	if branch == "" {
		branch = "main"
	}
	for _, part := range []string{owner, repo, branch} {
		if strings.Contains(part, "..") || strings.ContainsAny(part, "/\\") {
			return "", "", "", fmt.Errorf("invalid repository component: %s", part)
		}
	}
	return owner, repo, branch, nil
}

// Fetcher retrieves manifests over HTTP.
type Fetcher struct {
	client *retryablehttp.Client
	// rawBase is the raw content host, overridable in tests.
	rawBase string
}

// NewFetcher creates a manifest fetcher with retrying HTTP transport.
func NewFetcher() *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil
	return &Fetcher{client: client, rawBase: "https://raw.githubusercontent.com"}
}

// Fetch downloads and parses the manifest of a GitHub repository.
// manifestPath selects a subdirectory within the repo.
func (f *Fetcher) Fetch(repoURL, manifestPath string) (*Manifest, error) {
	owner, repo, branch, err := ParseGitHubURL(repoURL)
	if err != nil {
		return nil, err
	}

	parts := []string{f.rawBase, owner, repo, branch}
	if manifestPath != "" {
		cleaned := strings.Trim(manifestPath, "/")
		if strings.Contains(cleaned, "..") {
			return nil, fmt.Errorf("invalid manifest path: %s", manifestPath)
		}
		parts = append(parts, cleaned)
	}
	parts = append(parts, ManifestName)
	url := strings.Join(parts, "/")

	resp, err := f.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("fetching manifest from %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes and validates a manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("manifest has no name")
	}
	if len(m.Runnables) == 0 {
		return nil, fmt.Errorf("manifest %s has no runnables", m.Name)
	}
	for _, ep := range m.Runnables {
		if ep.ID == "" || ep.Command == "" {
			return nil, fmt.Errorf("manifest %s has a runnable without id or command", m.Name)
		}
	}
	return &m, nil
}

var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".pixi":        true,
	".venv":        true,
	"venv":         true,
}

// DiscoverManifests walks a checked-out repository tree and parses
// every manifest file found, keyed by its directory relative to root.
func DiscoverManifests(root string) (map[string]*Manifest, error) {
	var mu sync.Mutex
	found := make(map[string]*Manifest)
	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != ManifestName {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		m, err := ParseManifest(data)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return nil
		}
		if rel == "." {
			rel = ""
		}
		mu.Lock()
		found[filepath.ToSlash(rel)] = m
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}
