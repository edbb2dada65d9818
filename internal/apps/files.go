package apps

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
)

// JobFile describes one file produced by a job, with an optional browse
// location when the file lives inside a known share.
type JobFile struct {
	Path    string `json:"path"`
	Exists  bool   `json:"exists"`
	FSPName string `json:"fsp_name,omitempty"`
	Subpath string `json:"subpath,omitempty"`
}

// BrowseResolver maps an absolute path to a share name and subpath.
type BrowseResolver func(absPath string) (fspName, subpath string, ok bool)

// JobFiles returns the script, stdout, and stderr files of a job.
func JobFiles(job model.Job, resolve BrowseResolver) map[string]JobFile {
	files := map[string]JobFile{
		"stdout": makeJobFile(filepath.Join(job.WorkDir, "stdout.log"), resolve),
		"stderr": makeJobFile(filepath.Join(job.WorkDir, "stderr.log"), resolve),
	}

	scripts, err := doublestar.FilepathGlob(filepath.Join(job.WorkDir, "*.sh"))
	if err == nil && len(scripts) > 0 {
		sort.Strings(scripts)
		files["script"] = makeJobFile(scripts[0], resolve)
	} else {
		files["script"] = makeJobFile(filepath.Join(job.WorkDir, "run.sh"), resolve)
	}
	return files
}

func makeJobFile(path string, resolve BrowseResolver) JobFile {
	jf := JobFile{Path: path}
	if _, err := os.Stat(path); err == nil {
		jf.Exists = true
	}
	if resolve != nil {
		if fsp, sub, ok := resolve(path); ok {
			jf.FSPName = fsp
			jf.Subpath = sub
		}
	}
	return jf
}
