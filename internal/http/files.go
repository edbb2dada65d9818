package http

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/JaneliaSciComp/fileglancer-server/internal/filestore"
)

// subpathParam extracts the subpath from either the wildcard route
// segment or the subpath query parameter.
func subpathParam(c *gin.Context) string {
	if p := c.Param("path"); p != "" {
		return strings.TrimPrefix(p, "/")
	}
	return strings.Trim(c.Query("subpath"), "/")
}

func (h *Handlers) failFS(c *gin.Context, err error) {
	var rootErr *filestore.RootCheckError
	switch {
	case errors.Is(err, errUnknownShare):
		fail(c, http.StatusNotFound, "unknown file share path")
	case errors.As(err, &rootErr):
		fail(c, http.StatusForbidden, "path escapes the file share root")
	case errors.Is(err, fs.ErrNotExist):
		fail(c, http.StatusNotFound, "no such file or directory")
	case errors.Is(err, fs.ErrPermission):
		fail(c, http.StatusForbidden, "permission denied")
	case errors.Is(err, fs.ErrExist):
		fail(c, http.StatusConflict, "file already exists")
	default:
		fail(c, http.StatusInternalServerError, "%v", err)
	}
}

// ListFiles returns metadata for a path: directory children or a single
// file's info
func (h *Handlers) ListFiles(c *gin.Context) {
	fs, err := h.filestoreFor(c.Param("fsp"))
	if err != nil {
		h.failFS(c, err)
		return
	}
	subpath := subpathParam(c)

	info, err := fs.Info(subpath)
	if err != nil {
		h.failFS(c, err)
		return
	}
	if !info.IsDir {
		c.JSON(http.StatusOK, gin.H{"info": info})
		return
	}

	files, err := fs.List(subpath)
	if err != nil {
		h.failFS(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"info": info, "files": files})
}

type createFileRequest struct {
	Type string `json:"type" binding:"required"`
}

// CreateFile creates an empty file or a directory
func (h *Handlers) CreateFile(c *gin.Context) {
	fs, err := h.filestoreFor(c.Param("fsp"))
	if err != nil {
		h.failFS(c, err)
		return
	}
	subpath := subpathParam(c)
	if subpath == "" {
		fail(c, http.StatusBadRequest, "subpath is required")
		return
	}

	var req createFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}

	switch req.Type {
	case "file":
		err = fs.CreateEmptyFile(subpath)
	case "directory":
		err = fs.CreateDir(subpath)
	default:
		fail(c, http.StatusBadRequest, "type must be file or directory")
		return
	}
	if err != nil {
		h.failFS(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

type updateFileRequest struct {
	Permissions string `json:"permissions,omitempty"`
	NewSubpath  string `json:"new_subpath,omitempty"`
}

// UpdateFile changes permissions or renames a path
func (h *Handlers) UpdateFile(c *gin.Context) {
	fs, err := h.filestoreFor(c.Param("fsp"))
	if err != nil {
		h.failFS(c, err)
		return
	}
	subpath := subpathParam(c)

	var req updateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Permissions == "" && req.NewSubpath == "" {
		fail(c, http.StatusBadRequest, "nothing to update")
		return
	}

	if req.Permissions != "" {
		if err := fs.Chmod(subpath, req.Permissions); err != nil {
			h.failFS(c, err)
			return
		}
	}
	if req.NewSubpath != "" {
		if err := fs.Rename(subpath, strings.Trim(req.NewSubpath, "/")); err != nil {
			h.failFS(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

// DeleteFile removes a file or directory tree
func (h *Handlers) DeleteFile(c *gin.Context) {
	fs, err := h.filestoreFor(c.Param("fsp"))
	if err != nil {
		h.failFS(c, err)
		return
	}
	if err := fs.Remove(subpathParam(c)); err != nil {
		h.failFS(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetContent streams file contents with byte-range support. Serves both
// GET and HEAD.
func (h *Handlers) GetContent(c *gin.Context) {
	fspName := c.Param("fsp")
	fs, err := h.filestoreFor(fspName)
	if err != nil {
		h.failFS(c, err)
		return
	}
	h.streamFile(c, fs, fspName, subpathParam(c))
}

// streamFile writes one file's bytes with range support.
func (h *Handlers) streamFile(c *gin.Context, fs *filestore.Filestore, fspName, subpath string) {
	info, err := fs.Info(subpath)
	if err != nil {
		h.failFS(c, err)
		return
	}
	if info.IsDir {
		fail(c, http.StatusBadRequest, "cannot stream a directory")
		return
	}

	c.Header("Accept-Ranges", "bytes")
	c.Header("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))

	rng, err := parseRangeHeader(c.GetHeader("Range"), info.Size)
	if err != nil {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", info.Size))
		fail(c, http.StatusRequestedRangeNotSatisfiable, "%v", err)
		return
	}

	f, err := fs.Open(subpath)
	if err != nil {
		h.failFS(c, err)
		return
	}
	sample := make([]byte, 512)
	n, _ := io.ReadFull(f, sample)
	f.Close()

	ctype := contentTypeFor(info.Name, sample[:n])
	if ctype == "application/octet-stream" {
		if filestore.IsLikelyBinary(sample[:n]) {
			c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name))
		} else {
			// Unrecognized but text-looking content renders inline.
			ctype = "text/plain; charset=utf-8"
		}
	}

	status := http.StatusOK
	start, length := int64(0), info.Size
	if rng != nil {
		status = http.StatusPartialContent
		start, length = rng.Start, rng.Length()
		c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, rng.End, info.Size))
		h.metrics.RangeRequests.Inc()
	}

	if c.Request.Method == http.MethodHead {
		c.Header("Content-Length", fmt.Sprintf("%d", length))
		c.Header("Content-Type", ctype)
		c.Status(status)
		return
	}

	body, err := fs.OpenRange(subpath, start, start+length-1)
	if err != nil {
		h.failFS(c, err)
		return
	}
	defer body.Close()

	h.metrics.RecordFileServed(fspName, length)
	c.DataFromReader(status, length, ctype, body, nil)
	h.log.Debug("served content",
		zap.String("fsp", fspName),
		zap.String("subpath", subpath),
		zap.Int64("bytes", length))
}
