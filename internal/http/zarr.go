package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/JaneliaSciComp/fileglancer-server/internal/filestore"
	"github.com/JaneliaSciComp/fileglancer-server/internal/ozx"
	"github.com/JaneliaSciComp/fileglancer-server/internal/shared/zarr"
)

// GetZarrVersions detects Zarr versions at a path. Directories are
// judged by their children, .ozx archives by their metadata entries.
func (h *Handlers) GetZarrVersions(c *gin.Context) {
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

	if info.IsDir {
		files, err := fs.List(subpath)
		if err != nil {
			h.failFS(c, err)
			return
		}
		entries := make([]string, 0, len(files))
		for _, f := range files {
			entries = append(entries, f.Name)
		}
		c.JSON(http.StatusOK, gin.H{"versions": zarr.DetectVersions(entries)})
		return
	}

	if !ozx.IsOZXFile(info.Name) {
		c.JSON(http.StatusOK, gin.H{"versions": []string{}})
		return
	}
	reader, err := h.openOZX(fs, subpath)
	if err != nil {
		h.failOZX(c, err)
		return
	}
	defer reader.Close()
	c.JSON(http.StatusOK, gin.H{"versions": zarr.DetectOZXVersions(reader.Files(""))})
}

// openOZX opens and indexes an OZX archive inside a share.
func (h *Handlers) openOZX(fs *filestore.Filestore, subpath string) (*ozx.Reader, error) {
	abs, err := fs.Absolute(subpath)
	if err != nil {
		return nil, err
	}
	reader, err := ozx.Open(abs)
	if err != nil {
		return nil, err
	}
	if err := reader.ParseMetadataEntries(); err != nil {
		reader.Close()
		return nil, err
	}
	return reader, nil
}

func (h *Handlers) failOZX(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ozx.ErrInvalidZip):
		fail(c, http.StatusBadRequest, "%v", err)
	case errors.Is(err, ozx.ErrEntryNotFound):
		fail(c, http.StatusNotFound, "%v", err)
	default:
		h.failFS(c, err)
	}
}

// GetOZX lists an OZX archive's entries, or streams one entry when the
// entry query parameter is set. Entry streaming honors Range.
func (h *Handlers) GetOZX(c *gin.Context) {
	fspName := c.Param("fsp")
	fs, err := h.filestoreFor(fspName)
	if err != nil {
		h.failFS(c, err)
		return
	}
	subpath := subpathParam(c)

	reader, err := h.openOZX(fs, subpath)
	if err != nil {
		h.failOZX(c, err)
		return
	}
	defer reader.Close()

	entryName := c.Query("entry")
	if entryName == "" {
		meta := reader.Metadata()
		resp := gin.H{
			"entries": reader.Files(c.Query("prefix")),
			"count":   reader.EntryCount(),
			"zip64":   reader.IsZip64(),
		}
		if meta != nil {
			resp["version"] = meta.Version
			resp["json_first"] = meta.JSONFirst
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	entry, ok := reader.Entry(entryName)
	if !ok {
		fail(c, http.StatusNotFound, "no such entry in archive")
		return
	}
	size := int64(entry.UncompressedSize)

	rng, err := parseRangeHeader(c.GetHeader("Range"), size)
	if err != nil {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", size))
		fail(c, http.StatusRequestedRangeNotSatisfiable, "%v", err)
		return
	}

	c.Header("Accept-Ranges", "bytes")
	if rng != nil {
		c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, rng.End, size))
		c.Header("Content-Length", fmt.Sprintf("%d", rng.Length()))
		c.Status(http.StatusPartialContent)
		h.metrics.RangeRequests.Inc()
		if _, err := reader.WriteRange(c.Writer, entryName, rng.Start, rng.End); err != nil {
			h.log.Error("streaming archive entry range failed",
				zap.String("entry", entryName), zap.Error(err))
			return
		}
		h.metrics.RecordFileServed(fspName, rng.Length())
		return
	}

	rc, err := reader.OpenEntry(entryName)
	if err != nil {
		h.failOZX(c, err)
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, size, contentTypeFor(entryName, nil), rc, nil)
	h.metrics.RecordFileServed(fspName, size)
}
