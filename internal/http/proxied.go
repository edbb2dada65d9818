package http

import (
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
	"github.com/JaneliaSciComp/fileglancer-server/internal/shared/fgpath"
	"github.com/JaneliaSciComp/fileglancer-server/internal/store"
)

type createProxiedPathRequest struct {
	FSPName string `json:"fsp_name" binding:"required"`
	Path    string `json:"path"`
}

// decorateProxiedPath fills in the public URL when an external proxy
// base is configured, plus the internal browse route for the shared
// folder.
func (h *Handlers) decorateProxiedPath(pp model.ProxiedPath) model.ProxiedPath {
	if base := h.cfg.Proxy.ExternalURL; base != "" {
		pp.URL = strings.TrimRight(base, "/") + "/" + pp.SharingKey + "/" + url.PathEscape(pp.SharingName)
	}
	pp.BrowseURL = fgpath.MakeBrowseLink(pp.FSPName, pp.Path)
	return pp
}

// CreateProxiedPath creates a shareable data link for a path
func (h *Handlers) CreateProxiedPath(c *gin.Context) {
	var req createProxiedPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}
	if _, ok := h.registry.Get(req.FSPName); !ok {
		fail(c, http.StatusNotFound, "unknown file share path")
		return
	}

	subpath := strings.Trim(req.Path, "/")
	sharingName := path.Base(subpath)
	if sharingName == "." || sharingName == "" {
		sharingName = req.FSPName
	}

	now := time.Now().UTC()
	pp := model.ProxiedPath{
		Username:    currentUsername(c),
		SharingKey:  uuid.NewString(),
		SharingName: sharingName,
		Path:        subpath,
		FSPName:     req.FSPName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.CreateProxiedPath(c.Request.Context(), pp); err != nil {
		if errors.Is(err, store.ErrConflict) {
			fail(c, http.StatusConflict, "a data link for this path already exists")
			return
		}
		fail(c, http.StatusInternalServerError, "creating data link: %v", err)
		return
	}
	c.JSON(http.StatusCreated, h.decorateProxiedPath(pp))
}

// ListProxiedPaths lists the user's data links, filterable by share and
// path
func (h *Handlers) ListProxiedPaths(c *gin.Context) {
	paths, err := h.store.ListProxiedPaths(c.Request.Context(), currentUsername(c),
		c.Query("fsp_name"), strings.Trim(c.Query("path"), "/"))
	if err != nil {
		fail(c, http.StatusInternalServerError, "listing data links: %v", err)
		return
	}
	out := make([]model.ProxiedPath, 0, len(paths))
	for _, pp := range paths {
		out = append(out, h.decorateProxiedPath(pp))
	}
	c.JSON(http.StatusOK, gin.H{"paths": out})
}

// GetProxiedPath returns one of the user's data links
func (h *Handlers) GetProxiedPath(c *gin.Context) {
	pp, err := h.store.GetProxiedPath(c.Request.Context(), currentUsername(c), c.Param("key"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "no such data link")
			return
		}
		fail(c, http.StatusInternalServerError, "reading data link: %v", err)
		return
	}
	c.JSON(http.StatusOK, h.decorateProxiedPath(pp))
}

type updateProxiedPathRequest struct {
	SharingName *string `json:"sharing_name,omitempty"`
	FSPName     *string `json:"fsp_name,omitempty"`
	Path        *string `json:"path,omitempty"`
}

// UpdateProxiedPath renames or repoints a data link
func (h *Handlers) UpdateProxiedPath(c *gin.Context) {
	var req updateProxiedPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}
	pp, err := h.store.UpdateProxiedPath(c.Request.Context(), currentUsername(c), c.Param("key"),
		req.SharingName, req.FSPName, req.Path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "no such data link")
			return
		}
		fail(c, http.StatusInternalServerError, "updating data link: %v", err)
		return
	}
	c.JSON(http.StatusOK, h.decorateProxiedPath(pp))
}

// DeleteProxiedPath removes a data link
func (h *Handlers) DeleteProxiedPath(c *gin.Context) {
	err := h.store.DeleteProxiedPath(c.Request.Context(), currentUsername(c), c.Param("key"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "no such data link")
			return
		}
		fail(c, http.StatusInternalServerError, "deleting data link: %v", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ProxiedContent serves shared data publicly by sharing key. Directory
// paths return a listing, files stream with range support.
func (h *Handlers) ProxiedContent(c *gin.Context) {
	pp, err := h.store.FindProxiedPathByKey(c.Request.Context(), c.Param("key"))
	if err != nil {
		fail(c, http.StatusNotFound, "no such data link")
		return
	}
	fs, err := h.filestoreFor(pp.FSPName)
	if err != nil {
		h.failFS(c, err)
		return
	}

	subpath := fgpath.Join(pp.Path, strings.TrimPrefix(c.Param("path"), "/"))
	info, err := fs.Info(subpath)
	if err != nil {
		h.failFS(c, err)
		return
	}
	h.metrics.ProxiedFetches.Inc()

	if info.IsDir {
		files, err := fs.List(subpath)
		if err != nil {
			h.failFS(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"info": info, "files": files})
		return
	}
	h.streamFile(c, fs, pp.FSPName, subpath)
}
