package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JaneliaSciComp/fileglancer-server/internal/apps"
	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
	"github.com/JaneliaSciComp/fileglancer-server/internal/store"
)

// GetAppManifest fetches and returns an app manifest by repository URL
func (h *Handlers) GetAppManifest(c *gin.Context) {
	if h.executor == nil {
		fail(c, http.StatusNotImplemented, "app execution is disabled")
		return
	}
	repoURL := c.Query("url")
	if repoURL == "" {
		fail(c, http.StatusBadRequest, "url query parameter is required")
		return
	}
	manifest, err := h.executor.Manifest(repoURL, c.Query("path"))
	if err != nil {
		fail(c, http.StatusBadGateway, "fetching manifest: %v", err)
		return
	}
	c.JSON(http.StatusOK, manifest)
}

// DiscoverAppManifests walks a directory inside a share for manifest
// files, for app repositories already checked out on the file system
func (h *Handlers) DiscoverAppManifests(c *gin.Context) {
	fs, err := h.filestoreFor(c.Param("fsp"))
	if err != nil {
		h.failFS(c, err)
		return
	}
	abs, err := fs.Absolute(subpathParam(c))
	if err != nil {
		h.failFS(c, err)
		return
	}
	manifests, err := apps.DiscoverManifests(abs)
	if err != nil {
		h.failFS(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"manifests": manifests})
}

// SubmitJob validates a submission and starts the job
func (h *Handlers) SubmitJob(c *gin.Context) {
	if h.executor == nil {
		fail(c, http.StatusNotImplemented, "app execution is disabled")
		return
	}
	var req apps.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}
	if req.AppURL == "" || req.EntryPointID == "" {
		fail(c, http.StatusBadRequest, "app_url and entry_point_id are required")
		return
	}

	job, err := h.executor.Submit(c.Request.Context(), currentUsername(c), req)
	if err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}
	h.metrics.RecordJobSubmitted()
	c.JSON(http.StatusCreated, job)
}

// ListJobs lists the user's jobs, newest first
func (h *Handlers) ListJobs(c *gin.Context) {
	jobs, err := h.store.ListJobs(c.Request.Context(), currentUsername(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, "listing jobs: %v", err)
		return
	}
	if jobs == nil {
		jobs = []model.Job{}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// GetJob returns one of the user's jobs
func (h *Handlers) GetJob(c *gin.Context) {
	job, err := h.store.GetJob(c.Request.Context(), currentUsername(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "no such job")
			return
		}
		fail(c, http.StatusInternalServerError, "reading job: %v", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// GetJobFiles reports the script and log files of a job with browse
// locations
func (h *Handlers) GetJobFiles(c *gin.Context) {
	job, err := h.store.GetJob(c.Request.Context(), currentUsername(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "no such job")
			return
		}
		fail(c, http.StatusInternalServerError, "reading job: %v", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": apps.JobFiles(job, h.resolveTarget)})
}

// CancelJob kills a running job
func (h *Handlers) CancelJob(c *gin.Context) {
	if h.executor == nil {
		fail(c, http.StatusNotImplemented, "app execution is disabled")
		return
	}
	job, err := h.executor.Cancel(c.Request.Context(), currentUsername(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "no such job")
			return
		}
		fail(c, http.StatusInternalServerError, "cancelling job: %v", err)
		return
	}
	c.JSON(http.StatusOK, job)
}
