package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
	"github.com/JaneliaSciComp/fileglancer-server/internal/neuroglancer"
	"github.com/JaneliaSciComp/fileglancer-server/internal/store"
)

// ShortenNeuroglancerLink stores a viewer state under a short key
func (h *Handlers) ShortenNeuroglancerLink(c *gin.Context) {
	var req neuroglancer.ShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}
	link, err := h.links.Shorten(c.Request.Context(), currentUsername(c), req)
	if err != nil {
		if errors.Is(err, neuroglancer.ErrBadState) {
			fail(c, http.StatusBadRequest, "%v", err)
			return
		}
		if errors.Is(err, store.ErrConflict) {
			fail(c, http.StatusConflict, "short name already in use")
			return
		}
		fail(c, http.StatusInternalServerError, "shortening link: %v", err)
		return
	}
	h.metrics.LinksShortened.Inc()
	c.JSON(http.StatusCreated, link)
}

// GetNeuroglancerState serves the stored state JSON for a short key.
// This is the URL neuroglancer itself fetches, so it is public.
func (h *Handlers) GetNeuroglancerState(c *gin.Context) {
	link, err := h.links.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "no such link")
			return
		}
		fail(c, http.StatusInternalServerError, "reading link: %v", err)
		return
	}
	c.Data(http.StatusOK, "application/json", []byte(link.State))
}

// ListNeuroglancerLinks lists the user's short links
func (h *Handlers) ListNeuroglancerLinks(c *gin.Context) {
	links, err := h.links.List(c.Request.Context(), currentUsername(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, "listing links: %v", err)
		return
	}
	if links == nil {
		links = []model.NeuroglancerLink{}
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

// UpdateNeuroglancerLink replaces the state of an existing link
func (h *Handlers) UpdateNeuroglancerLink(c *gin.Context) {
	var req neuroglancer.ShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}
	link, err := h.links.Update(c.Request.Context(), currentUsername(c), c.Param("key"), req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "no such link")
			return
		}
		if errors.Is(err, neuroglancer.ErrBadState) {
			fail(c, http.StatusBadRequest, "%v", err)
			return
		}
		if errors.Is(err, store.ErrConflict) {
			fail(c, http.StatusConflict, "short name already in use")
			return
		}
		fail(c, http.StatusInternalServerError, "updating link: %v", err)
		return
	}
	c.JSON(http.StatusOK, link)
}

// DeleteNeuroglancerLink removes one of the user's links
func (h *Handlers) DeleteNeuroglancerLink(c *gin.Context) {
	err := h.links.Delete(c.Request.Context(), currentUsername(c), c.Param("key"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "no such link")
			return
		}
		fail(c, http.StatusInternalServerError, "deleting link: %v", err)
		return
	}
	c.Status(http.StatusNoContent)
}
