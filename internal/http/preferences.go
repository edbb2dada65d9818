package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JaneliaSciComp/fileglancer-server/internal/store"
)

// ListPreferences returns all preferences of the requesting user
func (h *Handlers) ListPreferences(c *gin.Context) {
	prefs, err := h.store.ListPreferences(c.Request.Context(), currentUsername(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, "listing preferences: %v", err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// GetPreference returns one preference value
func (h *Handlers) GetPreference(c *gin.Context) {
	value, err := h.store.GetPreference(c.Request.Context(), currentUsername(c), c.Param("key"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "no such preference")
			return
		}
		fail(c, http.StatusInternalServerError, "reading preference: %v", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": c.Param("key"), "value": value})
}

type setPreferenceRequest struct {
	Value any `json:"value"`
}

// SetPreference creates or replaces one preference value
func (h *Handlers) SetPreference(c *gin.Context) {
	var req setPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}
	if err := h.store.SetPreference(c.Request.Context(), currentUsername(c), c.Param("key"), req.Value); err != nil {
		fail(c, http.StatusInternalServerError, "saving preference: %v", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeletePreference removes one preference
func (h *Handlers) DeletePreference(c *gin.Context) {
	err := h.store.DeletePreference(c.Request.Context(), currentUsername(c), c.Param("key"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "no such preference")
			return
		}
		fail(c, http.StatusInternalServerError, "deleting preference: %v", err)
		return
	}
	c.Status(http.StatusNoContent)
}
