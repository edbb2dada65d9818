package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
	"github.com/JaneliaSciComp/fileglancer-server/internal/sshkeys"
)

// ListSSHKeys lists managed authorized_keys entries
func (h *Handlers) ListSSHKeys(c *gin.Context) {
	if h.keys == nil {
		fail(c, http.StatusNotImplemented, "ssh key management is disabled")
		return
	}
	keys, err := h.keys.List()
	if err != nil {
		fail(c, http.StatusInternalServerError, "listing keys: %v", err)
		return
	}
	if keys == nil {
		keys = []model.SSHKeyInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// GenerateSSHKey creates a keypair, authorizes the public half, and
// returns the private key. The private key is never stored.
func (h *Handlers) GenerateSSHKey(c *gin.Context) {
	if h.keys == nil {
		fail(c, http.StatusNotImplemented, "ssh key management is disabled")
		return
	}
	key, err := h.keys.Generate()
	if err != nil {
		fail(c, http.StatusInternalServerError, "generating key: %v", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"key":         key.Info,
		"private_key": string(key.PrivateKey),
	})
	key.Wipe()
}

// DeleteSSHKey removes a managed key by fingerprint
func (h *Handlers) DeleteSSHKey(c *gin.Context) {
	if h.keys == nil {
		fail(c, http.StatusNotImplemented, "ssh key management is disabled")
		return
	}
	if err := h.keys.Remove(c.Param("fingerprint")); err != nil {
		if errors.Is(err, sshkeys.ErrKeyNotFound) {
			fail(c, http.StatusNotFound, "no such key")
			return
		}
		fail(c, http.StatusInternalServerError, "removing key: %v", err)
		return
	}
	c.Status(http.StatusNoContent)
}
