package http

import (
	"errors"
	"net/http"
	"os/user"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/JaneliaSciComp/fileglancer-server/internal/apps"
	"github.com/JaneliaSciComp/fileglancer-server/internal/config"
	"github.com/JaneliaSciComp/fileglancer-server/internal/filestore"
	"github.com/JaneliaSciComp/fileglancer-server/internal/logging"
	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
	"github.com/JaneliaSciComp/fileglancer-server/internal/monitoring"
	"github.com/JaneliaSciComp/fileglancer-server/internal/neuroglancer"
	"github.com/JaneliaSciComp/fileglancer-server/internal/notify"
	"github.com/JaneliaSciComp/fileglancer-server/internal/shares"
	"github.com/JaneliaSciComp/fileglancer-server/internal/sshkeys"
	"github.com/JaneliaSciComp/fileglancer-server/internal/store"
)

// Version is the served API version.
const Version = "1.0.0"

var errUnknownShare = errors.New("unknown file share path")

// Handlers contains all HTTP handlers
type Handlers struct {
	cfg      *config.Config
	log      *logging.Logger
	registry *shares.Registry
	store    *store.Store
	notify   *notify.Source
	links    *neuroglancer.Service
	keys     *sshkeys.Manager
	executor *apps.Executor
	metrics  *monitoring.Metrics

	mu         sync.Mutex
	filestores map[string]*filestore.Filestore
}

// NewHandlers creates a new handler set
func NewHandlers(
	cfg *config.Config,
	log *logging.Logger,
	registry *shares.Registry,
	st *store.Store,
	notifySource *notify.Source,
	links *neuroglancer.Service,
	keys *sshkeys.Manager,
	executor *apps.Executor,
	metrics *monitoring.Metrics,
) *Handlers {
	return &Handlers{
		cfg:        cfg,
		log:        log,
		registry:   registry,
		store:      st,
		notify:     notifySource,
		links:      links,
		keys:       keys,
		executor:   executor,
		metrics:    metrics,
		filestores: make(map[string]*filestore.Filestore),
	}
}

// filestoreFor returns a filestore rooted at the named share, creating
// and caching it on first use.
func (h *Handlers) filestoreFor(fspName string) (*filestore.Filestore, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if fs, ok := h.filestores[fspName]; ok {
		return fs, nil
	}
	fsp, ok := h.registry.Get(fspName)
	if !ok {
		return nil, errUnknownShare
	}
	fs, err := filestore.New(fsp, h.resolveTarget)
	if err != nil {
		return nil, err
	}
	h.filestores[fspName] = fs
	return fs, nil
}

// resolveTarget maps an absolute path back to a known share.
func (h *Handlers) resolveTarget(absPath string) (string, string, bool) {
	match, err := h.registry.Resolve(absPath)
	if err != nil {
		return "", "", false
	}
	return match.FSP.Name, match.Subpath, true
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "fileglancer-server",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"shares": len(h.registry.All()),
		"store":  gin.H{"connected": h.store != nil},
	})
}

// GetVersion reports the API version
func (h *Handlers) GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": Version})
}

// GetProfile reports the requesting user with home share and groups
func (h *Handlers) GetProfile(c *gin.Context) {
	username := currentUsername(c)
	profile := model.Profile{Username: username, Groups: []string{}}

	if u, err := user.Lookup(username); err == nil {
		if ids, err := u.GroupIds(); err == nil {
			for _, gid := range ids {
				if g, err := user.LookupGroupId(gid); err == nil {
					profile.Groups = append(profile.Groups, g.Name)
				}
			}
		}
		if match, err := h.registry.Resolve(u.HomeDir); err == nil {
			profile.HomeFSPName = match.FSP.Name
			profile.HomeSubpath = match.Subpath
		}
	}

	c.JSON(http.StatusOK, profile)
}

// ListFileSharePaths lists all configured shares, optionally as the
// zone-keyed map when ?zones=true
func (h *Handlers) ListFileSharePaths(c *gin.Context) {
	all := h.registry.All()
	if c.Query("zones") == "true" {
		c.JSON(http.StatusOK, gin.H{"zones_and_paths": model.BuildZonesAndPaths(all)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"paths": all})
}

// ListExternalBuckets lists external bucket mappings, optionally
// filtered by share name
func (h *Handlers) ListExternalBuckets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"buckets": h.registry.Buckets(c.Param("fsp"))})
}

// ListNotifications returns active, unexpired notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	notifications, err := h.notify.Active()
	if err != nil {
		fail(c, http.StatusInternalServerError, "reading notifications: %v", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}
