package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/JaneliaSciComp/fileglancer-server/internal/apps"
	"github.com/JaneliaSciComp/fileglancer-server/internal/config"
	"github.com/JaneliaSciComp/fileglancer-server/internal/http"
	"github.com/JaneliaSciComp/fileglancer-server/internal/logging"
	"github.com/JaneliaSciComp/fileglancer-server/internal/middleware"
	"github.com/JaneliaSciComp/fileglancer-server/internal/monitoring"
	"github.com/JaneliaSciComp/fileglancer-server/internal/neuroglancer"
	"github.com/JaneliaSciComp/fileglancer-server/internal/notify"
	"github.com/JaneliaSciComp/fileglancer-server/internal/shares"
	"github.com/JaneliaSciComp/fileglancer-server/internal/sshkeys"
	"github.com/JaneliaSciComp/fileglancer-server/internal/store"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	cfg      *config.Config
	log      *logging.Logger
	store    *store.Store
	executor *apps.Executor
	cancel   context.CancelFunc
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, log *logging.Logger) (*Server, error) {
	st, err := store.Open(config.ExpandHome(cfg.Database.Path))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	fileConfig, err := config.LoadFileOrEmpty(config.ExpandHome(cfg.Shares.File))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("loading share config: %w", err)
	}
	registry := shares.FromConfig(fileConfig, cfg.Shares.HomeShare)
	log.Info("share registry loaded", zap.Int("shares", len(registry.All())))

	notifySource := notify.NewSource(config.ExpandHome(cfg.Notifications.File), cfg.Notifications.URL, log)
	links := neuroglancer.NewService(st, cfg.Server.BaseURL, cfg.Neuroglancer.URL)

	var keys *sshkeys.Manager
	if cfg.SSH.Enabled {
		keys = sshkeys.NewManager(cfg.SSH.Dir, log)
	}

	var executor *apps.Executor
	if cfg.Apps.Enabled {
		executor = apps.NewExecutor(st, apps.NewFetcher(), cfg.Apps, log)
	}

	metrics := monitoring.NewMetrics()

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit))
	}
	router.Use(monitoring.Middleware(metrics))

	handlers := http.NewHandlers(cfg, log, registry, st, notifySource, links, keys, executor, metrics)
	registerRoutes(router, handlers)

	return &Server{
		router:   router,
		cfg:      cfg,
		log:      log,
		store:    st,
		executor: executor,
	}, nil
}

func registerRoutes(router *gin.Engine, handlers *http.Handlers) {
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	api.GET("/version", handlers.GetVersion)
	api.GET("/profile", handlers.GetProfile)
	api.GET("/file-share-paths", handlers.ListFileSharePaths)
	api.GET("/external-buckets", handlers.ListExternalBuckets)
	api.GET("/external-buckets/:fsp", handlers.ListExternalBuckets)
	api.GET("/notifications", handlers.ListNotifications)

	api.GET("/preference", handlers.ListPreferences)
	api.GET("/preference/:key", handlers.GetPreference)
	api.PUT("/preference/:key", handlers.SetPreference)
	api.DELETE("/preference/:key", handlers.DeletePreference)

	api.GET("/proxied-path", handlers.ListProxiedPaths)
	api.POST("/proxied-path", handlers.CreateProxiedPath)
	api.GET("/proxied-path/:key", handlers.GetProxiedPath)
	api.PATCH("/proxied-path/:key", handlers.UpdateProxiedPath)
	api.DELETE("/proxied-path/:key", handlers.DeleteProxiedPath)

	api.GET("/files/:fsp", handlers.ListFiles)
	api.POST("/files/:fsp", handlers.CreateFile)
	api.PATCH("/files/:fsp", handlers.UpdateFile)
	api.DELETE("/files/:fsp", handlers.DeleteFile)

	api.GET("/content/:fsp/*path", handlers.GetContent)
	api.HEAD("/content/:fsp/*path", handlers.GetContent)

	api.GET("/zarr/:fsp/*path", handlers.GetZarrVersions)
	api.GET("/ozx/:fsp/*path", handlers.GetOZX)

	api.GET("/ssh/keys", handlers.ListSSHKeys)
	api.POST("/ssh/keys", handlers.GenerateSSHKey)
	api.DELETE("/ssh/keys/:fingerprint", handlers.DeleteSSHKey)

	api.GET("/apps/manifest", handlers.GetAppManifest)
	api.GET("/apps/manifests/:fsp", handlers.DiscoverAppManifests)
	api.GET("/jobs", handlers.ListJobs)
	api.POST("/jobs", handlers.SubmitJob)
	api.GET("/jobs/:id", handlers.GetJob)
	api.GET("/jobs/:id/files", handlers.GetJobFiles)
	api.DELETE("/jobs/:id", handlers.CancelJob)

	api.POST("/neuroglancer/shorten", handlers.ShortenNeuroglancerLink)
	api.GET("/neuroglancer/state/:key", handlers.GetNeuroglancerState)
	api.GET("/neuroglancer/links", handlers.ListNeuroglancerLinks)
	api.PUT("/neuroglancer/links/:key", handlers.UpdateNeuroglancerLink)
	api.DELETE("/neuroglancer/links/:key", handlers.DeleteNeuroglancerLink)

	// Public data link access.
	router.GET("/files/:key/*path", handlers.ProxiedContent)
	router.HEAD("/files/:key/*path", handlers.ProxiedContent)
}

// Run starts background workers and serves HTTP until the listener
// fails or the process is stopped.
func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.executor != nil {
		go s.executor.RunReconciler(ctx, time.Minute)
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port)
	s.log.Info("starting server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close cleans up resources
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.executor != nil {
		s.executor.Wait()
	}
	return s.store.Close()
}
