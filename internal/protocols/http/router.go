package http

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"novelhub/internal/auth"
	"novelhub/internal/core"
	"novelhub/pkg/config"
	"novelhub/pkg/logger"
	"novelhub/pkg/models"
)

// Server manages HTTP REST API server
type Server struct {
	router        *gin.Engine
	config        *config.Config
	authn         auth.Authenticator
	commentSvc    core.CommentService
	voteSvc       core.VoteService
	moderationSvc core.ModerationService
	writeLimiter  *userLimiter
	healthChecks  map[string]HealthCheck
}

// HealthCheck reports whether a dependency is usable
type HealthCheck func(ctx context.Context) error

const healthCheckTimeout = 2 * time.Second

// NewServer creates a new HTTP server with all handlers
func NewServer(
	cfg *config.Config,
	authn auth.Authenticator,
	commentSvc core.CommentService,
	voteSvc core.VoteService,
	moderationSvc core.ModerationService,
) *Server {
	mode := cfg.Server.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	registerJSONFieldNames()

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware())
	router.Use(metricsMiddleware())
	router.Use(corsMiddleware())
	router.Use(bodyLimitMiddleware(requestBodyLimit(cfg)))

	s := &Server{
		router:        router,
		config:        cfg,
		authn:         authn,
		commentSvc:    commentSvc,
		voteSvc:       voteSvc,
		moderationSvc: moderationSvc,
		writeLimiter:  newUserLimiter(cfg.Server.WriteRate, cfg.Server.WriteBurst),
		healthChecks:  make(map[string]HealthCheck),
	}

	s.setupRoutes()
	return s
}

// setupRoutes registers all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.NoRoute(func(c *gin.Context) {
		respondError(c, models.NewNotFoundError("route"))
	})

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// Public reads, viewer vote attached when a token is present
		public := v1.Group("/comments", OptionalAuthMiddleware(s.authn))
		{
			public.GET("", s.listComments)
			public.GET("/:id", s.getComment)
			public.GET("/:id/replies", s.listReplies)
		}

		writes := v1.Group("/comments", AuthMiddleware(s.authn), writeLimitMiddleware(s.writeLimiter))
		{
			writes.POST("", s.createComment)
			writes.PUT("/:id", s.updateComment)
			writes.DELETE("/:id", s.deleteComment)
			writes.POST("/:id/vote", s.voteComment)
			writes.POST("/:id/report", s.reportComment)
		}

		// Moderation routes (moderator or admin)
		admin := v1.Group("/admin", AuthMiddleware(s.authn), RequireRole(models.UserRoleModerator))
		{
			admin.GET("/comments", s.adminListComments)
			admin.GET("/reports", s.adminListReports)
			admin.POST("/reports/:id/resolve", s.resolveReport)
			admin.DELETE("/comments/:id", s.hideComment)
			admin.POST("/comments/:id/restore", s.restoreComment)
			admin.DELETE("/comments/:id/hard", RequireRole(models.UserRoleAdmin), s.hardDeleteComment)
		}
	}
}

// AddHealthCheck registers a dependency checked by GET /health
func (s *Server) AddHealthCheck(name string, check HealthCheck) {
	s.healthChecks[name] = check
}

// Router returns the gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("HTTP server shutting down")
	return srv.Shutdown(shutdownCtx)
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Next-Cursor, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// healthCheck returns server health status; 503 when a dependency fails
func (s *Server) healthCheck(c *gin.Context) {
	names := make([]string, 0, len(s.healthChecks))
	for name := range s.healthChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "ok", http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		err := s.healthChecks[name](ctx)
		cancel()
		if err != nil {
			logger.Warnf("Health check %s failed: %v", name, err)
			checks[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
		"time":   time.Now().Format(time.RFC3339),
	})
}
