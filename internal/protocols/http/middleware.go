package http

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"novelhub/internal/auth"
	"novelhub/internal/core"
	"novelhub/pkg/config"
	"novelhub/pkg/logger"
	"novelhub/pkg/models"
)

const (
	identityKey     = "identity"
	requestIDHeader = "X-Request-ID"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novelhub_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "novelhub_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// bearerToken extracts the token from "Bearer <token>"
func bearerToken(c *gin.Context) (string, bool, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false, nil
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", true, models.NewUnauthorizedError("invalid authorization format")
	}
	return parts[1], true, nil
}

func authenticate(c *gin.Context, authn auth.Authenticator, required bool) bool {
	token, present, err := bearerToken(c)
	if err != nil {
		respondError(c, err)
		c.Abort()
		return false
	}
	if !present {
		if required {
			respondError(c, models.NewUnauthorizedError("missing authorization header"))
			c.Abort()
			return false
		}
		return true
	}

	id, err := authn.Authenticate(c.Request.Context(), token)
	if err != nil {
		respondError(c, models.NewUnauthorizedError("unauthorized"))
		c.Abort()
		return false
	}

	c.Set(identityKey, id)
	return true
}

// AuthMiddleware validates the bearer token and sets the caller identity
func AuthMiddleware(authn auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticate(c, authn, true) {
			c.Next()
		}
	}
}

// OptionalAuthMiddleware identifies the caller when a token is sent.
// A malformed or expired token is still rejected.
func OptionalAuthMiddleware(authn auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticate(c, authn, false) {
			c.Next()
		}
	}
}

// GetIdentity retrieves the authenticated caller from the context
func GetIdentity(c *gin.Context) (*models.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	id, ok := v.(*models.Identity)
	return id, ok
}

// GetUserID extracts user ID from gin context; empty for anonymous callers
func GetUserID(c *gin.Context) (string, bool) {
	id, ok := GetIdentity(c)
	if !ok {
		return "", false
	}
	return id.UserID, true
}

// RequireRole ensures the caller holds role (admin satisfies moderator)
func RequireRole(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			respondError(c, models.NewUnauthorizedError("unauthorized"))
			c.Abort()
			return
		}

		if !id.HasRole(role) {
			respondError(c, models.NewPermissionError(string(role)+" access required"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// userLimiter hands out one token bucket per user. Buckets idle for
// longer than idleTTL have refilled to burst and are dropped.
type userLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	now       func() time.Time
	lastSweep time.Time
	limiters  map[string]*userBucket
}

type userBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const minLimiterIdle = time.Minute

func newUserLimiter(perSecond float64, burst int) *userLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	idle := time.Duration(float64(burst) / perSecond * float64(time.Second))
	if idle < minLimiterIdle {
		idle = minLimiterIdle
	}
	return &userLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		idleTTL:  idle,
		now:      time.Now,
		limiters: make(map[string]*userBucket),
	}
}

func (l *userLimiter) allow(userID string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweepLocked(now)
	}
	b, ok := l.limiters[userID]
	if !ok {
		b = &userBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = b
	}
	b.lastSeen = now
	l.mu.Unlock()
	return b.limiter.AllowN(now, 1)
}

func (l *userLimiter) sweepLocked(now time.Time) {
	for id, b := range l.limiters {
		if now.Sub(b.lastSeen) >= l.idleTTL {
			delete(l.limiters, id)
		}
	}
	l.lastSweep = now
}

// writeLimitMiddleware throttles mutating requests per user. A nil limiter
// disables throttling.
func writeLimitMiddleware(l *userLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		userID, _ := GetUserID(c)
		if !l.allow(userID) {
			respondError(c, models.NewRateLimitError("too many requests, slow down"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// requestBodyLimit allows the largest comment body plus room for the rest
// of the JSON document
func requestBodyLimit(cfg *config.Config) int64 {
	return int64(core.NewPolicy(cfg.Comments).MaxRawBody()) + 16<<10
}

// bodyLimitMiddleware caps how much of a request body handlers may read
func bodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// requestIDMiddleware propagates or assigns X-Request-ID
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// loggingMiddleware logs every request after it completes
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.HTTP(
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			int(time.Since(start).Milliseconds()),
			logger.RequestID(c.Request.Context()),
		)
	}
}

// metricsMiddleware records request counts and latency per route template
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
