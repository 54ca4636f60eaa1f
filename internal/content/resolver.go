// Package content answers whether a comment target exists. The catalog of
// novels, chapters and news lives in another service.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"novelhub/pkg/logger"
	"novelhub/pkg/models"
)

// Resolver reports whether (targetType, targetID) names existing content
type Resolver interface {
	Exists(ctx context.Context, targetType models.TargetType, targetID string) (bool, error)
}

// AllowAll accepts every target; used when no catalog is configured
type AllowAll struct{}

func (AllowAll) Exists(context.Context, models.TargetType, string) (bool, error) { return true, nil }

// collections maps a target type to its catalog path segment
var collections = map[models.TargetType]string{
	models.TargetNovel:   "novels",
	models.TargetChapter: "chapters",
	models.TargetNews:    "news",
}

// HTTPResolver asks the catalog service with GET {base}/{collection}/{id}
type HTTPResolver struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPResolver creates a resolver for the catalog at baseURL
func NewHTTPResolver(baseURL string, timeout time.Duration) *HTTPResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPResolver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (r *HTTPResolver) Exists(ctx context.Context, targetType models.TargetType, targetID string) (bool, error) {
	collection, ok := collections[targetType]
	if !ok {
		return false, nil
	}
	endpoint := fmt.Sprintf("%s/%s/%s", r.baseURL, collection, url.PathEscape(targetID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	}

	var apiResp models.APIResponse
	_ = json.NewDecoder(resp.Body).Decode(&apiResp)
	return false, fmt.Errorf("catalog returned %d for %s/%s: %s", resp.StatusCode, targetType, targetID, apiResp.Error)
}

// CachedResolver remembers positive answers in Redis. Missing targets are
// not cached, content may be published at any moment.
type CachedResolver struct {
	next   Resolver
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCachedResolver wraps next with a Redis cache
func NewCachedResolver(next Resolver, client redis.UniversalClient, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedResolver{next: next, client: client, ttl: ttl}
}

func cacheKey(targetType models.TargetType, targetID string) string {
	return fmt.Sprintf("novelhub:target:%s:%s", targetType, targetID)
}

func (r *CachedResolver) Exists(ctx context.Context, targetType models.TargetType, targetID string) (bool, error) {
	key := cacheKey(targetType, targetID)

	n, err := r.client.Exists(ctx, key).Result()
	if err == nil && n > 0 {
		return true, nil
	}
	if err != nil {
		logger.Warnf("target cache lookup failed: %v", err)
	}

	ok, err := r.next.Exists(ctx, targetType, targetID)
	if err != nil || !ok {
		return ok, err
	}

	if err := r.client.Set(ctx, key, 1, r.ttl).Err(); err != nil {
		logger.Warnf("target cache store failed: %v", err)
	}
	return true, nil
}
