package database

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novelhub/pkg/config"
)

func testConfig() Config {
	return FromConfig(config.Default().Database)
}

func TestURL(t *testing.T) {
	cfg := Config{
		Host:     "db",
		Port:     5433,
		User:     "novel",
		Password: "p@ss word",
		Database: "threads",
		Timeout:  7 * time.Second,
	}

	u, err := url.Parse(cfg.URL())
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db:5433", u.Host)
	assert.Equal(t, "/threads", u.Path)

	pass, _ := u.User.Password()
	assert.Equal(t, "p@ss word", pass)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "7", u.Query().Get("connect_timeout"))
}

func TestNewDB(t *testing.T) {
	// This test requires a running PostgreSQL instance
	db, err := NewDB(testConfig())
	if err != nil {
		t.Skipf("Skipping test: PostgreSQL not available: %v", err)
		return
	}
	defer db.Close()

	require.NoError(t, db.PingContext(context.Background()))
}

func TestPoolHealthCheck(t *testing.T) {
	// This test requires a running PostgreSQL instance
	pool, err := NewPGXPool(testConfig())
	if err != nil {
		t.Skipf("Skipping test: PostgreSQL not available: %v", err)
		return
	}
	defer pool.Close()

	ctx := context.Background()
	require.NoError(t, HealthCheck(ctx, pool))

	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, HealthCheck(cancelCtx, pool))
}

func TestMigrateUp(t *testing.T) {
	db, err := NewDB(testConfig())
	if err != nil {
		t.Skipf("Skipping test: PostgreSQL not available: %v", err)
		return
	}
	defer db.Close()

	require.NoError(t, Migrate(db, "../../migrations", Up))
	// second run is a no-op
	require.NoError(t, Migrate(db, "../../migrations", Up))

	version, dirty, err := Version(db, "../../migrations")
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.GreaterOrEqual(t, version, uint(1))

	assert.Error(t, Migrate(db, "../../migrations", Direction("sideways")))
}
