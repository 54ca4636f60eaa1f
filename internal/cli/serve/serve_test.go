package serve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novelhub/internal/content"
	"novelhub/internal/events"
	"novelhub/pkg/config"
	"novelhub/pkg/models"
)

func TestSplitAddr(t *testing.T) {
	tests := []struct {
		addr    string
		host    string
		port    int
		wantErr bool
	}{
		{"127.0.0.1:9000", "127.0.0.1", 9000, false},
		{":8081", "0.0.0.0", 8081, false},
		{"localhost", "", 0, true},
		{"localhost:http", "", 0, true},
		{"localhost:70000", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			host, port, err := splitAddr(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.port, port)
		})
	}
}

func TestNewAppMemoryStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "memory"
	cfg.Events.Driver = "log"

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.close()

	assert.IsType(t, content.AllowAll{}, a.targets)
	assert.IsType(t, &events.Bus{}, a.sink)
	assert.Empty(t, a.checks, "the memory store has no dependency checks")

	c, err := a.stores.comments.Create(context.Background(), &models.Comment{
		TargetType: models.TargetNews,
		TargetID:   "n1",
		AuthorID:   "u1",
		Body:       "first",
		Status:     models.StatusActive,
	})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
}

func TestBuildResolverUsesCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.Content.BaseURL = "http://catalog.local"

	a := &app{cfg: cfg}
	assert.IsType(t, &content.HTTPResolver{}, a.buildResolver())
}
