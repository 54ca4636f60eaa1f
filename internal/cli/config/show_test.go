package config

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	appconfig "novelhub/pkg/config"
)

func TestWriteYAMLMasksSecrets(t *testing.T) {
	cfg := appconfig.Default()
	cfg.Redis.Password = "hunter2"

	var buf bytes.Buffer
	require.NoError(t, writeYAML(&buf, cfg, false))

	out := buf.String()
	assert.NotContains(t, out, cfg.JWT.Secret)
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "max_depth: 5")

	// the caller's config is untouched
	assert.Equal(t, "hunter2", cfg.Redis.Password)

	var decoded map[string]map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, redacted, decoded["jwt"]["secret"])
}

func TestWriteYAMLReveal(t *testing.T) {
	cfg := appconfig.Default()

	var buf bytes.Buffer
	require.NoError(t, writeYAML(&buf, cfg, true))
	assert.Contains(t, buf.String(), cfg.JWT.Secret)
}
