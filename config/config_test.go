package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
http:
  port: 9090
  timeout: 5s
model:
  path: /srv/models/rfr_model.json
ui:
  language: en
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "/srv/models/rfr_model.json", cfg.Model.Path)
	assert.Equal(t, "en", cfg.UI.Language)
	assert.Equal(t, Default().Model.CacheSize, cfg.Model.CacheSize)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
http:
  port: 70000
model:
  path: ""
log:
  level: loud
ui:
  language: fr
`)
	_, err := Load(path)
	require.Error(t, err)
	for _, field := range []string{"http.port", "model.path", "log.level", "ui.language"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestResolveRelativeModelPath(t *testing.T) {
	cfg := Default()
	cfg.Resolve(filepath.Join("..", "config.yaml"))
	assert.Equal(t, filepath.Join("..", "models", "rfr_model.json"), cfg.Model.Path)

	cfg = Default()
	cfg.Model.Path = "/abs/model.json"
	cfg.Resolve("../config.yaml")
	assert.Equal(t, "/abs/model.json", cfg.Model.Path)
}
