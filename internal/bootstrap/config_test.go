package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Defaults(t *testing.T) {
	cfg, err := Setup("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, DefaultMainLineMarker, cfg.MainLineMarker)
	assert.Equal(t, DefaultVariationMarker, cfg.VariationMarker)
	assert.Equal(t, 1, cfg.MoveNumberFrom)
	assert.Equal(t, 4, cfg.MoveNumberTo)
	assert.Equal(t, 30*time.Minute, cfg.RecordCacheTTL)
	assert.Equal(t, "auto", cfg.SourceEncoding)
	assert.Equal(t, 20, cfg.PageLimitRecords)
}

func TestSetup_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kifu.env")
	content := "SERVER_PORT=9090\nREDIS_URL=redis:6379\nMOVE_NUMBER_FROM=0\nMOVE_NUMBER_TO=3\nRECORD_CACHE_TTL=5m\nVARIATION_MARKER=VAR\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Setup(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "redis:6379", cfg.RedisUrl)
	assert.Equal(t, 0, cfg.MoveNumberFrom)
	assert.Equal(t, 3, cfg.MoveNumberTo)
	assert.Equal(t, 5*time.Minute, cfg.RecordCacheTTL)
	assert.Equal(t, "VAR", cfg.VariationMarker)
	assert.Equal(t, DefaultMainLineMarker, cfg.MainLineMarker)
}

func TestSetup_EnvironmentOverrides(t *testing.T) {
	t.Setenv("MONGO_DATABASE", "kifu_test")

	cfg, err := Setup("")
	require.NoError(t, err)
	assert.Equal(t, "kifu_test", cfg.MongoDatabase)
}

func TestSetup_MissingFile(t *testing.T) {
	_, err := Setup(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
