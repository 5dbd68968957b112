package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadForTest(t *testing.T) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	return LoadConfig()
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DOCINTEL_AUTOMATION_ACCOUNT_ID", "automation-1")

	cfg, err := loadForTest(t)
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "data/docintel.db", cfg.SQLitePath)
	assert.Equal(t, "data/index.bleve", cfg.IndexPath)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, time.Minute, cfg.Feeds.TickInterval)
	assert.Equal(t, 24*time.Hour, cfg.Indexer.PassInterval)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"classification:", "feed:"}, cfg.Enrich.TagPrefixes)
}

func TestLoadConfigRequiresAutomationAccount(t *testing.T) {
	_, err := loadForTest(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("DOCINTEL_AUTOMATION_ACCOUNT_ID", "automation-1")
	t.Setenv("DOCINTEL_SQLITE_PATH", "/var/lib/docintel/db.sqlite")
	t.Setenv("DOCINTEL_LOG_LEVEL", "debug")

	cfg, err := loadForTest(t)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/docintel/db.sqlite", cfg.SQLitePath)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigRejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("DOCINTEL_AUTOMATION_ACCOUNT_ID", "automation-1")
	t.Setenv("DOCINTEL_LOG_LEVEL", "loud")

	_, err := loadForTest(t)
	assert.Error(t, err)
}
