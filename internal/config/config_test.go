package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"paperbase/internal/config"
)

func TestLoadConfig(t *testing.T) {
	// Set env var directly to test envconfig logic
	os.Setenv("DB_HOST", "test-host")
	defer os.Unsetenv("DB_HOST")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "test-host", cfg.DBHost)
}

func TestLoadConfig_FromEnvFile(t *testing.T) {
	content := []byte("DB_HOST=loaded-from-file")
	err := os.WriteFile(".env", content, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(".env")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "loaded-from-file", cfg.DBHost)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, 8081, cfg.ServerPort)
	assert.Equal(t, "gemini-embedding-001", cfg.EmbeddingModel)
	assert.Equal(t, "file://migrations", cfg.MigrationPath)
	assert.Equal(t, 120, cfg.ExtractorTimeoutSeconds)
}

func TestValidate_MissingRequired(t *testing.T) {
	cfg := &config.Config{DBHost: "", DBUser: "u", DBName: "n", ExtractorURL: "http://x"}
	err := cfg.Validate()
	assert.ErrorIs(t, err, config.ErrMissingRequired)

	cfg = &config.Config{DBHost: "h", DBUser: "u", DBName: "n", ExtractorURL: ""}
	err = cfg.Validate()
	assert.ErrorIs(t, err, config.ErrMissingRequired)
}
