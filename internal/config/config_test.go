package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "http://backend:8000/")
	t.Setenv("BACKEND_TIMEOUT_SECONDS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "http://backend:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 600*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "dev-admin", cfg.Billing.BypassUserID)
	assert.Equal(t, []string{"interpret"}, cfg.Billing.FreePaths)
	assert.Equal(t, "/uploads", cfg.Storage.PublicPrefix)
}

func TestGetEnvAsList(t *testing.T) {
	t.Setenv("LIST_SET", " /interpret/ , depth ,,")
	t.Setenv("LIST_EMPTY", "")

	assert.Equal(t, []string{"interpret", "depth"}, getEnvAsList("LIST_SET", nil))
	assert.Nil(t, getEnvAsList("LIST_EMPTY", []string{"x"}))
	assert.Equal(t, []string{"x"}, getEnvAsList("LIST_MISSING", []string{"x"}))
}
