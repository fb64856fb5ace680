package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetDurationEnv(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"go duration", "45s", 45 * time.Second},
		{"plain seconds", "90", 90 * time.Second},
		{"garbage falls back", "soon", time.Minute},
		{"empty falls back", "", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, GetDurationEnv("TEST_DURATION", time.Minute))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("VERIFICATION_SERVICE_URL", "http://verifier:8000/")
	t.Setenv("WEBHOOK_WORKERS", "8")
	t.Setenv("ENV", "production")

	cfg := Load()

	assert.Equal(t, "http://verifier:8000", cfg.VerificationURL)
	assert.Equal(t, 8, cfg.WebhookWorkers)
	assert.Equal(t, 60*time.Second, cfg.VerificationTimeout)
	assert.Equal(t, 10*time.Second, cfg.WebhookTimeout)
	assert.Equal(t, 30*time.Minute, cfg.IntentTTL)
	assert.True(t, cfg.IsProduction())
}

func TestGetBoolEnv(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	assert.True(t, GetBoolEnv("TEST_BOOL", false))

	t.Setenv("TEST_BOOL", "nope")
	assert.False(t, GetBoolEnv("TEST_BOOL", false))
}
