package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(overrides map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg, err := fromViper(newViper(nil))
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, WorkflowThreeParty, cfg.Workflow.Mode)
	assert.Equal(t, 3*time.Second, cfg.Workflow.LockTimeout)
	assert.Equal(t, PhotoDriverLocal, cfg.Photos.Driver)
	assert.Equal(t, int64(5*1024*1024), cfg.Photos.MaxFileSize)
	assert.Equal(t, time.Hour, cfg.Photos.SignedURLTTL)
	assert.Equal(t, 2*time.Minute, cfg.Dashboard.CacheTTL)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]interface{}{
		"WORKFLOW_MODE":         " Two_Party ",
		"WORKFLOW_LOCK_TIMEOUT": "750ms",
		"ALLOWED_ORIGINS":       "https://laporpak.id, ,https://admin.laporpak.id",
		"DASHBOARD_CACHE_TTL":   "not-a-duration",
		"PHOTO_STORAGE_DRIVER":  "GCS",
		"PHOTO_GCS_BUCKET":      "laporpak-photos",
	}))
	require.NoError(t, err)

	assert.Equal(t, WorkflowTwoParty, cfg.Workflow.Mode)
	assert.Equal(t, 750*time.Millisecond, cfg.Workflow.LockTimeout)
	assert.Equal(t, []string{"https://laporpak.id", "https://admin.laporpak.id"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 2*time.Minute, cfg.Dashboard.CacheTTL)
	assert.Equal(t, PhotoDriverGCS, cfg.Photos.Driver)
	assert.Equal(t, "laporpak-photos", cfg.Photos.GCSBucket)
}

func TestFromViperRejectsUnknownWorkflowMode(t *testing.T) {
	_, err := fromViper(newViper(map[string]interface{}{"WORKFLOW_MODE": "four_party"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WORKFLOW_MODE")
}

func TestFromViperRequiresBucketForGCS(t *testing.T) {
	_, err := fromViper(newViper(map[string]interface{}{"PHOTO_STORAGE_DRIVER": "gcs"}))
	require.Error(t, err)
}
