package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, []string{"CS335", "CS101", "IT202"}, cfg.CourseList())
	assert.False(t, cfg.WSRequireAuth)
	assert.Equal(t, "test-secret", cfg.JWTSecret)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("COURSES", "MATH201, PHYS101")
	t.Setenv("WS_REQUIRE_AUTH", "true")
	t.Setenv("SERVER_PORT", "9999")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, []string{"MATH201", "PHYS101"}, cfg.CourseList())
	assert.True(t, cfg.WSRequireAuth)
	assert.Equal(t, "9999", cfg.ServerPort)
}
