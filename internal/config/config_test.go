package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todmy/faers-signals/internal/signal"
)

func TestNewManager_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	m, err := NewManager("")
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Analysis.MinCount)
	assert.Equal(t, 0.05, cfg.Analysis.Alpha)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenDuration)
	assert.Equal(t, "", cfg.Redis.Addr)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
}

func TestNewManager_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("FAERS_ANALYSIS_MIN_COUNT", "5")
	t.Setenv("FAERS_ANALYSIS_ALPHA", "0.1")
	t.Setenv("FAERS_SERVER_PORT", "9090")
	t.Setenv("FAERS_REDIS_ADDR", "localhost:6379")

	m, err := NewManager("")
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 5, cfg.Analysis.MinCount)
	assert.Equal(t, 0.1, cfg.Analysis.Alpha)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestNewManager_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "faers.yaml")
	content := []byte("analysis:\n  min_count: 4\n  alpha: 0.01\nlogging:\n  level: debug\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	m, err := NewManager(path)
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 4, cfg.Analysis.MinCount)
	assert.Equal(t, 0.01, cfg.Analysis.Alpha)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestNewManager_MissingExplicitFile(t *testing.T) {
	_, err := NewManager(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate_AnalysisParameters(t *testing.T) {
	chdir(t, t.TempDir())

	m, err := NewManager("")
	require.NoError(t, err)

	cfg := m.GetConfig()
	cfg.Analysis.MinCount = 0
	assert.ErrorIs(t, cfg.Validate(), signal.ErrInvalidInput)

	cfg.Analysis.MinCount = 3
	cfg.Analysis.Alpha = 1.5
	assert.ErrorIs(t, cfg.Validate(), signal.ErrInvalidInput)

	cfg.Analysis.Alpha = 0.05
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestValidateForServing_RejectsPlaceholderSecret(t *testing.T) {
	chdir(t, t.TempDir())

	m, err := NewManager("")
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, DefaultJWTSecret, cfg.Auth.JWTSecret)
	assert.NoError(t, cfg.Validate(), "offline commands accept the placeholder")
	assert.Error(t, cfg.ValidateForServing())

	t.Setenv("FAERS_AUTH_JWT_SECRET", "a-real-signing-key")
	m, err = NewManager("")
	require.NoError(t, err)
	assert.NoError(t, m.GetConfig().ValidateForServing())
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
