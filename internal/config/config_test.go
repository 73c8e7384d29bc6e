package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-checkin/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no stray .env is read.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdirForTest(t, dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)
	t.Setenv("JWT_SECRET", "s3cret")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, []string{"*"}, c.CORSOrigins)
	assert.Equal(t, 720*time.Hour, c.TokenMaxAge)
	assert.Equal(t, 5*time.Minute, c.TokenClockSkew)
	assert.Equal(t, int32(20), c.DBMaxConns)
	assert.Empty(t, c.RabbitURL)
	assert.Equal(t, slog.LevelInfo, c.SlogLevel())
}

func TestLoad_RequiresSecret(t *testing.T) {
	inTempDir(t)
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	inTempDir(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_MAX_AGE", "0")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("LOG_LEVEL", "DEBUG")

	c, err := Load()
	require.NoError(t, err)
	assert.Zero(t, c.TokenMaxAge)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins)
	assert.Equal(t, slog.LevelDebug, c.SlogLevel())
}

func TestLoad_NegativeWindowRejected(t *testing.T) {
	inTempDir(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_CLOCK_SKEW", "-1m")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := inTempDir(t)
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JWT_SECRET=from-file\nPORT=9090\n"), 0o600))

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", c.JWTSecret)
	assert.Equal(t, "9090", c.Port)
}

func TestLoad_DefaultTokenWindowRefusesOldTokens(t *testing.T) {
	inTempDir(t)
	t.Setenv("JWT_SECRET", "s3cret")
	const old = "JTM-EVENT:evt1:user7:1700000000"
	now := func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }

	c, err := Load()
	require.NoError(t, err)
	_, err = token.Codec{MaxAge: c.TokenMaxAge, Skew: c.TokenClockSkew, Now: now}.Parse(old)
	assert.ErrorIs(t, err, token.ErrExpiredToken)

	t.Setenv("TOKEN_MAX_AGE", "0")
	c, err = Load()
	require.NoError(t, err)
	ref, err := token.Codec{MaxAge: c.TokenMaxAge, Skew: c.TokenClockSkew, Now: now}.Parse(old)
	require.NoError(t, err)
	assert.Equal(t, "user7", ref.UserID)
}
