package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/signupkit/pkg/core"
)

func lookupMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	s, err := FromEnv(lookupMap(nil))
	require.NoError(t, err)

	assert.Equal(t, core.DefaultConfig(), s.Core)
	assert.Nil(t, s.TakenEmails)
}

func TestFromEnv_Overrides(t *testing.T) {
	s, err := FromEnv(lookupMap(map[string]string{
		EnvAddress:         "127.0.0.1:8080",
		EnvLogLevel:        "debug",
		EnvLogJSON:         "true",
		EnvAllowedOrigins:  " https://a.example , https://b.example,",
		EnvSubmitDelay:     "250",
		EnvRedirectDelay:   "1.5s",
		EnvLoginPath:       "/signin",
		EnvShutdownTimeout: "5s",
		EnvSessionIdle:     "10m",
		EnvCodec:           "MsgPack",
		EnvTakenEmails:     "taken@example.com, admin@example.com",
		EnvMaxSessions:     "50",
	}))
	require.NoError(t, err)

	c := s.Core
	assert.Equal(t, "127.0.0.1:8080", c.Address)
	assert.Equal(t, "debug", c.Log.Level)
	assert.True(t, c.Log.JSON)
	assert.True(t, c.Debug)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.Security.AllowedOrigins)
	assert.Equal(t, 250*time.Millisecond, c.Registration.SubmitDelay)
	assert.Equal(t, 1500*time.Millisecond, c.Registration.RedirectDelay)
	assert.Equal(t, "/signin", c.Registration.LoginPath)
	assert.Equal(t, 5*time.Second, c.Timeouts.GracefulShutdown)
	assert.Equal(t, 10*time.Minute, c.Timeouts.SessionIdle)
	assert.Equal(t, "msgpack", c.Codec)
	assert.Equal(t, []string{"taken@example.com", "admin@example.com"}, s.TakenEmails)
	assert.Equal(t, 50, c.MaxSessions)
}

func TestFromEnv_DevMode(t *testing.T) {
	s, err := FromEnv(lookupMap(map[string]string{EnvMode: "dev", EnvPort: "9000"}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", s.Core.Address)
	assert.True(t, s.Core.Security.InsecureDevMode)
	assert.Equal(t, "debug", s.Core.Log.Level)
}

func TestFromEnv_AddressWinsOverPort(t *testing.T) {
	s, err := FromEnv(lookupMap(map[string]string{EnvPort: "9000", EnvAddress: ":7000"}))
	require.NoError(t, err)
	assert.Equal(t, ":7000", s.Core.Address)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	_, err := FromEnv(lookupMap(map[string]string{
		EnvLogJSON:     "sometimes",
		EnvSubmitDelay: "soon",
		EnvMaxSessions: "many",
	}))
	require.ErrorIs(t, err, ErrInvalidValue)
	assert.Contains(t, err.Error(), EnvLogJSON)
	assert.Contains(t, err.Error(), EnvSubmitDelay)
	assert.Contains(t, err.Error(), EnvMaxSessions)
}

func TestFromEnv_ValidatesResult(t *testing.T) {
	_, err := FromEnv(lookupMap(map[string]string{EnvLoginPath: "login"}))
	assert.ErrorIs(t, err, core.ErrInvalidLoginPath)

	_, err = FromEnv(lookupMap(map[string]string{EnvRedirectDelay: "-1s"}))
	assert.ErrorIs(t, err, core.ErrInvalidDelay)
}

func TestFromEnv_ReservedLoginPath(t *testing.T) {
	for _, path := range []string{"/", RegisterPath, AssetsPrefix, "/_live/signup.js", LivenessPath, ReadinessPath} {
		_, err := FromEnv(lookupMap(map[string]string{EnvLoginPath: path}))
		assert.ErrorIs(t, err, ErrReservedPath, path)
	}

	_, err := FromEnv(lookupMap(map[string]string{EnvLoginPath: "/log in"}))
	assert.ErrorIs(t, err, core.ErrInvalidLoginPath)

	s, err := FromEnv(lookupMap(map[string]string{EnvLoginPath: "/signin"}))
	require.NoError(t, err)
	assert.Equal(t, "/signin", s.Core.Registration.LoginPath)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SIGNUP_LOGIN_PATH=/from-file\nSIGNUP_CODEC=msgpack\n"), 0o600))

	// SIGNUP_CODEC is already set, so the file value must not replace it.
	t.Setenv(EnvCodec, "json")
	t.Cleanup(func() { os.Unsetenv(EnvLoginPath) })

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from-file", s.Core.Registration.LoginPath)
	assert.Equal(t, "json", s.Core.Codec)
}

func TestLoad_MissingNamedFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoad_DefaultFileOptional(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load()
	assert.NoError(t, err)
}

func TestLoad_DefaultFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultEnvFile), []byte("SIGNUP_LOGIN_PATH=/dotenv\n"), 0o600))
	t.Chdir(dir)
	t.Cleanup(func() { os.Unsetenv(EnvLoginPath) })

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/dotenv", s.Core.Registration.LoginPath)
}
