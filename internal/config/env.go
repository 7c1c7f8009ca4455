// Package config loads server settings from the environment, optionally
// seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/gabrielmiguelok/signupkit/pkg/core"
)

// Environment variables read by FromEnv.
const (
	EnvMode            = "SIGNUP_ENV"
	EnvAddress         = "SIGNUP_ADDR"
	EnvPort            = "PORT"
	EnvLogLevel        = "SIGNUP_LOG_LEVEL"
	EnvLogJSON         = "SIGNUP_LOG_JSON"
	EnvAllowedOrigins  = "SIGNUP_ALLOWED_ORIGINS"
	EnvInsecureDevMode = "SIGNUP_INSECURE_DEV"
	EnvSubmitDelay     = "SIGNUP_SUBMIT_DELAY"
	EnvRedirectDelay   = "SIGNUP_REDIRECT_DELAY"
	EnvLoginPath       = "SIGNUP_LOGIN_PATH"
	EnvShutdownTimeout = "SIGNUP_SHUTDOWN_TIMEOUT"
	EnvSessionIdle     = "SIGNUP_SESSION_IDLE"
	EnvCodec           = "SIGNUP_CODEC"
	EnvTakenEmails     = "SIGNUP_TAKEN_EMAILS"
	EnvMaxSessions     = "SIGNUP_MAX_SESSIONS"
)

// ErrInvalidValue is returned for environment values that do not parse.
var ErrInvalidValue = errors.New("invalid environment value")

// Settings is everything the server reads at startup.
type Settings struct {
	Core core.Config

	// TakenEmails are addresses the simulated registrar refuses.
	TakenEmails []string
}

// LookupFunc reads one variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// DefaultEnvFile is read by Load when no files are named.
const DefaultEnvFile = ".env"

// Load reads .env files into the process environment and builds Settings.
// Named files must exist. With no files it tries ./.env and skips it when
// absent. Variables already set in the environment win over file values.
func Load(files ...string) (Settings, error) {
	if len(files) == 0 {
		if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("load %s: %w", DefaultEnvFile, err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return Settings{}, fmt.Errorf("load env files: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds Settings from lookup. SIGNUP_ENV=dev starts from
// core.DevelopmentConfig, anything else from core.DefaultConfig.
func FromEnv(lookup LookupFunc) (Settings, error) {
	e := env{lookup: lookup}

	cfg := core.DefaultConfig()
	if mode := e.str(EnvMode, "production"); mode == "dev" || mode == "development" {
		cfg = core.DevelopmentConfig()
	}

	if port := e.str(EnvPort, ""); port != "" {
		cfg.Address = ":" + port
	}
	cfg.Address = e.str(EnvAddress, cfg.Address)

	cfg.Log.Level = e.str(EnvLogLevel, cfg.Log.Level)
	cfg.Log.JSON = e.bool(EnvLogJSON, cfg.Log.JSON)
	cfg.Debug = cfg.Log.Level == "debug"

	if origins := e.list(EnvAllowedOrigins); origins != nil {
		cfg.Security.AllowedOrigins = origins
	}
	cfg.Security.InsecureDevMode = e.bool(EnvInsecureDevMode, cfg.Security.InsecureDevMode)

	cfg.Registration.SubmitDelay = e.duration(EnvSubmitDelay, cfg.Registration.SubmitDelay)
	cfg.Registration.RedirectDelay = e.duration(EnvRedirectDelay, cfg.Registration.RedirectDelay)
	cfg.Registration.LoginPath = e.str(EnvLoginPath, cfg.Registration.LoginPath)

	cfg.Timeouts.GracefulShutdown = e.duration(EnvShutdownTimeout, cfg.Timeouts.GracefulShutdown)
	cfg.Timeouts.SessionIdle = e.duration(EnvSessionIdle, cfg.Timeouts.SessionIdle)

	cfg.Codec = strings.ToLower(e.str(EnvCodec, cfg.Codec))
	cfg.MaxSessions = e.int(EnvMaxSessions, cfg.MaxSessions)

	if err := errors.Join(e.errs...); err != nil {
		return Settings{}, err
	}
	settings := Settings{Core: cfg, TakenEmails: e.list(EnvTakenEmails)}
	if err := settings.Validate(); err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	return settings, nil
}

// env collects parse errors so every bad variable is reported at once.
type env struct {
	lookup LookupFunc
	errs   []error
}

func (e *env) raw(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *env) str(key, def string) string {
	if v, ok := e.raw(key); ok {
		return v
	}
	return def
}

func (e *env) bool(key string, def bool) bool {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	}
	e.errs = append(e.errs, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidValue, key, v))
	return def
}

func (e *env) int(key string, def int) int {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidValue, key, v))
		return def
	}
	return n
}

// duration accepts Go durations ("1.5s") or plain milliseconds ("1500").
func (e *env) duration(key string, def time.Duration) time.Duration {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%w: %s=%q is not a duration", ErrInvalidValue, key, v))
		return def
	}
	return d
}

func (e *env) list(key string) []string {
	v, ok := e.raw(key)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
