package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimeoutConfig configures timeouts for session operations.
type TimeoutConfig struct {
	// ComponentMount is the timeout for component Mount() calls.
	ComponentMount time.Duration

	// ComponentEvent is the timeout for HandleEvent() and HandleInfo() calls.
	ComponentEvent time.Duration

	// WebSocketRead is the read timeout for WebSocket connections.
	WebSocketRead time.Duration

	// WebSocketWrite is the write timeout for WebSocket connections.
	WebSocketWrite time.Duration

	// SessionIdle closes sessions that saw no activity for this long.
	SessionIdle time.Duration

	// GracefulShutdown is the timeout for graceful shutdown.
	GracefulShutdown time.Duration
}

// DefaultTimeoutConfig returns the default timeout configuration.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		ComponentMount:   5 * time.Second,
		ComponentEvent:   3 * time.Second,
		WebSocketRead:    60 * time.Second,
		WebSocketWrite:   10 * time.Second,
		SessionIdle:      30 * time.Minute,
		GracefulShutdown: 30 * time.Second,
	}
}

// SecurityConfig configures connection checks.
type SecurityConfig struct {
	// AllowedOrigins for WebSocket upgrades. Empty means same-origin only.
	AllowedOrigins []string

	// InsecureDevMode disables origin checks (ONLY for development!).
	InsecureDevMode bool
}

// RegistrationConfig configures the simulated registration flow.
type RegistrationConfig struct {
	// SubmitDelay is how long the simulated registration call takes.
	SubmitDelay time.Duration

	// RedirectDelay is how long the success screen shows before navigating.
	RedirectDelay time.Duration

	// LoginPath is where the client is sent after a successful registration.
	LoginPath string
}

// DefaultRegistrationConfig returns the stock wizard timing.
func DefaultRegistrationConfig() RegistrationConfig {
	return RegistrationConfig{
		SubmitDelay:   1500 * time.Millisecond,
		RedirectDelay: 2000 * time.Millisecond,
		LoginPath:     "/login",
	}
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string

	// JSON switches the handler from text to JSON.
	JSON bool
}

// Config combines all configuration settings.
type Config struct {
	Timeouts     TimeoutConfig
	Security     SecurityConfig
	Registration RegistrationConfig
	Log          LogConfig

	// Server settings
	Address string
	Debug   bool

	// Codec is the default wire codec name ("json" or "msgpack").
	Codec string

	MaxMessageSize int64

	// MaxSessions is the live session count at which readiness reports degraded.
	MaxSessions int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Timeouts:       DefaultTimeoutConfig(),
		Registration:   DefaultRegistrationConfig(),
		Log:            LogConfig{Level: "info"},
		Address:        ":3000",
		Codec:          "json",
		MaxMessageSize: 64 * 1024,
		MaxSessions:    10000,
	}
}

// DevelopmentConfig returns configuration for local development.
func DevelopmentConfig() Config {
	cfg := DefaultConfig()
	cfg.Debug = true
	cfg.Log.Level = "debug"
	cfg.Security = SecurityConfig{
		AllowedOrigins:  []string{"*"},
		InsecureDevMode: true,
	}
	return cfg
}

// Configuration errors.
var (
	ErrInvalidMaxMessageSize = errors.New("MaxMessageSize must be positive")
	ErrInvalidDelay          = errors.New("registration delays must not be negative")
	ErrInvalidLoginPath      = errors.New("LoginPath must be an absolute path")
	ErrInvalidAddress        = errors.New("Address must not be empty")
)

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Address == "" {
		return ErrInvalidAddress
	}
	if c.MaxMessageSize <= 0 {
		return ErrInvalidMaxMessageSize
	}
	if c.Registration.SubmitDelay < 0 || c.Registration.RedirectDelay < 0 {
		return fmt.Errorf("%w: submit=%s redirect=%s", ErrInvalidDelay,
			c.Registration.SubmitDelay, c.Registration.RedirectDelay)
	}
	if !strings.HasPrefix(c.Registration.LoginPath, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidLoginPath, c.Registration.LoginPath)
	}
	return nil
}
