package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gabrielmiguelok/signupkit/pkg/core"
)

// Paths the server always serves. The login page is mounted beside them.
const (
	RegisterPath  = "/register"
	AssetsPrefix  = "/_live/"
	LivenessPath  = "/healthz"
	ReadinessPath = "/readyz"
)

// ErrReservedPath is returned when the login path would shadow or collide
// with a fixed route.
var ErrReservedPath = errors.New("path is reserved")

// Validate checks the core config and that the login path can be routed
// next to the fixed routes.
func (s Settings) Validate() error {
	if err := s.Core.Validate(); err != nil {
		return err
	}
	return checkLoginPath(s.Core.Registration.LoginPath)
}

func checkLoginPath(p string) error {
	if strings.ContainsAny(p, "{} \t\r\n") {
		return fmt.Errorf("%w: %q is not a plain path", core.ErrInvalidLoginPath, p)
	}
	switch {
	case p == "/", p == RegisterPath, p == LivenessPath, p == ReadinessPath,
		strings.HasPrefix(p, AssetsPrefix):
		return fmt.Errorf("%w: %s=%q", ErrReservedPath, EnvLoginPath, p)
	}
	return nil
}
