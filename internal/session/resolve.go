package session

import (
	"errors"

	"github.com/matheus3301/duo/internal/config"
)

// ErrNoIdentity is returned when neither the flag nor the config names an identity.
var ErrNoIdentity = errors.New("no identity: pass --identity or set identity in config.toml")

// Resolve determines the local identity using precedence:
// 1. flagOverride (--identity flag)
// 2. cfg.Identity
func Resolve(flagOverride string, cfg *config.Config) (string, error) {
	identity := flagOverride
	if identity == "" && cfg != nil {
		identity = cfg.Identity
	}
	if identity == "" {
		return "", ErrNoIdentity
	}
	if err := ValidateIdentity(identity); err != nil {
		return "", err
	}
	return identity, nil
}
