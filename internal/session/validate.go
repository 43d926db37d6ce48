package session

import (
	"fmt"
	"regexp"
)

// Identities end up in URL paths and directory names, so the alphabet is narrow.
var identityRegexp = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// ValidateIdentity checks that name is usable as a local identity or partner.
func ValidateIdentity(name string) error {
	if !identityRegexp.MatchString(name) || name == "." || name == ".." {
		return fmt.Errorf("invalid identity %q: must match ^[A-Za-z0-9_.-]{1,64}$", name)
	}
	return nil
}
