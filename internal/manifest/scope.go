package manifest

import (
	"fmt"
	"strings"
)

const (
	// ScopeUser is the per-user scope, writable by the invoking user.
	ScopeUser Scope = "user"

	// ScopeSystem is the machine-wide scope, writable only with elevated privileges.
	ScopeSystem Scope = "system"
)

// Scope identifies one of the two install tiers.
type Scope string

// Scopes returns both scopes in precedence order (user first).
func Scopes() []Scope {
	return []Scope{ScopeUser, ScopeSystem}
}

// ParseScope converts a string into a Scope, ignoring case and surrounding whitespace.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeUser:
		return ScopeUser, nil
	case ScopeSystem:
		return ScopeSystem, nil
	default:
		return "", fmt.Errorf("unknown scope '%s', must be one of: %s, %s", s, ScopeUser, ScopeSystem)
	}
}

// String implements fmt.Stringer.
func (s Scope) String() string {
	return string(s)
}

// IsSystem reports whether the scope is the privileged, machine-wide scope.
func (s Scope) IsSystem() bool {
	return s == ScopeSystem
}
