// Package theme holds the local theme preference, resolves it against the
// OS color scheme and reflects the result onto a root element.
package theme

import (
	"errors"
	"fmt"
)

// Preference is the user's raw choice.
type Preference string

const (
	Light  Preference = "light"
	Dark   Preference = "dark"
	System Preference = "system"
)

// Resolved is the mode actually displayed; never System.
type Resolved string

const (
	ResolvedLight Resolved = "light"
	ResolvedDark  Resolved = "dark"
)

// ErrInvalidPreference is returned for any value outside light, dark and system.
var ErrInvalidPreference = errors.New("invalid theme preference")

// Valid reports whether p is one of the three known preferences.
func (p Preference) Valid() bool {
	switch p {
	case Light, Dark, System:
		return true
	}
	return false
}

// ParsePreference validates s.
func ParsePreference(s string) (Preference, error) {
	p := Preference(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPreference, s)
	}
	return p, nil
}

// Resolve maps p to a concrete mode, asking src for the OS preference when p is System.
// A nil source is treated as an OS that prefers light.
func Resolve(p Preference, src SchemeSource) Resolved {
	switch p {
	case Dark:
		return ResolvedDark
	case Light:
		return ResolvedLight
	}
	if src != nil && src.PrefersDark() {
		return ResolvedDark
	}
	return ResolvedLight
}
