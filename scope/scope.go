// Package scope validates requested scope strings against allowed sets.
package scope

import (
	"strings"

	"github.com/authforge/oauth2/errors"
)

// Policy controls how unknown requested scopes are handled.
type Policy int

const (
	// Strict rejects the whole request when any requested scope is not
	// allowed. This is the default: no silent downgrade.
	Strict Policy = iota
	// Intersect drops unknown scopes and grants the remainder, failing only
	// when the remainder is empty.
	Intersect
)

// Parse splits a scope string on whitespace into a deduplicated list,
// preserving the request order.
func Parse(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Join renders a scope list as the space-delimited wire form.
func Join(scopes []string) string {
	return strings.Join(scopes, " ")
}

// Contains reports whether set contains s.
func Contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// IsSubset reports whether every scope in sub is present in super.
func IsSubset(sub, super []string) bool {
	for _, s := range sub {
		if !Contains(super, s) {
			return false
		}
	}
	return true
}

// Intersection returns the scopes of a that are also in b, in a's order.
func Intersection(a, b []string) []string {
	var out []string
	for _, s := range a {
		if Contains(b, s) {
			out = append(out, s)
		}
	}
	return out
}

// Validate resolves a requested scope string against an allowed set under the
// given policy and returns the granted scope string. An empty request grants
// the full allowed set.
func Validate(requested string, allowed []string, p Policy) (string, error) {
	req := Parse(requested)
	if len(req) == 0 {
		return Join(allowed), nil
	}
	switch p {
	case Intersect:
		granted := Intersection(req, allowed)
		if len(granted) == 0 {
			return "", errors.ErrInvalidScope
		}
		return Join(granted), nil
	default:
		if !IsSubset(req, allowed) {
			return "", errors.ErrInvalidScope
		}
		return Join(req), nil
	}
}
