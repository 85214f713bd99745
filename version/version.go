/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package version implements the semantic version model used to name and order migrations.
//
// Versions follow Semantic Versioning 2.0.0: they are ordered by major, minor and patch numbers and then
// by pre-release precedence (a version without pre-release is greater than the same version with one).
// Build metadata does not take part in ordering but is kept for display.
package version

import (
	"errors"
	"fmt"

	"github.com/blang/semver/v4"
)

// ErrInvalid is returned (wrapped) when a string is not a valid semantic version.
var ErrInvalid = errors.New("invalid semantic version")

// Version is an immutable semantic version.
// The zero value is not a valid version, use Parse or Origin.
type Version struct {
	sv     semver.Version
	raw    string
	origin bool
}

// Origin is a sentinel version that precedes every parsed version.
// Planning a downgrade to Origin means rolling back the whole history.
var Origin = Version{origin: true}

// Parse parses a semantic version string.
// The empty string is not a version: callers that use it as "no version" must handle it before parsing.
func Parse(s string) (Version, error) {
	if s == "" {
		return Version{}, fmt.Errorf("%w: empty string", ErrInvalid)
	}
	sv, err := semver.Parse(s)
	if err != nil {
		return Version{}, fmt.Errorf("%w %q: %v", ErrInvalid, s, err)
	}
	return Version{sv: sv, raw: s}, nil
}

// MustParse is like Parse but panics if the string cannot be parsed.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare returns -1, 0 or +1 depending on whether a precedes, equals or follows b.
func Compare(a, b Version) int {
	return a.Compare(b)
}

// Compare returns -1, 0 or +1 depending on whether v precedes, equals or follows o.
func (v Version) Compare(o Version) int {
	switch {
	case v.origin && o.origin:
		return 0
	case v.origin:
		return -1
	case o.origin:
		return 1
	}
	return v.sv.Compare(o.sv)
}

// LessThan reports whether v precedes o.
func (v Version) LessThan(o Version) bool {
	return v.Compare(o) < 0
}

// Equal reports whether v and o have the same precedence.
// Versions that differ only in build metadata are equal.
func (v Version) Equal(o Version) bool {
	return v.Compare(o) == 0
}

// IsOrigin reports whether v is the Origin sentinel.
func (v Version) IsOrigin() bool {
	return v.origin
}

// String returns the version as it was parsed. Origin is rendered as the empty string.
func (v Version) String() string {
	return v.raw
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.raw), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. The empty text decodes to Origin.
func (v *Version) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*v = Origin
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
