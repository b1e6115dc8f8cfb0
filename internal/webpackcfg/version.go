package webpackcfg

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is a webpack release. The zero value means no version was set.
type Version struct {
	canonical string
}

var (
	// Latest is the version assumed when no target was declared.
	Latest = NewVersion(4, 0, 0)

	// v4 is the first release accepting mode, optimization and rule types.
	v4 = NewVersion(4, 0, 0)
)

// NewVersion returns the release major.minor.patch.
func NewVersion(major, minor, patch int) Version {
	return Version{canonical: fmt.Sprintf("v%d.%d.%d", major, minor, patch)}
}

// ParseVersion accepts forms like "2.6.1", "v4" and "3.12.0-beta.1".
// Missing components are zero; build metadata is dropped.
func ParseVersion(s string) (Version, error) {
	v := strings.TrimSpace(s)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return Version{}, fmt.Errorf("invalid webpack version %q", s)
	}
	return Version{canonical: semver.Canonical(v)}, nil
}

func (v Version) String() string {
	if v.IsZero() {
		return "0.0.0"
	}
	return strings.TrimPrefix(v.canonical, "v")
}

// IsZero reports whether no version was set.
func (v Version) IsZero() bool {
	return v.canonical == ""
}

// Compare returns -1, 0 or 1 as v is older than, equal to or newer than o.
// Prereleases order before their release.
func (v Version) Compare(o Version) int {
	return semver.Compare(v.canonical, o.canonical)
}

// Before reports whether v is older than o.
func (v Version) Before(o Version) bool {
	return v.Compare(o) < 0
}
