// Package refversion recognizes release references such as "v4.2" and orders
// them numerically.
//
// A reference is versioned when it is a leading "v" followed by dot-separated
// non-negative integers. Everything else ("master", "v4.2-beta", "4.2") is a
// mutable, non-versioned reference and never takes part in an ordering.
package refversion

import (
	"regexp"
	"strings"
)

var versionPattern = regexp.MustCompile(`^v[0-9]+(\.[0-9]+)*$`)

// Version is a parsed release reference. Components keep their digits as
// written (minus leading zeros) so arbitrarily large numbers compare correctly.
type Version struct {
	Ref        string
	Components []string
}

// Parse returns the version for ref, or false when ref is not versioned.
func Parse(ref string) (Version, bool) {
	if !versionPattern.MatchString(ref) {
		return Version{}, false
	}

	parts := strings.Split(ref[1:], ".")
	components := make([]string, len(parts))
	for i, part := range parts {
		trimmed := strings.TrimLeft(part, "0")
		if trimmed == "" {
			trimmed = "0"
		}
		components[i] = trimmed
	}

	return Version{Ref: ref, Components: components}, true
}

// IsVersioned reports whether ref is an immutable release reference.
func IsVersioned(ref string) bool {
	_, ok := Parse(ref)
	return ok
}

// Compare orders two references. The second return value is false when
// either side is not versioned, in which case the first value is meaningless.
func Compare(a, b string) (int, bool) {
	va, ok := Parse(a)
	if !ok {
		return 0, false
	}
	vb, ok := Parse(b)
	if !ok {
		return 0, false
	}
	return va.Compare(vb), true
}

// Newer reports whether candidate is strictly newer than current.
// Incomparable references are never newer.
func Newer(candidate, current string) bool {
	cmp, ok := Compare(candidate, current)
	return ok && cmp > 0
}

// Compare returns -1, 0 or 1. Missing trailing components count as zero,
// so v4.2 and v4.2.0 are equal.
func (v Version) Compare(other Version) int {
	n := len(v.Components)
	if len(other.Components) > n {
		n = len(other.Components)
	}

	for i := 0; i < n; i++ {
		if cmp := compareDigits(component(v.Components, i), component(other.Components, i)); cmp != 0 {
			return cmp
		}
	}
	return 0
}

func component(components []string, i int) string {
	if i < len(components) {
		return components[i]
	}
	return "0"
}

// compareDigits compares two normalized digit strings numerically.
func compareDigits(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
