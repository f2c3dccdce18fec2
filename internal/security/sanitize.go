// Package security validates untrusted names before they reach the GitHub
// API, the cache keys or the logs.
package security

import (
	"fmt"
	"regexp"
	"strings"
)

const MaxReferenceLength = 255

var (
	referencePattern = regexp.MustCompile(`^[a-zA-Z0-9/_.+-]+$`)
	projectPattern   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateReference ensures a branch, tag or commit name is safe to embed in
// API paths and cache keys.
func ValidateReference(ref string) error {
	if ref == "" {
		return fmt.Errorf("reference cannot be empty")
	}
	if len(ref) > MaxReferenceLength {
		return fmt.Errorf("reference longer than %d characters", MaxReferenceLength)
	}
	if strings.HasPrefix(ref, "-") || strings.HasPrefix(ref, "/") {
		return fmt.Errorf("reference cannot start with '-' or '/'")
	}
	if strings.Contains(ref, "..") {
		return fmt.Errorf("reference cannot contain '..'")
	}
	if !referencePattern.MatchString(ref) {
		return fmt.Errorf("reference contains invalid characters")
	}
	return nil
}

// ValidateProjectName ensures project name is safe for use in paths and URLs.
func ValidateProjectName(name string) error {
	if name == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	if strings.HasPrefix(name, "-") || strings.HasPrefix(name, ".") {
		return fmt.Errorf("project name cannot start with '-' or '.'")
	}
	if !projectPattern.MatchString(name) {
		return fmt.Errorf("project name contains invalid characters (only a-z, A-Z, 0-9, _, - allowed)")
	}
	return nil
}
