package rules

import (
	"fmt"
	"strings"
)

// FrontmatterError reports a rule file whose frontmatter block is absent,
// unparsable, or missing required keys. It is fatal for build and
// extract-tests; validate reports it as a violation and moves on.
type FrontmatterError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FrontmatterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("frontmatter error in %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("frontmatter error in %s: %s", e.Path, e.Reason)
}

func (e *FrontmatterError) Unwrap() error {
	return e.Err
}

// UnknownSectionError reports a rule file whose filename prefix matches
// no section registered in the manifest.
type UnknownSectionError struct {
	Path   string
	Prefix string
	Known  []string
}

func (e *UnknownSectionError) Error() string {
	return fmt.Sprintf("unknown section prefix %q for %s (known prefixes: %s)",
		e.Prefix, e.Path, strings.Join(e.Known, ", "))
}

// ManifestError reports a missing or malformed section manifest.
type ManifestError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ManifestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("manifest error in %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("manifest error in %s: %s", e.Path, e.Reason)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

// ManifestConflictError reports a duplicate section prefix in the manifest.
type ManifestConflictError struct {
	Path   string
	Prefix string
}

func (e *ManifestConflictError) Error() string {
	return fmt.Sprintf("manifest conflict in %s: duplicate section prefix %q", e.Path, e.Prefix)
}
