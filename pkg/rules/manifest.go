package rules

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// ManifestFileName is the per-skill section manifest. The leading
// underscore keeps it out of rule collection.
const ManifestFileName = "_sections.md"

// Section is one top-level category of rules, declared by the manifest.
// Sections are created once per run and immutable thereafter.
type Section struct {
	Prefix      string
	Title       string
	Impact      Impact
	Description string
	// Order is the 1-based position of the section in the manifest.
	Order int
}

// Registry holds the ordered sections of a skill. It is an explicit
// immutable configuration object passed into the collector, validator,
// and compiler, never ambient state.
type Registry struct {
	path     string
	sections []*Section
	byPrefix map[string]*Section
}

// Sections returns the sections in manifest order.
func (r *Registry) Sections() []*Section {
	return r.sections
}

// ByPrefix resolves a section by its filename prefix.
func (r *Registry) ByPrefix(prefix string) (*Section, bool) {
	s, ok := r.byPrefix[prefix]
	return s, ok
}

// Prefixes returns the registered prefixes in manifest order.
func (r *Registry) Prefixes() []string {
	out := make([]string, 0, len(r.sections))
	for _, s := range r.sections {
		out = append(out, s.Prefix)
	}
	return out
}

// Path returns the manifest file the registry was loaded from.
func (r *Registry) Path() string {
	return r.path
}

// MatchPrefix resolves the section prefix of a rule filename (without
// extension). The longest registered prefix followed by a dash wins, so a
// "pattern-extended" section is never shadowed by a "pattern" section.
func (r *Registry) MatchPrefix(name string) (string, bool) {
	best := ""
	for prefix := range r.byPrefix {
		if strings.HasPrefix(name, prefix+"-") && len(prefix) > len(best) {
			best = prefix
		}
	}
	return best, best != ""
}

// LoadManifest reads and parses the _sections.md manifest of a skill.
func LoadManifest(path string) (*Registry, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &ManifestError{Path: path, Reason: "cannot read manifest", Err: err}
	}
	return ParseManifest(path, src)
}

var (
	sectionHeadingRe = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*\(([A-Za-z0-9][A-Za-z0-9_-]*)\)\s*$`)
	impactLabelRe    = regexp.MustCompile(`^\*\*Impact:\*\*\s*(.*)$`)
	descLabelRe      = regexp.MustCompile(`^\*\*Description:\*\*\s*(.*)$`)
	anyHeadingRe     = regexp.MustCompile(`^#{1,6}\s`)
)

// ParseManifest parses the manifest contents: one heading per section with
// the prefix in a trailing parenthesized token, followed by labeled
// **Impact:** and **Description:** lines. Section order is file order.
// Headings without a parenthesized prefix (such as a document title) are
// skipped. Duplicate prefixes fail with *ManifestConflictError.
func ParseManifest(path string, src []byte) (*Registry, error) {
	reg := &Registry{
		path:     path,
		byPrefix: make(map[string]*Section),
	}

	var current *Section
	var descLines []string

	flushDescription := func() {
		if current != nil && len(descLines) > 0 {
			current.Description = strings.Join(descLines, " ")
		}
		descLines = nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	inDescription := false

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t")

		if m := sectionHeadingRe.FindStringSubmatch(line); m != nil {
			flushDescription()
			inDescription = false

			title, prefix := strings.TrimSpace(m[1]), m[2]
			if _, dup := reg.byPrefix[prefix]; dup {
				return nil, &ManifestConflictError{Path: path, Prefix: prefix}
			}

			current = &Section{
				Prefix: prefix,
				Title:  title,
				Order:  len(reg.sections) + 1,
			}
			reg.sections = append(reg.sections, current)
			reg.byPrefix[prefix] = current
			continue
		}

		if anyHeadingRe.MatchString(line) {
			flushDescription()
			inDescription = false
			continue
		}

		if current == nil {
			continue
		}

		if m := impactLabelRe.FindStringSubmatch(line); m != nil {
			flushDescription()
			inDescription = false
			current.Impact = Impact(strings.TrimSpace(m[1]))
			continue
		}

		if m := descLabelRe.FindStringSubmatch(line); m != nil {
			descLines = nil
			if text := strings.TrimSpace(m[1]); text != "" {
				descLines = append(descLines, text)
			}
			inDescription = true
			continue
		}

		// Description prose may wrap across lines until a blank line.
		if inDescription {
			if text := strings.TrimSpace(line); text != "" {
				descLines = append(descLines, text)
			} else {
				flushDescription()
				inDescription = false
			}
		}
	}
	flushDescription()

	if err := scanner.Err(); err != nil {
		return nil, &ManifestError{Path: path, Reason: "cannot scan manifest", Err: err}
	}

	if len(reg.sections) == 0 {
		return nil, &ManifestError{Path: path, Reason: "no section headings found"}
	}

	for _, s := range reg.sections {
		if s.Impact == "" {
			return nil, &ManifestError{Path: path, Reason: fmt.Sprintf("section %q has no Impact label", s.Prefix)}
		}
		if !s.Impact.Valid() {
			return nil, &ManifestError{Path: path, Reason: fmt.Sprintf("section %q has invalid impact %q", s.Prefix, s.Impact)}
		}
	}

	return reg, nil
}
