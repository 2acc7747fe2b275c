// Package validate checks parsed rule files against the structural
// contracts of the corpus: required frontmatter shape, mandatory
// incorrect/correct example pairs, reference links, and prefix/impact
// consistency. Validation is read-only; its only output is the report.
package validate

import (
	"os"
	"path/filepath"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// PolicyFileName is the optional per-skill validation policy. The leading
// underscore keeps it out of rule collection.
const PolicyFileName = "_policy.yaml"

// Severity grades a violation. Fatal severities drive non-zero exit codes
// in CI; warnings are surfaced but do not fail the run.
type Severity string

const (
	// SeverityError marks a violation as fatal.
	SeverityError Severity = "error"
	// SeverityWarn marks a violation as reportable but non-fatal.
	SeverityWarn Severity = "warn"
	// SeverityOff disables a check entirely.
	SeverityOff Severity = "off"
)

func (s Severity) valid() bool {
	switch s {
	case SeverityError, SeverityWarn, SeverityOff:
		return true
	}
	return false
}

// Check names one class of structural violation. Every class can be
// re-graded per skill through the policy file.
type Check string

const (
	// CheckFrontmatter covers required frontmatter keys and their shape.
	CheckFrontmatter Check = "frontmatter"
	// CheckMissingExample covers the mandatory incorrect/correct contrast.
	CheckMissingExample Check = "missing-example"
	// CheckMissingReference covers the trailing reference link.
	CheckMissingReference Check = "missing-reference"
	// CheckImpactMismatch covers rules whose impact differs from their
	// section's nominal tier. Deliberate exceptions exist in the corpus,
	// so this defaults to a warning.
	CheckImpactMismatch Check = "impact-mismatch"
	// CheckUnknownSection covers filename prefixes without a registered section.
	CheckUnknownSection Check = "unknown-section"
)

func defaultSeverities() map[Check]Severity {
	return map[Check]Severity{
		CheckFrontmatter:      SeverityError,
		CheckMissingExample:   SeverityError,
		CheckMissingReference: SeverityError,
		CheckImpactMismatch:   SeverityWarn,
		CheckUnknownSection:   SeverityError,
	}
}

// Policy holds the effective severity per check class plus file exclusion
// patterns for legacy documents exempted from validation.
type Policy struct {
	severities map[Check]Severity
	excludes   []glob.Glob
}

// DefaultPolicy returns the built-in severity grading with no exclusions.
func DefaultPolicy() *Policy {
	return &Policy{severities: defaultSeverities()}
}

// SeverityOf returns the effective severity of a check class.
func (p *Policy) SeverityOf(check Check) Severity {
	if s, ok := p.severities[check]; ok {
		return s
	}
	return SeverityError
}

// Excluded reports whether a rule file is exempted from validation. The
// patterns match against the base filename.
func (p *Policy) Excluded(path string) bool {
	base := filepath.Base(path)
	for _, g := range p.excludes {
		if g.Match(base) {
			return true
		}
	}
	return false
}

type policyFile struct {
	Checks  map[string]string `yaml:"checks"`
	Exclude []string          `yaml:"exclude"`
}

// LoadPolicy reads the skill's _policy.yaml if present, overlaying it on
// the defaults. A missing file yields the default policy.
func LoadPolicy(skillPath string) (*Policy, error) {
	path := filepath.Join(skillPath, PolicyFileName)

	src, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultPolicy(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read policy file %s", path)
	}

	var pf policyFile
	if err := yaml.Unmarshal(src, &pf); err != nil {
		return nil, errors.Wrapf(err, "failed to parse policy file %s", path)
	}

	pol := DefaultPolicy()
	for name, sev := range pf.Checks {
		check, severity := Check(name), Severity(sev)
		if _, known := pol.severities[check]; !known {
			return nil, errors.Errorf("policy file %s: unknown check %q", path, name)
		}
		if !severity.valid() {
			return nil, errors.Errorf("policy file %s: invalid severity %q for check %q", path, sev, name)
		}
		pol.severities[check] = severity
	}

	for _, pattern := range pf.Exclude {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "policy file %s: invalid exclude pattern %q", path, pattern)
		}
		pol.excludes = append(pol.excludes, g)
	}

	return pol, nil
}
