package validate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rulebook-dev/rulebook/pkg/logger"
	"github.com/rulebook-dev/rulebook/pkg/rules"
)

// Violation is one structural issue found in a rule file. Violations are
// independently reportable: a single file surfaces all of its issues, not
// just the first.
type Violation struct {
	Path     string
	Check    Check
	Severity Severity
	Detail   string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: [%s] %s: %s", v.Path, v.Severity, v.Check, v.Detail)
}

// Report is the aggregate outcome of validating a skill.
type Report struct {
	Violations []Violation
	// Files is the number of rule files examined, excluded files not counted.
	Files int
}

func (r *Report) add(v Violation) {
	r.Violations = append(r.Violations, v)
}

// Fatal reports whether any violation is graded error.
func (r *Report) Fatal() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Warnings counts the warn-level violations.
func (r *Report) Warnings() int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == SeverityWarn {
			n++
		}
	}
	return n
}

// Errors counts the error-level violations.
func (r *Report) Errors() int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Rule checks one parsed rule against its section under the given policy.
// It never touches the filesystem.
func Rule(rule *rules.RuleFile, sec *rules.Section, pol *Policy) []Violation {
	var out []Violation

	report := func(check Check, detail string) {
		sev := pol.SeverityOf(check)
		if sev == SeverityOff {
			return
		}
		out = append(out, Violation{Path: rule.Path, Check: check, Severity: sev, Detail: detail})
	}

	if strings.TrimSpace(rule.Frontmatter.Title) == "" {
		report(CheckFrontmatter, "title must be a non-empty string")
	}
	if !rule.Frontmatter.Impact.Valid() {
		report(CheckFrontmatter, fmt.Sprintf("impact %q is not one of CRITICAL, HIGH, MEDIUM", rule.Frontmatter.Impact))
	}
	if !rule.Frontmatter.HasTags {
		report(CheckFrontmatter, "tags key is required (an empty list is fine)")
	}

	if !rule.HasBlock(rules.BlockIncorrect) {
		report(CheckMissingExample, `no "Incorrect" example block`)
	}
	if !rule.HasBlock(rules.BlockCorrect) {
		report(CheckMissingExample, `no "Correct" example block`)
	}

	if _, ok := rule.Reference(); !ok {
		report(CheckMissingReference, `no trailing "Reference:" link`)
	}

	if sec != nil && rule.Frontmatter.Impact.Valid() && rule.Frontmatter.Impact != sec.Impact {
		report(CheckImpactMismatch, fmt.Sprintf("rule impact %s differs from section %q nominal impact %s",
			rule.Frontmatter.Impact, sec.Prefix, sec.Impact))
	}

	return out
}

// Skill validates every rule file of a skill directory. Unlike build,
// validation keeps going past broken files: frontmatter and
// section-binding failures become violations and the pass continues, so a
// single run reports the whole corpus. A missing or conflicting manifest
// still aborts, because nothing can be bound without it.
func Skill(ctx context.Context, skillPath string) (*Report, error) {
	log := logger.G(ctx).WithField("skill", skillPath)

	reg, err := rules.LoadManifest(filepath.Join(skillPath, rules.ManifestFileName))
	if err != nil {
		return nil, err
	}

	pol, err := LoadPolicy(skillPath)
	if err != nil {
		return nil, err
	}

	paths, err := rules.ListRuleFiles(filepath.Join(skillPath, rules.RulesDirName))
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, path := range paths {
		if pol.Excluded(path) {
			log.WithField("file", path).Debug("excluded by policy")
			continue
		}
		report.Files++

		rule, err := rules.ParseFile(path)
		if err != nil {
			if sev := pol.SeverityOf(CheckFrontmatter); sev != SeverityOff {
				report.add(Violation{Path: path, Check: CheckFrontmatter, Severity: sev, Detail: err.Error()})
			}
			continue
		}

		sec, slug, err := rules.BindSection(path, reg)
		if err != nil {
			if sev := pol.SeverityOf(CheckUnknownSection); sev != SeverityOff {
				report.add(Violation{Path: path, Check: CheckUnknownSection, Severity: sev, Detail: err.Error()})
			}
			continue
		}
		rule.SectionPrefix = sec.Prefix
		rule.Slug = slug

		for _, v := range Rule(rule, sec, pol) {
			report.add(v)
		}
	}

	log.WithFields(map[string]interface{}{
		"files":      report.Files,
		"violations": len(report.Violations),
	}).Debug("validation pass complete")

	return report, nil
}
