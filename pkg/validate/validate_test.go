package validate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulebook-dev/rulebook/pkg/rules"
)

const testManifest = `## Anti-Patterns (antipattern)

**Impact:** CRITICAL
**Description:** Schema mistakes.

## Patterns (pattern)

**Impact:** MEDIUM
**Description:** Situational optimizations.
`

func parseRule(t *testing.T, path, content string) *rules.RuleFile {
	t.Helper()
	rule, err := rules.Parse(path, []byte(content))
	require.NoError(t, err)
	return rule
}

func wellFormedRule(title, impact string) string {
	return fmt.Sprintf(`---
title: %s
impact: %s
tags: [schema]
---

Intro prose.

## Incorrect

bad

## Correct

good

Reference: https://example.com/docs
`, title, impact)
}

func testSection(prefix string, impact rules.Impact) *rules.Section {
	return &rules.Section{Prefix: prefix, Title: prefix, Impact: impact, Order: 1}
}

func TestRuleWellFormed(t *testing.T) {
	rule := parseRule(t, "rules/antipattern-bloat.md", wellFormedRule("Avoid Bloated Documents", "CRITICAL"))

	violations := Rule(rule, testSection("antipattern", rules.ImpactCritical), DefaultPolicy())
	assert.Empty(t, violations)
}

func TestRuleMissingExamples(t *testing.T) {
	content := `---
title: Foo
impact: CRITICAL
tags: []
---

Only prose, no contrast at all.

Reference: https://example.com
`
	rule := parseRule(t, "rules/antipattern-foo.md", content)
	violations := Rule(rule, testSection("antipattern", rules.ImpactCritical), DefaultPolicy())

	require.Len(t, violations, 2)
	for _, v := range violations {
		assert.Equal(t, CheckMissingExample, v.Check)
		assert.Equal(t, SeverityError, v.Severity)
	}
}

func TestRuleAllViolationsSurfaced(t *testing.T) {
	// Invalid impact, no tags key, no examples, no reference: every issue
	// shows up in one pass.
	content := `---
title: Foo
impact: SEVERE
---

Prose only.
`
	rule := parseRule(t, "rules/antipattern-foo.md", content)
	violations := Rule(rule, testSection("antipattern", rules.ImpactCritical), DefaultPolicy())

	checks := make(map[Check]int)
	for _, v := range violations {
		checks[v.Check]++
	}
	assert.Equal(t, 2, checks[CheckFrontmatter], "invalid impact and missing tags")
	assert.Equal(t, 2, checks[CheckMissingExample])
	assert.Equal(t, 1, checks[CheckMissingReference])
}

func TestRuleImpactMismatchIsWarning(t *testing.T) {
	rule := parseRule(t, "rules/pattern-foo.md", wellFormedRule("Foo", "CRITICAL"))

	violations := Rule(rule, testSection("pattern", rules.ImpactMedium), DefaultPolicy())
	require.Len(t, violations, 1)
	assert.Equal(t, CheckImpactMismatch, violations[0].Check)
	assert.Equal(t, SeverityWarn, violations[0].Severity)

	report := &Report{Violations: violations}
	assert.False(t, report.Fatal(), "impact mismatch alone must not fail the run")
	assert.Equal(t, 1, report.Warnings())
}

func TestRulePolicyOverrides(t *testing.T) {
	rule := parseRule(t, "rules/pattern-foo.md", wellFormedRule("Foo", "CRITICAL"))
	sec := testSection("pattern", rules.ImpactMedium)

	t.Run("promote mismatch to error", func(t *testing.T) {
		pol := DefaultPolicy()
		pol.severities[CheckImpactMismatch] = SeverityError

		violations := Rule(rule, sec, pol)
		require.Len(t, violations, 1)
		assert.Equal(t, SeverityError, violations[0].Severity)
	})

	t.Run("disable mismatch check", func(t *testing.T) {
		pol := DefaultPolicy()
		pol.severities[CheckImpactMismatch] = SeverityOff

		assert.Empty(t, Rule(rule, sec, pol))
	})
}

func writeSkill(t *testing.T) string {
	t.Helper()
	skillPath := t.TempDir()
	rulesDir := filepath.Join(skillPath, "rules")
	require.NoError(t, os.MkdirAll(rulesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(skillPath, rules.ManifestFileName), []byte(testManifest), 0o644))
	return skillPath
}

func TestSkill(t *testing.T) {
	skillPath := writeSkill(t)
	rulesDir := filepath.Join(skillPath, "rules")

	require.NoError(t, os.WriteFile(filepath.Join(rulesDir, "antipattern-good.md"),
		[]byte(wellFormedRule("Good Rule", "CRITICAL")), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rulesDir, "antipattern-broken.md"),
		[]byte("no frontmatter here\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rulesDir, "mystery-lost.md"),
		[]byte(wellFormedRule("Lost Rule", "HIGH")), 0o644))

	report, err := Skill(context.Background(), skillPath)
	require.NoError(t, err)

	// Validation keeps going past broken files.
	assert.Equal(t, 3, report.Files)
	assert.True(t, report.Fatal())

	byCheck := make(map[Check]int)
	for _, v := range report.Violations {
		byCheck[v.Check]++
	}
	assert.Equal(t, 1, byCheck[CheckFrontmatter])
	assert.Equal(t, 1, byCheck[CheckUnknownSection])
}

func TestSkillCleanCorpus(t *testing.T) {
	skillPath := writeSkill(t)
	rulesDir := filepath.Join(skillPath, "rules")

	require.NoError(t, os.WriteFile(filepath.Join(rulesDir, "antipattern-one.md"),
		[]byte(wellFormedRule("One", "CRITICAL")), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rulesDir, "pattern-two.md"),
		[]byte(wellFormedRule("Two", "MEDIUM")), 0o644))

	report, err := Skill(context.Background(), skillPath)
	require.NoError(t, err)
	assert.Empty(t, report.Violations)
	assert.False(t, report.Fatal())
}

func TestSkillMissingManifestAborts(t *testing.T) {
	skillPath := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(skillPath, "rules"), 0o755))

	_, err := Skill(context.Background(), skillPath)
	require.Error(t, err)

	var merr *rules.ManifestError
	assert.ErrorAs(t, err, &merr)
}

func TestSkillPolicyExcludes(t *testing.T) {
	skillPath := writeSkill(t)
	rulesDir := filepath.Join(skillPath, "rules")

	require.NoError(t, os.WriteFile(filepath.Join(skillPath, PolicyFileName),
		[]byte("exclude:\n  - \"antipattern-legacy-*.md\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rulesDir, "antipattern-legacy-old.md"),
		[]byte("no frontmatter, exempted\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rulesDir, "antipattern-live.md"),
		[]byte(wellFormedRule("Live Rule", "CRITICAL")), 0o644))

	report, err := Skill(context.Background(), skillPath)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Files)
	assert.Empty(t, report.Violations)
}
