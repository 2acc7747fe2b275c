package extract

import (
	"encoding/json"
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
**Description:** Optimizations.
`

func testSet(t *testing.T, files map[string]string) *rules.RuleSet {
	t.Helper()
	rulesDir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(rulesDir, name), []byte(content), 0o644))
	}

	reg, err := rules.ParseManifest("_sections.md", []byte(testManifest))
	require.NoError(t, err)

	set, err := rules.Collect(rulesDir, reg)
	require.NoError(t, err)
	return set
}

const pairedRule = `---
title: Avoid Unbounded Arrays
impact: CRITICAL
tags: [schema, arrays]
---

Growing an array without bound bloats the document
and slows every update.

## Incorrect

~~~javascript
db.users.updateOne({_id: id}, {$push: {events: e}})
~~~

## Correct

Cap the embedded list with a slice.

~~~javascript
db.users.updateOne({_id: id}, {$push: {events: {$each: [e], $slice: -100}}})
~~~

Reference: https://example.com
`

func TestFromRuleSet(t *testing.T) {
	set := testSet(t, map[string]string{"antipattern-arrays.md": pairedRule})

	cases := FromRuleSet(set)
	require.Len(t, cases, 1)

	tc := cases[0]
	assert.Equal(t, "1.1", tc.RuleID)
	assert.Equal(t, "Avoid Unbounded Arrays", tc.Title)
	assert.Equal(t, []string{"schema", "arrays"}, tc.Tags)
	// Intro line breaks collapse into one scenario sentence.
	assert.Equal(t, "Growing an array without bound bloats the document and slows every update.", tc.Scenario)
	assert.Equal(t, "Cap the embedded list with a slice.", tc.ExpectedBehavior)
}

func TestFromRuleSetProseOnlyRuleYieldsNothing(t *testing.T) {
	proseOnly := `---
title: Prose Only
impact: MEDIUM
tags: []
---

No examples here at all.

Reference: https://example.com
`
	set := testSet(t, map[string]string{
		"antipattern-arrays.md": pairedRule,
		"pattern-prose.md":      proseOnly,
	})

	cases := FromRuleSet(set)
	require.Len(t, cases, 1)
	assert.Equal(t, "1.1", cases[0].RuleID)
}

func TestFromRuleSetMultiplePairs(t *testing.T) {
	multi := `---
title: Multi Example
impact: MEDIUM
tags: []
impactDescription: Slow queries
---

Intro prose.

## Incorrect

first bad

## Correct

first good

## Incorrect

second bad

## Correct

second good

Reference: https://example.com
`
	set := testSet(t, map[string]string{"pattern-multi.md": multi})

	cases := FromRuleSet(set)
	require.Len(t, cases, 2)
	assert.Equal(t, "2.1", cases[0].RuleID)
	assert.Equal(t, "2.1", cases[1].RuleID)
	assert.Contains(t, cases[0].Scenario, "(example 1 of 2)")
	assert.Contains(t, cases[1].Scenario, "(example 2 of 2)")
	assert.Equal(t, "first good", cases[0].ExpectedBehavior)
	assert.Equal(t, "second good", cases[1].ExpectedBehavior)
}

func TestFromRuleSetExpectedBehaviorFallsBackToImpactDescription(t *testing.T) {
	codeOnly := `---
title: Code Only
impact: MEDIUM
tags: []
impactDescription: Collection scans on every read
---

Intro prose.

## Incorrect

~~~javascript
bad()
~~~

## Correct

~~~javascript
good()
~~~

Reference: https://example.com
`
	set := testSet(t, map[string]string{"pattern-code.md": codeOnly})

	cases := FromRuleSet(set)
	require.Len(t, cases, 1)
	assert.Equal(t, "Collection scans on every read", cases[0].ExpectedBehavior)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)

	t.Run("writes flat json array", func(t *testing.T) {
		cases := []TestCase{{
			RuleID:           "1.1",
			Title:            "T",
			Tags:             []string{"a"},
			Scenario:         "s",
			ExpectedBehavior: "e",
		}}
		require.NoError(t, WriteFile(path, cases))

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var decoded []TestCase
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, cases, decoded)
	})

	t.Run("nil cases become empty array", func(t *testing.T) {
		require.NoError(t, WriteFile(path, nil))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "[]\n", string(data))
	})
}

func TestExtractionDeterminism(t *testing.T) {
	set := testSet(t, map[string]string{"antipattern-arrays.md": pairedRule})

	first, err := json.Marshal(FromRuleSet(set))
	require.NoError(t, err)
	second, err := json.Marshal(FromRuleSet(set))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.NotEmpty(t, schema["$schema"])

	for _, field := range []string{"ruleId", "title", "tags", "scenario", "expectedBehavior"} {
		assert.Contains(t, string(data), fmt.Sprintf("%q", field))
	}
}
