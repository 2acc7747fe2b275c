// Package extract derives machine-checkable evaluation records from a
// skill's rule set, one per incorrect/correct example pair. The extraction
// is a projection of the same parsed rules the compiler consumes; the two
// never talk to each other and either can run without the other.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/rulebook-dev/rulebook/pkg/osutil"
	"github.com/rulebook-dev/rulebook/pkg/rules"
)

// DefaultFileName is the extracted test-case artifact, written next to the
// skill's manifest.
const DefaultFileName = "testcases.json"

// TestCase is one evaluation unit for automated grading. The whole emitted
// set is regenerated on every run and consumers treat it as replaceable.
type TestCase struct {
	RuleID           string   `json:"ruleId" jsonschema:"description=Identifier of the source rule in the compiled reference (sectionIndex.ruleIndex)"`
	Title            string   `json:"title" jsonschema:"description=Title of the source rule"`
	Tags             []string `json:"tags" jsonschema:"description=Tags inherited from the rule frontmatter"`
	Scenario         string   `json:"scenario" jsonschema:"description=Scenario text synthesized from the rule's surrounding prose"`
	ExpectedBehavior string   `json:"expectedBehavior" jsonschema:"description=Behavior a correct answer must exhibit"`
}

// FromRuleSet extracts test cases from every rule in final document order.
// A rule pairs its Incorrect blocks with its Correct blocks positionally;
// rules without at least one pair contribute zero cases, which is not an
// error.
func FromRuleSet(set *rules.RuleSet) []TestCase {
	cases := make([]TestCase, 0, set.Len())

	for _, or := range set.Ordered() {
		cases = append(cases, fromRule(or)...)
	}

	return cases
}

func fromRule(or rules.OrderedRule) []TestCase {
	rule := or.Rule
	incorrect := rule.BlocksOfKind(rules.BlockIncorrect)
	correct := rule.BlocksOfKind(rules.BlockCorrect)

	pairs := len(incorrect)
	if len(correct) < pairs {
		pairs = len(correct)
	}
	if pairs == 0 {
		return nil
	}

	tags := rule.Frontmatter.Tags
	if tags == nil {
		tags = []string{}
	}

	scenario := firstParagraph(rule.Intro())
	if scenario == "" {
		scenario = fmt.Sprintf("A design decision covered by the rule %q.", rule.Title())
	}

	var cases []TestCase
	for i := 0; i < pairs; i++ {
		caseScenario := scenario
		if pairs > 1 {
			caseScenario = fmt.Sprintf("%s (example %d of %d)", scenario, i+1, pairs)
		}

		expected := firstParagraph(blockProse(correct[i]))
		if expected == "" {
			expected = rule.Frontmatter.ImpactDescription
		}
		if expected == "" {
			expected = fmt.Sprintf("Applies the correct pattern described by %q.", rule.Title())
		}

		cases = append(cases, TestCase{
			RuleID:           or.ID,
			Title:            rule.Title(),
			Tags:             tags,
			Scenario:         caseScenario,
			ExpectedBehavior: expected,
		})
	}

	return cases
}

// blockProse strips the heading line and fenced code from a block, leaving
// only its prose.
func blockProse(b rules.Block) string {
	var out []string
	inFence := false

	for i, line := range strings.Split(b.Text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if i == 0 && strings.HasPrefix(trimmed, "#") {
			continue
		}
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

// firstParagraph returns the first non-empty paragraph, with internal line
// breaks collapsed to spaces.
func firstParagraph(s string) string {
	for _, para := range strings.Split(s, "\n\n") {
		if p := strings.TrimSpace(para); p != "" {
			return strings.Join(strings.Fields(p), " ")
		}
	}
	return ""
}

// WriteFile serializes the cases as a flat JSON array and atomically
// replaces the target file.
func WriteFile(path string, cases []TestCase) error {
	if cases == nil {
		cases = []TestCase{}
	}

	data, err := json.MarshalIndent(cases, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal test cases")
	}
	data = append(data, '\n')

	return osutil.WriteFileAtomic(path, data, 0o644)
}

// Schema returns the JSON Schema of the test-case record for downstream
// graders.
func Schema() ([]byte, error) {
	schema := jsonschema.Reflect(&TestCase{})

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal test case schema")
	}
	return append(data, '\n'), nil
}
