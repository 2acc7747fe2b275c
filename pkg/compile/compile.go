// Package compile orders a skill's rule set into the composite reference
// document: stable ids, table of contents, and fully expanded sections.
// Compilation is a pure function of the collected rule set; identical
// input yields byte-identical output, and the artifact is always replaced
// wholesale, never patched.
package compile

import (
	"fmt"
	"os"

	"github.com/aymanbagabas/go-udiff"
	"github.com/pkg/errors"

	"github.com/rulebook-dev/rulebook/pkg/osutil"
	"github.com/rulebook-dev/rulebook/pkg/rules"
)

// DefaultFileName is the compiled reference artifact, written next to the
// skill's manifest.
const DefaultFileName = "REFERENCE.md"

// Rule is the rendering-ready form of a rule file after ordering. ID is
// "<sectionIndex>.<ruleIndex>", recomputed from scratch on every build:
// inserting a rule renumbers everything after it in its section.
type Rule struct {
	ID                string
	Title             string
	Impact            rules.Impact
	ImpactDescription string
	Tags              []string
	Blocks            []rules.Block
}

// Section is one ordered category with its compiled rules.
type Section struct {
	Index       int
	Prefix      string
	Title       string
	Impact      rules.Impact
	Description string
	Rules       []Rule
}

// Document is the final composite artifact.
type Document struct {
	SkillTitle string
	Sections   []Section
	RuleCount  int
}

// New compiles the collected rule set into a document. Sections keep
// manifest order; rules keep the collector's title order. Sections with no
// rules are still rendered so the reference stays forward-consistent.
func New(skillTitle string, set *rules.RuleSet) *Document {
	doc := &Document{SkillTitle: skillTitle}

	for si, sec := range set.Registry().Sections() {
		compiled := Section{
			Index:       si + 1,
			Prefix:      sec.Prefix,
			Title:       sec.Title,
			Impact:      sec.Impact,
			Description: sec.Description,
		}

		for ri, rule := range set.Rules(sec.Prefix) {
			compiled.Rules = append(compiled.Rules, Rule{
				ID:                fmt.Sprintf("%d.%d", si+1, ri+1),
				Title:             rule.Title(),
				Impact:            rule.Frontmatter.Impact,
				ImpactDescription: rule.Frontmatter.ImpactDescription,
				Tags:              rule.Frontmatter.Tags,
				Blocks:            rule.Blocks,
			})
			doc.RuleCount++
		}

		doc.Sections = append(doc.Sections, compiled)
	}

	return doc
}

// WriteFile renders the document and atomically replaces the target file.
// Hand edits to the artifact do not survive a build.
func (d *Document) WriteFile(path string) error {
	return osutil.WriteFileAtomic(path, d.Render(), 0o644)
}

// CheckFile compares the on-disk artifact with a fresh render. It returns
// a unified diff and true when the artifact is stale or missing.
func (d *Document) CheckFile(path string) (string, bool, error) {
	fresh := d.Render()

	existing, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return udiff.Unified(path, path+" (fresh)", "", string(fresh)), true, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to read compiled document %s", path)
	}

	if string(existing) == string(fresh) {
		return "", false, nil
	}
	return udiff.Unified(path, path+" (fresh)", string(existing), string(fresh)), true, nil
}
