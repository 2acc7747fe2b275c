package rules

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// RulesDirName is the per-skill directory holding rule files.
const RulesDirName = "rules"

// ListRuleFiles returns the collectable rule file paths under rulesDir in
// lexical order. Files whose name starts with an underscore are reserved
// for manifests and templates; files without a dash lack the
// <prefix>-<slug>.md shape. Both are skipped, not errors.
func ListRuleFiles(rulesDir string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(filepath.Join(rulesDir, "*.md"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list rule files in %s", rulesDir)
	}

	var paths []string
	for _, path := range matches {
		name := strings.TrimSuffix(filepath.Base(path), ".md")
		if strings.HasPrefix(name, "_") || !strings.Contains(name, "-") {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

// BindSection derives the rule's section prefix and slug from its filename
// and resolves the section against the registry. A prefix that matches no
// registered section fails with *UnknownSectionError.
func BindSection(path string, reg *Registry) (*Section, string, error) {
	name := strings.TrimSuffix(filepath.Base(path), ".md")

	prefix, ok := reg.MatchPrefix(name)
	if !ok {
		claimed := name
		if idx := strings.IndexByte(name, '-'); idx >= 0 {
			claimed = name[:idx]
		}
		return nil, "", &UnknownSectionError{Path: path, Prefix: claimed, Known: reg.Prefixes()}
	}

	sec, _ := reg.ByPrefix(prefix)
	return sec, strings.TrimPrefix(name, prefix+"-"), nil
}

// RuleSet is the collected, ordered source-of-truth of a skill: every
// parsed rule bound to its section, in manifest order across sections and
// title order within one.
type RuleSet struct {
	registry  *Registry
	bySection map[string][]*RuleFile
	total     int
}

// Registry returns the section registry the set was collected against.
func (s *RuleSet) Registry() *Registry {
	return s.registry
}

// Rules returns the ordered rules of one section. An empty section is
// legitimate and returns nil.
func (s *RuleSet) Rules(prefix string) []*RuleFile {
	return s.bySection[prefix]
}

// Len returns the total number of collected rules.
func (s *RuleSet) Len() int {
	return s.total
}

// OrderedRule is one rule with its computed stable identifier
// "<sectionIndex>.<ruleIndex>" (1-based on both axes). Identifiers are
// recomputed from scratch every run and never persisted.
type OrderedRule struct {
	ID      string
	Section *Section
	Rule    *RuleFile
}

// Ordered returns every rule in final document order with its identifier.
// The compiler and the test-case extractor both consume this, so the two
// projections always agree on ids.
func (s *RuleSet) Ordered() []OrderedRule {
	var out []OrderedRule
	for si, sec := range s.registry.Sections() {
		for ri, rule := range s.bySection[sec.Prefix] {
			out = append(out, OrderedRule{
				ID:      fmt.Sprintf("%d.%d", si+1, ri+1),
				Section: sec,
				Rule:    rule,
			})
		}
	}
	return out
}

// Collect walks a skill's rules directory and produces the full ordered
// rule set. Any file that fails to parse or bind makes the collection
// fail; every broken file is reported, not just the first, so authors can
// fix a batch in one pass.
func Collect(rulesDir string, reg *Registry) (*RuleSet, error) {
	paths, err := ListRuleFiles(rulesDir)
	if err != nil {
		return nil, err
	}

	set := &RuleSet{
		registry:  reg,
		bySection: make(map[string][]*RuleFile),
	}

	var merr *multierror.Error
	for _, path := range paths {
		rule, err := ParseFile(path)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}

		sec, slug, err := BindSection(path, reg)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}

		rule.SectionPrefix = sec.Prefix
		rule.Slug = slug
		set.bySection[sec.Prefix] = append(set.bySection[sec.Prefix], rule)
		set.total++
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}

	for prefix := range set.bySection {
		sortRules(set.bySection[prefix])
	}

	return set, nil
}

// sortRules orders rules alphabetically by title. Title is the stable sort
// key so adding files in arbitrary order never depends on filesystem
// enumeration order; identical titles fall back to filename for
// determinism.
func sortRules(list []*RuleFile) {
	sort.SliceStable(list, func(i, j int) bool {
		ti, tj := list[i].Title(), list[j].Title()
		if ti != tj {
			return ti < tj
		}
		return filepath.Base(list[i].Path) < filepath.Base(list[j].Path)
	})
}
