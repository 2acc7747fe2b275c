// Package rules implements the source-of-truth model of the rulebook
// pipeline: parsing individual rule files (YAML frontmatter + segmented
// Markdown body), loading the per-skill section manifest, and collecting a
// skill's rule set in its canonical order. Rule documents are packaged as
// skill directories containing a _sections.md manifest and a rules/
// directory of <prefix>-<slug>.md files.
package rules

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// BlockKind identifies one of the recognized body subsections of a rule
// file. Unknown trailing subsections (legacy appendices) are preserved as
// BlockUnrecognized rather than rejected; the validator alone decides
// which kinds are mandatory.
type BlockKind string

const (
	// BlockIntro is the leading prose before the first recognized subheading.
	BlockIntro BlockKind = "intro"
	// BlockIncorrect is a negative example subsection.
	BlockIncorrect BlockKind = "incorrect"
	// BlockCorrect is a positive example subsection.
	BlockCorrect BlockKind = "correct"
	// BlockAlternative is an optional alternative-approach subsection.
	BlockAlternative BlockKind = "alternative"
	// BlockWhenNotToUse is the optional exception-list subsection.
	BlockWhenNotToUse BlockKind = "when-not-to-use"
	// BlockVerifyWith is the optional verification-command subsection.
	BlockVerifyWith BlockKind = "verify-with"
	// BlockReference is the trailing reference link, either as a heading
	// or a bare "Reference:" line.
	BlockReference BlockKind = "reference"
	// BlockUnrecognized is any subsection the pipeline does not know about.
	BlockUnrecognized BlockKind = "unrecognized"
)

// Block is one segment of a rule body. Text holds the raw Markdown of the
// segment including its heading line, so rendering the blocks in order
// reproduces the body verbatim.
type Block struct {
	Kind    BlockKind
	Heading string
	Text    string
}

// Frontmatter is the typed header block of a rule file. Impact is kept
// as-written; ParseFile only requires the key to be present and non-empty,
// the validator rejects values outside the enumerated tiers.
type Frontmatter struct {
	Title             string   `mapstructure:"title"`
	Impact            Impact   `mapstructure:"impact"`
	ImpactDescription string   `mapstructure:"impactDescription"`
	Tags              []string `mapstructure:"tags"`

	// HasTags records whether the tags key appeared at all, so the
	// validator can distinguish a missing key from an empty list.
	HasTags bool `mapstructure:"-"`
}

// Encode re-serializes the frontmatter as a YAML document wrapped in
// delimiter lines. Title, impact, and tags round-trip exactly.
func (f Frontmatter) Encode() ([]byte, error) {
	doc := struct {
		Title             string   `yaml:"title"`
		Impact            string   `yaml:"impact"`
		ImpactDescription string   `yaml:"impactDescription,omitempty"`
		Tags              []string `yaml:"tags"`
	}{
		Title:             f.Title,
		Impact:            string(f.Impact),
		ImpactDescription: f.ImpactDescription,
		Tags:              f.Tags,
	}

	body, err := yaml.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(body)
	b.WriteString("---\n")
	return []byte(b.String()), nil
}

// RuleFile is one parsed best-practice document. It is read once per run
// and never mutated.
type RuleFile struct {
	Path          string
	SectionPrefix string
	Slug          string
	Frontmatter   Frontmatter
	Blocks        []Block
}

// Title returns the frontmatter title.
func (r *RuleFile) Title() string {
	return r.Frontmatter.Title
}

// BlocksOfKind returns the rule's body blocks of the given kind in
// document order.
func (r *RuleFile) BlocksOfKind(kind BlockKind) []Block {
	var out []Block
	for _, b := range r.Blocks {
		if b.Kind == kind {
			out = append(out, b)
		}
	}
	return out
}

// HasBlock reports whether the body contains at least one block of the
// given kind.
func (r *RuleFile) HasBlock(kind BlockKind) bool {
	for _, b := range r.Blocks {
		if b.Kind == kind {
			return true
		}
	}
	return false
}

// Intro returns the leading prose before the first recognized subheading,
// or the empty string if the body opens with a subheading.
func (r *RuleFile) Intro() string {
	for _, b := range r.Blocks {
		if b.Kind == BlockIntro {
			return strings.TrimSpace(b.Text)
		}
	}
	return ""
}

// Reference returns the reference target of the rule: the remainder of a
// trailing "Reference:" line, or the prose under a Reference heading.
func (r *RuleFile) Reference() (string, bool) {
	for _, b := range r.Blocks {
		if b.Kind != BlockReference {
			continue
		}
		text := strings.TrimSpace(b.Text)
		if rest, ok := strings.CutPrefix(text, "Reference:"); ok {
			return strings.TrimSpace(rest), true
		}
		// Heading form: drop the heading line, keep the prose.
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			return strings.TrimSpace(text[idx+1:]), true
		}
		return "", true
	}
	return "", false
}
