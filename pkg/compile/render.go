package compile

import (
	"fmt"
	"strings"
)

const generatedHeader = "<!-- Generated by rulebook. DO NOT EDIT: this file is fully rewritten on every build. -->"

// Render produces the composite Markdown document: abstract, table of
// contents, then every section and rule expanded in final order. Rendering
// iterates ordered slices only, so output is byte-deterministic.
func (d *Document) Render() []byte {
	var b strings.Builder

	b.WriteString(generatedHeader)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "# %s\n\n", d.SkillTitle)

	d.renderAbstract(&b)
	d.renderTOC(&b)

	for _, sec := range d.Sections {
		renderSection(&b, sec)
	}

	return []byte(strings.TrimRight(b.String(), "\n") + "\n")
}

func (d *Document) renderAbstract(b *strings.Builder) {
	fmt.Fprintf(b, "This reference compiles %d %s across %d %s. Each rule contrasts an incorrect pattern with its correction; impact tiers are CRITICAL, HIGH, and MEDIUM.\n\n",
		d.RuleCount, plural(d.RuleCount, "rule", "rules"),
		len(d.Sections), plural(len(d.Sections), "section", "sections"))
}

func (d *Document) renderTOC(b *strings.Builder) {
	b.WriteString("## Table of Contents\n\n")
	for _, sec := range d.Sections {
		heading := sectionHeading(sec)
		fmt.Fprintf(b, "- [%s](#%s)\n", heading, slugify(heading))
		for _, rule := range sec.Rules {
			heading := ruleHeading(rule)
			fmt.Fprintf(b, "  - [%s](#%s)\n", heading, slugify(heading))
		}
	}
	b.WriteString("\n")
}

func renderSection(b *strings.Builder, sec Section) {
	fmt.Fprintf(b, "## %s\n\n", sectionHeading(sec))
	fmt.Fprintf(b, "**Impact: %s**\n\n", sec.Impact)
	if sec.Description != "" {
		fmt.Fprintf(b, "%s\n\n", sec.Description)
	}

	if len(sec.Rules) == 0 {
		b.WriteString("_No rules in this section yet._\n\n")
		return
	}

	for _, rule := range sec.Rules {
		renderRule(b, rule)
	}
}

func renderRule(b *strings.Builder, rule Rule) {
	fmt.Fprintf(b, "### %s\n\n", ruleHeading(rule))

	if rule.ImpactDescription != "" {
		fmt.Fprintf(b, "**Impact: %s** — %s\n\n", rule.Impact, rule.ImpactDescription)
	} else {
		fmt.Fprintf(b, "**Impact: %s**\n\n", rule.Impact)
	}

	if len(rule.Tags) > 0 {
		quoted := make([]string, len(rule.Tags))
		for i, tag := range rule.Tags {
			quoted[i] = "`" + tag + "`"
		}
		fmt.Fprintf(b, "Tags: %s\n\n", strings.Join(quoted, ", "))
	}

	// Body blocks verbatim, in document order.
	for _, block := range rule.Blocks {
		fmt.Fprintf(b, "%s\n\n", strings.TrimSpace(block.Text))
	}
}

func sectionHeading(sec Section) string {
	return fmt.Sprintf("%d. %s", sec.Index, sec.Title)
}

func ruleHeading(rule Rule) string {
	return fmt.Sprintf("%s %s", rule.ID, rule.Title)
}

// slugify converts a heading to its GitHub-style anchor: lower-cased,
// spaces to hyphens, everything else outside [a-z0-9-] dropped.
func slugify(heading string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(heading) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
