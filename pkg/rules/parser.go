package rules

import (
	"bytes"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

const frontmatterDelimiter = "---"

// ParseFile reads and parses a single rule file from disk.
func ParseFile(path string) (*RuleFile, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read rule file %s", path)
	}
	return Parse(path, src)
}

// Parse parses one rule document into its frontmatter and segmented body.
// Parsing is deliberately permissive: unknown impact values and unknown
// body subsections survive the parse and are judged by the validator.
// Only a missing/unparsable frontmatter block or missing title/impact keys
// fail, with a *FrontmatterError.
func Parse(path string, src []byte) (*RuleFile, error) {
	header, body, ferr := splitFrontmatter(src)
	if ferr != "" {
		return nil, &FrontmatterError{Path: path, Reason: ferr}
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(header, &raw); err != nil {
		return nil, &FrontmatterError{Path: path, Reason: "unparsable YAML header", Err: err}
	}
	if len(raw) == 0 {
		return nil, &FrontmatterError{Path: path, Reason: "empty frontmatter block"}
	}

	fm, err := decodeFrontmatter(raw)
	if err != nil {
		return nil, &FrontmatterError{Path: path, Reason: "malformed frontmatter fields", Err: err}
	}

	if strings.TrimSpace(fm.Title) == "" {
		return nil, &FrontmatterError{Path: path, Reason: `missing required key "title"`}
	}
	if strings.TrimSpace(string(fm.Impact)) == "" {
		return nil, &FrontmatterError{Path: path, Reason: `missing required key "impact"`}
	}

	return &RuleFile{
		Path:        path,
		Frontmatter: fm,
		Blocks:      segmentBody(body),
	}, nil
}

// splitFrontmatter cuts the source at the first delimiter pair. The third
// return value is a non-empty failure reason when no valid pair exists.
func splitFrontmatter(src []byte) (header, body []byte, reason string) {
	lines := strings.SplitAfter(string(src), "\n")
	if len(lines) == 0 || strings.TrimSpace(strings.TrimSuffix(lines[0], "\n")) != frontmatterDelimiter {
		return nil, nil, "missing frontmatter block"
	}

	offset := len(lines[0])
	for _, line := range lines[1:] {
		if strings.TrimSpace(strings.TrimSuffix(line, "\n")) == frontmatterDelimiter {
			headerEnd := offset
			bodyStart := offset + len(line)
			h := src[len(lines[0]):headerEnd]
			b := bytes.TrimLeft(src[bodyStart:], "\n")
			return h, b, ""
		}
		offset += len(line)
	}

	return nil, nil, "unterminated frontmatter block"
}

// decodeFrontmatter maps the raw YAML header onto the typed Frontmatter.
// Tags are accepted both as a YAML list and as a comma-separated scalar.
func decodeFrontmatter(raw map[string]interface{}) (Frontmatter, error) {
	var fm Frontmatter

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &fm,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fm, err
	}
	if err := dec.Decode(raw); err != nil {
		return fm, err
	}

	_, fm.HasTags = raw["tags"]

	tags := fm.Tags[:0]
	for _, tag := range fm.Tags {
		if t := strings.TrimSpace(tag); t != "" {
			tags = append(tags, t)
		}
	}
	fm.Tags = tags

	return fm, nil
}

// segmentBody splits the Markdown body into typed blocks at top-level
// heading boundaries. Headings inside fenced code blocks are not heading
// nodes in the AST and therefore never split a block.
func segmentBody(body []byte) []Block {
	root := goldmark.New().Parser().Parse(text.NewReader(body))

	type mark struct {
		kind    BlockKind
		heading string
		start   int
	}
	var marks []mark

	for c := root.FirstChild(); c != nil; c = c.NextSibling() {
		h, ok := c.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		seg := h.Lines().At(0)
		heading := strings.TrimSpace(string(nodeText(h, body)))
		marks = append(marks, mark{
			kind:    classifyHeading(heading),
			heading: heading,
			start:   lineStart(body, seg.Start),
		})
	}

	var blocks []Block

	introEnd := len(body)
	if len(marks) > 0 {
		introEnd = marks[0].start
	}
	if intro := strings.TrimSpace(string(body[:introEnd])); intro != "" {
		blocks = append(blocks, Block{Kind: BlockIntro, Text: intro})
	}

	for i, m := range marks {
		end := len(body)
		if i+1 < len(marks) {
			end = marks[i+1].start
		}
		blocks = append(blocks, Block{
			Kind:    m.kind,
			Heading: m.heading,
			Text:    strings.TrimSpace(string(body[m.start:end])),
		})
	}

	return splitTrailingReference(blocks)
}

// splitTrailingReference promotes a bare trailing "Reference: ..." line of
// the final block into its own reference block.
func splitTrailingReference(blocks []Block) []Block {
	if len(blocks) == 0 {
		return blocks
	}

	last := &blocks[len(blocks)-1]
	if last.Kind == BlockReference {
		return blocks
	}

	text := strings.TrimRight(last.Text, "\n \t")
	idx := strings.LastIndexByte(text, '\n')
	line := strings.TrimSpace(text[idx+1:])
	if !strings.HasPrefix(line, "Reference:") {
		return blocks
	}

	if idx < 0 && last.Heading == "" {
		// The block was only the reference line.
		last.Kind = BlockReference
		last.Text = line
		return blocks
	}
	if idx >= 0 {
		last.Text = strings.TrimRight(text[:idx], "\n \t")
	}
	return append(blocks, Block{Kind: BlockReference, Text: line})
}

func classifyHeading(heading string) BlockKind {
	h := strings.ToLower(strings.TrimSpace(heading))
	switch {
	case strings.HasPrefix(h, "incorrect"):
		return BlockIncorrect
	case strings.HasPrefix(h, "correct"):
		return BlockCorrect
	case strings.HasPrefix(h, "alternative"):
		return BlockAlternative
	case strings.HasPrefix(h, "when not to use"):
		return BlockWhenNotToUse
	case strings.HasPrefix(h, "verify with"):
		return BlockVerifyWith
	case strings.HasPrefix(h, "reference"):
		return BlockReference
	default:
		return BlockUnrecognized
	}
}

// nodeText collects the raw text of a node's inline children.
func nodeText(n ast.Node, source []byte) []byte {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := child.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.Bytes()
}

// lineStart walks back from pos to the beginning of its line.
func lineStart(src []byte, pos int) int {
	if pos > len(src) {
		pos = len(src)
	}
	return bytes.LastIndexByte(src[:pos], '\n') + 1
}
