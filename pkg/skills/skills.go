// Package skills discovers skill packages: directories holding a
// _sections.md manifest and a rules/ directory of rule documents. An
// optional SKILL.md file with YAML frontmatter supplies display metadata;
// without one the directory name stands in.
package skills

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"github.com/rulebook-dev/rulebook/pkg/rules"
)

// MetadataFileName is the optional per-skill metadata file.
const MetadataFileName = "SKILL.md"

// Skill is one discovered skill package.
type Skill struct {
	Name        string
	Description string
	Path        string
}

// RulesDir returns the skill's rule-file directory.
func (s *Skill) RulesDir() string {
	return filepath.Join(s.Path, rules.RulesDirName)
}

// ManifestPath returns the skill's section manifest file.
func (s *Skill) ManifestPath() string {
	return filepath.Join(s.Path, rules.ManifestFileName)
}

// Discovery handles skill discovery from configured root directories.
type Discovery struct {
	skillDirs []string
}

// Option is a function that configures a Discovery
type Option func(*Discovery) error

// WithSkillDirs sets custom skill root directories
func WithSkillDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		d.skillDirs = dirs
		return nil
	}
}

// WithDefaultDirs initializes with default skill root directories
func WithDefaultDirs() Option {
	return func(d *Discovery) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		d.skillDirs = []string{
			"./skills", // Repo-local (highest precedence)
			filepath.Join(homeDir, ".rulebook", "skills"), // User-global
		}
		return nil
	}
}

// NewDiscovery creates a new skill discovery instance
func NewDiscovery(opts ...Option) (*Discovery, error) {
	d := &Discovery{}

	if len(opts) == 0 {
		if err := WithDefaultDirs()(d); err != nil {
			return nil, err
		}
	} else {
		for _, opt := range opts {
			if err := opt(d); err != nil {
				return nil, err
			}
		}
	}

	return d, nil
}

// DiscoverSkills finds all skill packages under the configured roots.
// Earlier roots win on name collisions.
func (d *Discovery) DiscoverSkills() (map[string]*Skill, error) {
	skills := make(map[string]*Skill)

	for _, dir := range d.skillDirs {
		matches, err := doublestar.FilepathGlob(filepath.Join(dir, "*", rules.ManifestFileName))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to scan skill directory %s", dir)
		}

		for _, manifestPath := range matches {
			skillPath := filepath.Dir(manifestPath)
			if !IsSkillDir(skillPath) {
				continue
			}

			skill := loadSkill(skillPath)
			if _, exists := skills[skill.Name]; !exists {
				skills[skill.Name] = skill
			}
		}
	}

	return skills, nil
}

// ListSkillNames returns the sorted names of all discovered skills.
func (d *Discovery) ListSkillNames() ([]string, error) {
	skills, err := d.DiscoverSkills()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// Resolve returns the skill for a CLI argument: a path to a skill
// directory if one exists there, otherwise a discovered skill by name.
func (d *Discovery) Resolve(nameOrPath string) (*Skill, error) {
	if IsSkillDir(nameOrPath) {
		return loadSkill(nameOrPath), nil
	}

	skills, err := d.DiscoverSkills()
	if err != nil {
		return nil, err
	}

	skill, exists := skills[nameOrPath]
	if !exists {
		return nil, errors.Errorf("skill '%s' not found (not a skill directory and not a discovered skill name)", nameOrPath)
	}

	return skill, nil
}

// IsSkillDir reports whether path holds both a section manifest and a
// rules directory.
func IsSkillDir(path string) bool {
	if info, err := os.Stat(filepath.Join(path, rules.ManifestFileName)); err != nil || info.IsDir() {
		return false
	}
	if info, err := os.Stat(filepath.Join(path, rules.RulesDirName)); err != nil || !info.IsDir() {
		return false
	}
	return true
}

// loadSkill builds the skill record, reading SKILL.md metadata when present.
func loadSkill(skillPath string) *Skill {
	skill := &Skill{
		Name: filepath.Base(skillPath),
		Path: skillPath,
	}

	name, description, err := readMetadata(filepath.Join(skillPath, MetadataFileName))
	if err == nil {
		if name != "" {
			skill.Name = name
		}
		skill.Description = description
	}

	return skill
}

// readMetadata parses the SKILL.md frontmatter.
func readMetadata(path string) (name, description string, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to read skill metadata")
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return "", "", errors.Wrap(err, "failed to parse skill metadata")
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return "", "", errors.New("missing frontmatter")
	}

	name, _ = metaData["name"].(string)
	description, _ = metaData["description"].(string)
	return strings.TrimSpace(name), strings.TrimSpace(description), nil
}
