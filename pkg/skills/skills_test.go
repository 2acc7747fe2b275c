package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulebook-dev/rulebook/pkg/rules"
)

const testManifest = `## Patterns (pattern)

**Impact:** MEDIUM
**Description:** Optimizations.
`

func writeSkillDir(t *testing.T, root, dirName, metadata string) string {
	t.Helper()
	skillPath := filepath.Join(root, dirName)
	require.NoError(t, os.MkdirAll(filepath.Join(skillPath, rules.RulesDirName), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(skillPath, rules.ManifestFileName), []byte(testManifest), 0o644))
	if metadata != "" {
		require.NoError(t, os.WriteFile(filepath.Join(skillPath, MetadataFileName), []byte(metadata), 0o644))
	}
	return skillPath
}

func TestDiscoverSkills(t *testing.T) {
	root := t.TempDir()

	writeSkillDir(t, root, "mongodb-schema-design", `---
name: mongodb-schema-design
description: MongoDB schema design best practices
---

# MongoDB Schema Design
`)
	writeSkillDir(t, root, "plain-skill", "")

	// A directory without a rules/ subdirectory is not a skill.
	incomplete := filepath.Join(root, "not-a-skill")
	require.NoError(t, os.MkdirAll(incomplete, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(incomplete, rules.ManifestFileName), []byte(testManifest), 0o644))

	discovery, err := NewDiscovery(WithSkillDirs(root))
	require.NoError(t, err)

	skills, err := discovery.DiscoverSkills()
	require.NoError(t, err)
	require.Len(t, skills, 2)

	withMeta := skills["mongodb-schema-design"]
	require.NotNil(t, withMeta)
	assert.Equal(t, "MongoDB schema design best practices", withMeta.Description)
	assert.Equal(t, filepath.Join(root, "mongodb-schema-design"), withMeta.Path)

	plain := skills["plain-skill"]
	require.NotNil(t, plain)
	assert.Empty(t, plain.Description)
	assert.Equal(t, filepath.Join(plain.Path, "rules"), plain.RulesDir())
	assert.Equal(t, filepath.Join(plain.Path, "_sections.md"), plain.ManifestPath())
}

func TestDiscoveryPrecedence(t *testing.T) {
	root1 := t.TempDir()
	root2 := t.TempDir()
	writeSkillDir(t, root1, "shared", `---
name: shared
description: from first root
---
`)
	writeSkillDir(t, root2, "shared", `---
name: shared
description: from second root
---
`)

	discovery, err := NewDiscovery(WithSkillDirs(root1, root2))
	require.NoError(t, err)

	skills, err := discovery.DiscoverSkills()
	require.NoError(t, err)
	require.Len(t, skills, 1)
	assert.Equal(t, "from first root", skills["shared"].Description)
}

func TestListSkillNames(t *testing.T) {
	root := t.TempDir()
	writeSkillDir(t, root, "gamma", "")
	writeSkillDir(t, root, "alpha", "")

	discovery, err := NewDiscovery(WithSkillDirs(root))
	require.NoError(t, err)

	names, err := discovery.ListSkillNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "gamma"}, names)
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	skillPath := writeSkillDir(t, root, "by-name", "")

	discovery, err := NewDiscovery(WithSkillDirs(root))
	require.NoError(t, err)

	t.Run("by path", func(t *testing.T) {
		skill, err := discovery.Resolve(skillPath)
		require.NoError(t, err)
		assert.Equal(t, skillPath, skill.Path)
	})

	t.Run("by name", func(t *testing.T) {
		skill, err := discovery.Resolve("by-name")
		require.NoError(t, err)
		assert.Equal(t, skillPath, skill.Path)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := discovery.Resolve("no-such-skill")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestNonExistentRoot(t *testing.T) {
	discovery, err := NewDiscovery(WithSkillDirs("/non/existent/path"))
	require.NoError(t, err)

	skills, err := discovery.DiscoverSkills()
	require.NoError(t, err)
	assert.Empty(t, skills)
}
