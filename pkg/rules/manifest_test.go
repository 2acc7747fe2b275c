package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `# Sections

## Anti-Patterns (antipattern)

**Impact:** CRITICAL
**Description:** Schema mistakes that cause outages,
data loss, or unbounded growth.

## Fundamentals (fundamental)

**Impact:** HIGH
**Description:** Core modeling practices for every deployment.

## Patterns (pattern)

**Impact:** MEDIUM
**Description:** Situational optimizations.
`

func TestParseManifest(t *testing.T) {
	reg, err := ParseManifest("_sections.md", []byte(sampleManifest))
	require.NoError(t, err)

	secs := reg.Sections()
	require.Len(t, secs, 3)

	assert.Equal(t, "antipattern", secs[0].Prefix)
	assert.Equal(t, "Anti-Patterns", secs[0].Title)
	assert.Equal(t, ImpactCritical, secs[0].Impact)
	assert.Equal(t, 1, secs[0].Order)
	assert.Equal(t, "Schema mistakes that cause outages, data loss, or unbounded growth.", secs[0].Description)

	assert.Equal(t, "fundamental", secs[1].Prefix)
	assert.Equal(t, 2, secs[1].Order)

	assert.Equal(t, "pattern", secs[2].Prefix)
	assert.Equal(t, ImpactMedium, secs[2].Impact)

	assert.Equal(t, []string{"antipattern", "fundamental", "pattern"}, reg.Prefixes())

	sec, ok := reg.ByPrefix("fundamental")
	require.True(t, ok)
	assert.Equal(t, "Fundamentals", sec.Title)

	_, ok = reg.ByPrefix("bogus")
	assert.False(t, ok)
}

func TestParseManifestDuplicatePrefix(t *testing.T) {
	manifest := `## First (pattern)

**Impact:** HIGH
**Description:** One.

## Second (pattern)

**Impact:** MEDIUM
**Description:** Two.
`
	_, err := ParseManifest("_sections.md", []byte(manifest))
	require.Error(t, err)

	var conflict *ManifestConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "pattern", conflict.Prefix)
}

func TestParseManifestMalformed(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{"empty file", ""},
		{"no section headings", "# Title only\n\nProse without sections.\n"},
		{"missing impact", "## Patterns (pattern)\n\n**Description:** No impact label.\n"},
		{"invalid impact", "## Patterns (pattern)\n\n**Impact:** SEVERE\n**Description:** Bad tier.\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest("_sections.md", []byte(tt.manifest))
			require.Error(t, err)

			var merr *ManifestError
			assert.ErrorAs(t, err, &merr)
		})
	}
}

func TestMatchPrefixLongestWins(t *testing.T) {
	manifest := `## Patterns (pattern)

**Impact:** MEDIUM
**Description:** Base.

## Extended Patterns (pattern-extended)

**Impact:** HIGH
**Description:** Extended.
`
	reg, err := ParseManifest("_sections.md", []byte(manifest))
	require.NoError(t, err)

	prefix, ok := reg.MatchPrefix("pattern-extended-foo")
	require.True(t, ok)
	assert.Equal(t, "pattern-extended", prefix)

	prefix, ok = reg.MatchPrefix("pattern-foo")
	require.True(t, ok)
	assert.Equal(t, "pattern", prefix)

	_, ok = reg.MatchPrefix("unknown-foo")
	assert.False(t, ok)
}

func TestLoadManifest(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("existing manifest", func(t *testing.T) {
		path := filepath.Join(tmpDir, ManifestFileName)
		require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

		reg, err := LoadManifest(path)
		require.NoError(t, err)
		assert.Len(t, reg.Sections(), 3)
		assert.Equal(t, path, reg.Path())
	})

	t.Run("missing manifest", func(t *testing.T) {
		_, err := LoadManifest(filepath.Join(tmpDir, "nope", ManifestFileName))
		require.Error(t, err)

		var merr *ManifestError
		assert.ErrorAs(t, err, &merr)
	})
}
