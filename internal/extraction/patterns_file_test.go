package extraction

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPatternYAML = `categories:
  - name: logistics
    regex: "(?i)delivery|shipment"
    weight: 0.85
activity_types:
  - name: site-visit
    regex: "(?i)warehouse"
    weight: 0.8
`

func writePatternFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPatternSet(t *testing.T) {
	set, err := LoadPatternSet(writePatternFile(t, testPatternYAML))
	require.NoError(t, err)

	require.Len(t, set.Categories, 1)
	assert.Equal(t, "logistics", set.Categories[0].Name)
	assert.Equal(t, 0.85, set.Categories[0].Weight)
	require.Len(t, set.ActivityTypes, 1)
	assert.Empty(t, set.Priorities)
}

func TestLoadPatternSetErrors(t *testing.T) {
	_, err := LoadPatternSet(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadPatternSet(writePatternFile(t, "categories: []\n"))
	assert.Error(t, err)

	_, err = LoadPatternSet(writePatternFile(t, "categories: {not: a list\n"))
	assert.Error(t, err)
}

func TestWithPatternSetReplacesVocabulary(t *testing.T) {
	set, err := LoadPatternSet(writePatternFile(t, testPatternYAML))
	require.NoError(t, err)

	engine := NewHeuristicEngine(nil, WithPatternSet(set))
	seed, err := engine.Extract(context.Background(), "Delivery to the warehouse next week", nil)
	require.NoError(t, err)

	assert.Equal(t, "logistics", seed.Category)
	assert.Equal(t, "site-visit", seed.ActivityType)
	// Priorities were not overridden, so the built-in default still applies.
	assert.Equal(t, defaultPriority, seed.Priority)
}

func TestNewProviderWithPatternsPath(t *testing.T) {
	path := writePatternFile(t, testPatternYAML)
	p, err := NewProvider(Config{Provider: "heuristic", PatternsPath: path}, nil)
	require.NoError(t, err)
	assert.IsType(t, &HeuristicEngine{}, p)

	_, err = NewProvider(Config{PatternsPath: filepath.Join(t.TempDir(), "gone.yaml")}, nil)
	assert.Error(t, err)
}
