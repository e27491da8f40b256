package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRubricFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rubric.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRubricDefault(t *testing.T) {
	rubric, err := LoadRubric("")
	require.NoError(t, err)
	require.Len(t, rubric, 5)
	assert.Equal(t, "Python Proficiency", rubric[0].Name)
	assert.Equal(t, "Communication", rubric[4].Name)
	for _, c := range rubric {
		assert.NotEmpty(t, c.Description)
	}
}

func TestLoadRubricFromFile(t *testing.T) {
	path := writeRubricFile(t, `
criteria:
  - name: Go Proficiency
    description: Goroutines, channels, error handling
  - name: System Design
    description: Designing services under load
`)

	rubric, err := LoadRubric(path)
	require.NoError(t, err)
	require.Len(t, rubric, 2)
	assert.Equal(t, "Go Proficiency", rubric[0].Name)
	assert.Equal(t, "Designing services under load", rubric[1].Description)
}

func TestLoadRubricMissingFile(t *testing.T) {
	_, err := LoadRubric(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRubricEmptyCriteria(t *testing.T) {
	path := writeRubricFile(t, "criteria: []\n")
	_, err := LoadRubric(path)
	assert.Error(t, err)
}

func TestLoadRubricUnnamedCriterion(t *testing.T) {
	path := writeRubricFile(t, `
criteria:
  - description: no name given
`)
	_, err := LoadRubric(path)
	assert.Error(t, err)
}
