package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLanguages(t *testing.T) {
	table := DefaultLanguages()

	pats, ok := table.Patterns("python")
	require.True(t, ok)
	assert.Contains(t, pats, "*.py")

	t.Run("case insensitive", func(t *testing.T) {
		_, ok := table.Patterns("Python")
		assert.True(t, ok)
		_, ok = table.Patterns("  GO  ")
		assert.True(t, ok)
	})

	t.Run("aliases", func(t *testing.T) {
		for alias, want := range map[string]string{"py": "python", "golang": "go", "ts": "typescript"} {
			got, ok := table.Patterns(alias)
			require.True(t, ok, alias)
			canonical, _ := table.Patterns(want)
			assert.Equal(t, canonical, got)
		}
	})

	t.Run("unknown identifier", func(t *testing.T) {
		_, ok := table.Patterns("klingon")
		assert.False(t, ok)
	})
}

func TestNewLanguageTable(t *testing.T) {
	source := map[string][]string{"python": {"*.py"}}
	table := NewLanguageTable(source)

	t.Run("input map is copied", func(t *testing.T) {
		source["python"] = []string{"*.nope"}
		pats, ok := table.Patterns("python")
		require.True(t, ok)
		assert.Equal(t, []string{"*.py"}, pats)
	})

	t.Run("returned slices are copies", func(t *testing.T) {
		pats, _ := table.Patterns("python")
		pats[0] = "*.mutated"
		again, _ := table.Patterns("python")
		assert.Equal(t, []string{"*.py"}, again)
	})

	t.Run("aliases only for present languages", func(t *testing.T) {
		_, ok := table.Patterns("py")
		assert.True(t, ok)
		_, ok = table.Patterns("golang") // go is not in this table
		assert.False(t, ok)
	})

	t.Run("languages listing is sorted", func(t *testing.T) {
		multi := NewLanguageTable(map[string][]string{"ruby": {"*.rb"}, "go": {"*.go"}})
		assert.Equal(t, []string{"go", "ruby"}, multi.Languages())
	})
}
