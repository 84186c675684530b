package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAggregator() *Aggregator {
	return NewAggregator(WordCounter{})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// assertInvariants checks the aggregate arithmetic that must hold at every
// grouping level: successful+failed == total and total_tokens equals the sum
// over successful file results.
func assertInvariants(t *testing.T, agg *AggregateResult) {
	t.Helper()
	assert.Equal(t, agg.TotalFiles, agg.SuccessfulFiles+agg.FailedFiles)
	sum := 0
	for _, fr := range agg.FileResults {
		assert.GreaterOrEqual(t, fr.TokenCount, 0)
		assert.GreaterOrEqual(t, fr.FileSizeBytes, int64(0))
		if fr.Status == StatusSuccess {
			sum += fr.TokenCount
		} else {
			assert.Zero(t, fr.TokenCount)
			assert.NotEmpty(t, fr.ErrorMessage)
		}
	}
	assert.Equal(t, sum, agg.TotalTokens)
	for i := range agg.FolderResults {
		assertInvariants(t, &agg.FolderResults[i].AggregateResult)
	}
	for i := range agg.PatternResults {
		assertInvariants(t, &agg.PatternResults[i].AggregateResult)
	}
	for i := range agg.LanguageResults {
		assertInvariants(t, &agg.LanguageResults[i].AggregateResult)
	}
}

func TestCountFile(t *testing.T) {
	agg := newTestAggregator()
	dir := t.TempDir()

	t.Run("hello world", func(t *testing.T) {
		path := writeFile(t, dir, "hello.txt", "hello world")
		res := agg.CountFile(path)
		assert.Equal(t, StatusSuccess, res.Status)
		assert.Equal(t, 2, res.TokenCount)
		assert.Equal(t, int64(11), res.FileSizeBytes)
		assert.Empty(t, res.ErrorMessage)
	})

	t.Run("missing path", func(t *testing.T) {
		res := agg.CountFile(filepath.Join(dir, "nope.txt"))
		assert.Equal(t, StatusError, res.Status)
		assert.Zero(t, res.TokenCount)
		assert.NotEmpty(t, res.ErrorMessage)
	})

	t.Run("directory is not a regular file", func(t *testing.T) {
		res := agg.CountFile(dir)
		assert.Equal(t, StatusError, res.Status)
		assert.Contains(t, res.ErrorMessage, "not a regular file")
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		path := filepath.Join(dir, "binary.bin")
		require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe, 0xfd}, 0644))
		res := agg.CountFile(path)
		assert.Equal(t, StatusError, res.Status)
		assert.Contains(t, res.ErrorMessage, "decode")
	})

	t.Run("windows-1252 decoding", func(t *testing.T) {
		path := filepath.Join(dir, "latin.txt")
		require.NoError(t, os.WriteFile(path, []byte("caf\xe9 au lait"), 0644))

		win := newTestAggregator()
		win.Encoding = "windows-1252"
		res := win.CountFile(path)
		assert.Equal(t, StatusSuccess, res.Status)
		assert.Equal(t, 3, res.TokenCount)

		// The same bytes are a per-file error under strict UTF-8.
		res = agg.CountFile(path)
		assert.Equal(t, StatusError, res.Status)
	})

	t.Run("unknown encoding", func(t *testing.T) {
		path := writeFile(t, dir, "plain.txt", "plain")
		bad := newTestAggregator()
		bad.Encoding = "no-such-charset"
		res := bad.CountFile(path)
		assert.Equal(t, StatusError, res.Status)
		assert.Contains(t, res.ErrorMessage, "unknown encoding")
	})
}

func TestCountFiles(t *testing.T) {
	agg := newTestAggregator()
	dir := t.TempDir()
	one := writeFile(t, dir, "one.txt", "a b c")
	two := writeFile(t, dir, "two.txt", "d e")
	missing := filepath.Join(dir, "missing.txt")

	t.Run("empty input is an error", func(t *testing.T) {
		_, err := agg.CountFiles(nil)
		require.Error(t, err)
	})

	t.Run("order and totals", func(t *testing.T) {
		res, err := agg.CountFiles([]string{two, missing, one})
		require.NoError(t, err)
		require.Len(t, res.FileResults, 3)
		assert.Equal(t, two, res.FileResults[0].FilePath)
		assert.Equal(t, missing, res.FileResults[1].FilePath)
		assert.Equal(t, one, res.FileResults[2].FilePath)
		assert.Equal(t, 3, res.TotalFiles)
		assert.Equal(t, 2, res.SuccessfulFiles)
		assert.Equal(t, 1, res.FailedFiles)
		assert.Equal(t, 5, res.TotalTokens)
		assert.Equal(t, StatusPartial, res.Status)
		assertInvariants(t, res)
	})

	t.Run("all failures", func(t *testing.T) {
		res, err := agg.CountFiles([]string{missing})
		require.NoError(t, err)
		assert.Equal(t, StatusError, res.Status)
		assert.Equal(t, 1, res.FailedFiles)
		assertInvariants(t, res)
	})
}

func TestCountFolder(t *testing.T) {
	agg := newTestAggregator()

	t.Run("pattern filter non-recursive", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.py", "one")
		writeFile(t, dir, "b.py", "two three")
		writeFile(t, dir, "c.py", "four")
		writeFile(t, dir, "notes.txt", "not counted")

		res, err := agg.CountFolder(dir, false, []string{"*.py"})
		require.NoError(t, err)
		require.Len(t, res.FileResults, 3)
		assert.Equal(t, 4, res.TotalTokens)
		assert.Equal(t, StatusSuccess, res.Status)
		assertInvariants(t, res)
	})

	t.Run("recursive descends, non-recursive does not", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "top.py", "a")
		writeFile(t, dir, "sub/deep.py", "b c")

		res, err := agg.CountFolder(dir, true, []string{"*.py"})
		require.NoError(t, err)
		assert.Equal(t, 2, res.TotalFiles)
		assert.Equal(t, 3, res.TotalTokens)

		res, err = agg.CountFolder(dir, false, []string{"*.py"})
		require.NoError(t, err)
		assert.Equal(t, 1, res.TotalFiles)
	})

	t.Run("hidden entries skipped by default", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "seen.py", "a")
		writeFile(t, dir, ".hidden.py", "b")
		writeFile(t, dir, ".secret/inner.py", "c")

		res, err := agg.CountFolder(dir, true, []string{"*.py"})
		require.NoError(t, err)
		assert.Equal(t, 1, res.TotalFiles)

		shown := newTestAggregator()
		shown.IncludeHidden = true
		res, err = shown.CountFolder(dir, true, []string{"*.py"})
		require.NoError(t, err)
		assert.Equal(t, 3, res.TotalFiles)
	})

	t.Run("gitignore honored when enabled", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, ".gitignore", "*.log\n")
		writeFile(t, dir, "kept.txt", "a")
		writeFile(t, dir, "noise.log", "b")

		res, err := agg.CountFolder(dir, true, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, res.TotalFiles) // .gitignore itself is hidden

		ign := newTestAggregator()
		ign.UseGitignore = true
		res, err = ign.CountFolder(dir, true, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, res.TotalFiles)
		assert.Equal(t, "kept.txt", filepath.Base(res.FileResults[0].FilePath))
	})

	t.Run("no matches is success", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "only.txt", "a")
		res, err := agg.CountFolder(dir, true, []string{"*.rs"})
		require.NoError(t, err)
		assert.Zero(t, res.TotalFiles)
		assert.Zero(t, res.TotalTokens)
		assert.Equal(t, StatusSuccess, res.Status)
	})

	t.Run("missing folder is an error", func(t *testing.T) {
		_, err := agg.CountFolder(filepath.Join(t.TempDir(), "ghost"), true, nil)
		require.Error(t, err)
	})

	t.Run("malformed pattern fails before any read", func(t *testing.T) {
		_, err := agg.CountFolder(t.TempDir(), true, []string{"[unclosed"})
		require.Error(t, err)
	})

	t.Run("idempotent over an unchanged tree", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "x.py", "a b")
		writeFile(t, dir, "sub/y.py", "c")
		first, err := agg.CountFolder(dir, true, []string{"*.py"})
		require.NoError(t, err)
		second, err := agg.CountFolder(dir, true, []string{"*.py"})
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestCountFolders(t *testing.T) {
	agg := newTestAggregator()

	t.Run("one folder missing", func(t *testing.T) {
		good := t.TempDir()
		writeFile(t, good, "a.py", "one two")
		writeFile(t, good, "b.py", "three")
		missing := filepath.Join(t.TempDir(), "ghost")

		res, err := agg.CountFolders([]string{good, missing}, true, []string{"*.py"})
		require.NoError(t, err)
		assert.Equal(t, 2, res.TotalFolders)
		require.Len(t, res.FolderResults, 2)

		assert.Equal(t, good, res.FolderResults[0].FolderPath)
		assert.Equal(t, StatusSuccess, res.FolderResults[0].Status)
		assert.Equal(t, 3, res.FolderResults[0].TotalTokens)

		assert.Equal(t, missing, res.FolderResults[1].FolderPath)
		assert.Equal(t, StatusError, res.FolderResults[1].Status)
		assert.NotEmpty(t, res.FolderResults[1].ErrorMessage)

		// Combined totals exclude the missing folder.
		assert.Equal(t, 2, res.TotalFiles)
		assert.Equal(t, 3, res.TotalTokens)
		assert.Equal(t, StatusPartial, res.Status)
		assertInvariants(t, res)
	})

	t.Run("empty input is an error", func(t *testing.T) {
		_, err := agg.CountFolders(nil, true, nil)
		require.Error(t, err)
	})

	t.Run("error markers marshal with an empty file_results array", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "ghost")
		res, err := agg.CountFolders([]string{missing}, true, nil)
		require.NoError(t, err)

		data, err := json.Marshal(res)
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		folders, ok := decoded["folder_results"].([]any)
		require.True(t, ok)
		require.Len(t, folders, 1)
		entry := folders[0].(map[string]any)
		files, ok := entry["file_results"].([]any)
		require.True(t, ok, "file_results must be an array, not null")
		assert.Empty(t, files)
	})
}

func TestCountByPattern(t *testing.T) {
	agg := newTestAggregator()

	t.Run("overlapping patterns deduplicate top-level totals", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "tool.py", "a b c")   // matches *.py and t*
		writeFile(t, dir, "other.py", "d")      // matches *.py
		writeFile(t, dir, "tool.txt", "e f")    // matches t*

		res, err := agg.CountByPattern([]string{dir}, []string{"*.py", "t*"}, true)
		require.NoError(t, err)
		require.Len(t, res.PatternResults, 2)

		py := res.PatternResults[0]
		assert.Equal(t, "*.py", py.Pattern)
		assert.Equal(t, 2, py.TotalFiles)
		assert.Equal(t, 4, py.TotalTokens)

		tstar := res.PatternResults[1]
		assert.Equal(t, "t*", tstar.Pattern)
		assert.Equal(t, 2, tstar.TotalFiles)
		assert.Equal(t, 5, tstar.TotalTokens)

		// tool.py contributes to both subtotals with the same count, but the
		// top-level totals count every distinct file exactly once.
		assert.Equal(t, 3, res.TotalFiles)
		assert.Equal(t, 6, res.TotalTokens)
		assert.Equal(t, 1, res.TotalFolders)
		assertInvariants(t, res)
	})

	t.Run("missing base path becomes a folder error entry", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.py", "x")
		missing := filepath.Join(t.TempDir(), "ghost")

		res, err := agg.CountByPattern([]string{dir, missing}, []string{"*.py"}, true)
		require.NoError(t, err)
		require.Len(t, res.FolderResults, 1)
		assert.Equal(t, missing, res.FolderResults[0].FolderPath)
		assert.Equal(t, StatusError, res.FolderResults[0].Status)
		assert.Equal(t, 1, res.TotalFiles)
		assert.Equal(t, 2, res.TotalFolders)
		assert.Equal(t, StatusPartial, res.Status)
	})

	t.Run("empty arguments are errors", func(t *testing.T) {
		dir := t.TempDir()
		_, err := agg.CountByPattern(nil, []string{"*.py"}, true)
		require.Error(t, err)
		_, err = agg.CountByPattern([]string{dir}, nil, true)
		require.Error(t, err)
	})
}

func TestCountByLanguage(t *testing.T) {
	agg := newTestAggregator()

	t.Run("unknown language fails only its own group", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "app.py", "a b")
		writeFile(t, dir, "main.go", "c d e")

		res, err := agg.CountByLanguage([]string{dir}, []string{"python", "klingon", "go"}, true)
		require.NoError(t, err)
		require.Len(t, res.LanguageResults, 3)

		assert.Equal(t, "python", res.LanguageResults[0].Language)
		assert.Equal(t, StatusSuccess, res.LanguageResults[0].Status)
		assert.Equal(t, 2, res.LanguageResults[0].TotalTokens)

		assert.Equal(t, "klingon", res.LanguageResults[1].Language)
		assert.Equal(t, StatusError, res.LanguageResults[1].Status)
		assert.Contains(t, res.LanguageResults[1].ErrorMessage, "unknown language")
		assert.Zero(t, res.LanguageResults[1].TotalFiles)
		assert.NotNil(t, res.LanguageResults[1].FileResults)

		assert.Equal(t, "go", res.LanguageResults[2].Language)
		assert.Equal(t, 3, res.LanguageResults[2].TotalTokens)

		assert.Equal(t, 2, res.TotalFiles)
		assert.Equal(t, 5, res.TotalTokens)
		assert.Equal(t, 1, res.TotalFolders)
		assert.Equal(t, StatusPartial, res.Status) // degraded by the unknown language
		assertInvariants(t, res)
	})

	t.Run("aliases resolve", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "app.py", "a b")

		res, err := agg.CountByLanguage([]string{dir}, []string{"py"}, true)
		require.NoError(t, err)
		require.Len(t, res.LanguageResults, 1)
		assert.Equal(t, StatusSuccess, res.LanguageResults[0].Status)
		assert.Equal(t, 2, res.TotalTokens)
	})

	t.Run("custom table substitution", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "query.kql", "from events")

		custom := NewLanguageTable(map[string][]string{"kusto": {"*.kql"}})
		a := newTestAggregator()
		a.Languages = custom

		res, err := a.CountByLanguage([]string{dir}, []string{"kusto"}, true)
		require.NoError(t, err)
		assert.Equal(t, 1, res.TotalFiles)
		assert.Equal(t, 2, res.TotalTokens)

		// The built-in identifiers are gone from the custom table.
		res, err = a.CountByLanguage([]string{dir}, []string{"python"}, true)
		require.NoError(t, err)
		assert.Equal(t, StatusError, res.LanguageResults[0].Status)
	})

	t.Run("empty arguments are errors", func(t *testing.T) {
		_, err := agg.CountByLanguage(nil, []string{"python"}, true)
		require.Error(t, err)
		_, err = agg.CountByLanguage([]string{t.TempDir()}, nil, true)
		require.Error(t, err)
	})
}

func TestSymlinksNotFollowed(t *testing.T) {
	agg := newTestAggregator()
	dir := t.TempDir()
	target := writeFile(t, dir, "real.py", "a b")
	link := filepath.Join(dir, "link.py")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	res, err := agg.CountFolder(dir, true, []string{"*.py"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalFiles)
	assert.Equal(t, target, res.FileResults[0].FilePath)
}
