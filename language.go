package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LanguageTable maps language identifiers (e.g. "python") to the glob
// patterns for their source files (e.g. "*.py"). The table is immutable
// after construction so aggregations over it are deterministic and tests can
// substitute their own tables.
type LanguageTable struct {
	patterns map[string][]string
	aliases  map[string]string
}

// defaultLanguagePatterns is the built-in identifier -> patterns table.
var defaultLanguagePatterns = map[string][]string{
	"c":          {"*.c", "*.h"},
	"cpp":        {"*.cpp", "*.cc", "*.cxx", "*.hpp", "*.hh"},
	"csharp":     {"*.cs"},
	"css":        {"*.css", "*.scss"},
	"go":         {"*.go"},
	"html":       {"*.html", "*.htm"},
	"java":       {"*.java"},
	"javascript": {"*.js", "*.mjs", "*.cjs", "*.jsx"},
	"json":       {"*.json"},
	"kotlin":     {"*.kt", "*.kts"},
	"markdown":   {"*.md", "*.markdown"},
	"perl":       {"*.pl", "*.pm"},
	"php":        {"*.php"},
	"python":     {"*.py", "*.pyw"},
	"r":          {"*.r", "*.R"},
	"ruby":       {"*.rb", "*.rake"},
	"rust":       {"*.rs"},
	"scala":      {"*.scala"},
	"shell":      {"*.sh", "*.bash"},
	"sql":        {"*.sql"},
	"swift":      {"*.swift"},
	"typescript": {"*.ts", "*.tsx"},
	"yaml":       {"*.yml", "*.yaml"},
}

var defaultLanguageAliases = map[string]string{
	"c#":     "csharp",
	"c++":    "cpp",
	"golang": "go",
	"js":     "javascript",
	"md":     "markdown",
	"py":     "python",
	"rb":     "ruby",
	"rs":     "rust",
	"sh":     "shell",
	"ts":     "typescript",
	"yml":    "yaml",
}

// DefaultLanguages returns the built-in language table.
func DefaultLanguages() *LanguageTable {
	return NewLanguageTable(defaultLanguagePatterns)
}

// NewLanguageTable builds a table from an identifier -> patterns map. The
// input map is copied; identifiers are matched case-insensitively.
func NewLanguageTable(patterns map[string][]string) *LanguageTable {
	t := &LanguageTable{
		patterns: make(map[string][]string, len(patterns)),
		aliases:  make(map[string]string, len(defaultLanguageAliases)),
	}
	for lang, pats := range patterns {
		t.patterns[strings.ToLower(lang)] = append([]string(nil), pats...)
	}
	for alias, lang := range defaultLanguageAliases {
		if _, ok := t.patterns[lang]; ok {
			t.aliases[alias] = lang
		}
	}
	return t
}

// Patterns resolves a language identifier to its glob patterns. The second
// return reports whether the identifier (or one of its aliases) is known.
func (t *LanguageTable) Patterns(language string) ([]string, bool) {
	if t == nil {
		return nil, false
	}
	key := strings.ToLower(strings.TrimSpace(language))
	if canonical, ok := t.aliases[key]; ok {
		key = canonical
	}
	pats, ok := t.patterns[key]
	if !ok {
		return nil, false
	}
	return append([]string(nil), pats...), true
}

// Languages returns the known identifiers, sorted.
func (t *LanguageTable) Languages() []string {
	langs := make([]string, 0, len(t.patterns))
	for lang := range t.patterns {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// loadLanguageTable loads the built-in table, merged with user overrides from
// languages.yml if one exists in the standard config locations. The override
// file maps identifiers to pattern lists:
//
//	python: ["*.py", "*.pyi"]
//	vue: ["*.vue"]
func loadLanguageTable() (*LanguageTable, error) {
	merged := make(map[string][]string, len(defaultLanguagePatterns))
	for lang, pats := range defaultLanguagePatterns {
		merged[lang] = pats
	}

	configPaths := []string{}
	if home, err := os.UserHomeDir(); err == nil {
		configPaths = append(configPaths, filepath.Join(home, ".config", "tokentally"))
	}
	configPaths = append(configPaths, ".")

	for _, p := range configPaths {
		langFilePath := filepath.Join(p, "languages.yml")
		if _, err := os.Stat(langFilePath); err != nil {
			continue
		}
		raw, err := os.ReadFile(langFilePath)
		if err != nil {
			return nil, fmt.Errorf("error reading language file %s: %w", langFilePath, err)
		}
		var overrides map[string][]string
		if err := yaml.Unmarshal(raw, &overrides); err != nil {
			return nil, fmt.Errorf("error parsing language file %s: %w", langFilePath, err)
		}
		for lang, pats := range overrides {
			merged[strings.ToLower(lang)] = pats
		}
		break
	}

	return NewLanguageTable(merged), nil
}
