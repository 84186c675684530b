package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	gitignore "github.com/monochromegane/go-gitignore"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/ianaindex"
)

// Aggregator resolves target files from paths, folders, glob patterns or
// language identifiers, counts tokens per file with the injected Counter,
// and assembles structured aggregates. Per-file and per-folder failures are
// reported as result data; only an invalid call shape (empty argument list,
// malformed glob) returns an error.
//
// Policies, applied consistently across all operations:
//   - hidden files and directories are skipped during folder walks unless
//     IncludeHidden is set; explicitly named file paths are always counted
//   - symlinks are never followed; only regular files are counted
//   - a .gitignore at the walk root is honored when UseGitignore is set
//   - file contents are decoded per Encoding (IANA name, default UTF-8);
//     undecodable content is a per-file error
//
// Aggregator holds no state across calls and performs read-only file-system
// access only.
type Aggregator struct {
	Counter       Counter
	Languages     *LanguageTable
	Encoding      string
	IncludeHidden bool
	UseGitignore  bool
	Log           zerolog.Logger
}

// NewAggregator returns an Aggregator using the given counting strategy,
// the built-in language table and UTF-8 decoding.
func NewAggregator(counter Counter) *Aggregator {
	return &Aggregator{
		Counter:   counter,
		Languages: DefaultLanguages(),
		Log:       zerolog.Nop(),
	}
}

// CountFile reads and counts a single file. Failures (missing path, not a
// regular file, unreadable, undecodable) are reported in the result, never
// as an error.
func (a *Aggregator) CountFile(path string) FileResult {
	res := FileResult{FilePath: path}

	info, err := os.Stat(path)
	if err != nil {
		return fileError(res, err.Error())
	}
	if !info.Mode().IsRegular() {
		return fileError(res, fmt.Sprintf("not a regular file: %s", path))
	}
	res.FileSizeBytes = info.Size()

	raw, err := os.ReadFile(path)
	if err != nil {
		return fileError(res, err.Error())
	}
	text, err := a.decode(raw)
	if err != nil {
		return fileError(res, fmt.Sprintf("cannot decode %s: %v", path, err))
	}

	res.TokenCount = a.Counter.CountTokens(text)
	res.Status = StatusSuccess
	return res
}

// CountFiles counts each path in the given order. file_results order matches
// the input order.
func (a *Aggregator) CountFiles(paths []string) (*AggregateResult, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no paths provided")
	}
	results := make([]FileResult, 0, len(paths))
	for _, p := range paths {
		results = append(results, a.CountFile(p))
	}
	agg := aggregate(results)
	return &agg, nil
}

// CountFolder counts the files under folder. With recursive it descends into
// subdirectories, otherwise only the immediate directory is read. When
// patterns is non-empty only file names matching at least one glob are
// included. A missing or unreadable folder is an error here; the grouped
// operations turn that into a per-folder error entry.
func (a *Aggregator) CountFolder(folder string, recursive bool, patterns []string) (*AggregateResult, error) {
	if err := validatePatterns(patterns); err != nil {
		return nil, err
	}
	files, err := a.resolveFolder(folder, recursive, patterns)
	if err != nil {
		return nil, err
	}
	results := make([]FileResult, 0, len(files))
	for _, f := range files {
		results = append(results, a.CountFile(f))
	}
	agg := aggregate(results)
	return &agg, nil
}

// CountFolders runs CountFolder per folder, recording a folder that cannot
// be resolved as an error entry instead of aborting its siblings. Combined
// totals cover only the files of the folders that resolved.
func (a *Aggregator) CountFolders(folders []string, recursive bool, patterns []string) (*AggregateResult, error) {
	if len(folders) == 0 {
		return nil, fmt.Errorf("no folders provided")
	}
	if err := validatePatterns(patterns); err != nil {
		return nil, err
	}

	var entries []FolderResult
	var combined []FileResult
	folderFailures := 0

	for _, folder := range folders {
		sub, err := a.CountFolder(folder, recursive, patterns)
		if err != nil {
			a.Log.Warn().Str("folder", folder).Err(err).Msg("folder could not be resolved")
			entries = append(entries, FolderResult{
				FolderPath:      folder,
				ErrorMessage:    err.Error(),
				AggregateResult: errorAggregate(),
			})
			folderFailures++
			continue
		}
		entries = append(entries, FolderResult{FolderPath: folder, AggregateResult: *sub})
		combined = append(combined, sub.FileResults...)
	}

	agg := aggregate(combined)
	agg.Status = overallStatus(agg.SuccessfulFiles, agg.FailedFiles+folderFailures)
	agg.TotalFolders = len(folders)
	agg.FolderResults = entries
	return &agg, nil
}

// CountByPattern resolves, per pattern, the matching files across all base
// paths and reports one group per pattern. Patterns are independent
// groupings: a file matched by two patterns contributes its tokens to both
// subtotals. The top-level totals de-duplicate, counting every distinct file
// exactly once. A base path that is not a readable directory becomes a
// folder error entry and is excluded from all groups; total_folders reports
// the number of base paths, same convention as CountFolders.
func (a *Aggregator) CountByPattern(basePaths, patterns []string, recursive bool) (*AggregateResult, error) {
	if len(basePaths) == 0 {
		return nil, fmt.Errorf("no base paths provided")
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no patterns provided")
	}
	if err := validatePatterns(patterns); err != nil {
		return nil, err
	}

	bases, folderErrs := a.checkBasePaths(basePaths)
	seen := make(map[string]FileResult)
	var unique []FileResult

	groups := make([]PatternResult, 0, len(patterns))
	for _, pattern := range patterns {
		var groupResults []FileResult
		for _, base := range bases {
			files, err := a.resolveFolder(base, recursive, []string{pattern})
			if err != nil {
				// Base paths were checked up front; a race here degrades to
				// a per-group miss rather than aborting the call.
				a.Log.Warn().Str("folder", base).Err(err).Msg("base path no longer resolvable")
				continue
			}
			for _, f := range files {
				res, ok := seen[f]
				if !ok {
					res = a.CountFile(f)
					seen[f] = res
					unique = append(unique, res)
				}
				groupResults = append(groupResults, res)
			}
		}
		groups = append(groups, PatternResult{Pattern: pattern, AggregateResult: aggregate(groupResults)})
	}

	agg := aggregate(unique)
	agg.Status = overallStatus(agg.SuccessfulFiles, agg.FailedFiles+len(folderErrs))
	agg.TotalFolders = len(basePaths)
	agg.PatternResults = groups
	agg.FolderResults = folderErrs
	return &agg, nil
}

// CountByLanguage maps each language identifier to its glob patterns and
// reports one group per language. An unrecognized identifier fails its own
// group without aborting the others. Files shared between languages are
// de-duplicated in the top-level totals, same as CountByPattern.
func (a *Aggregator) CountByLanguage(basePaths, languages []string, recursive bool) (*AggregateResult, error) {
	if len(basePaths) == 0 {
		return nil, fmt.Errorf("no base paths provided")
	}
	if len(languages) == 0 {
		return nil, fmt.Errorf("no languages provided")
	}

	bases, folderErrs := a.checkBasePaths(basePaths)
	seen := make(map[string]FileResult)
	var unique []FileResult
	groupFailures := 0

	groups := make([]LanguageResult, 0, len(languages))
	for _, language := range languages {
		patterns, ok := a.Languages.Patterns(language)
		if !ok {
			a.Log.Warn().Str("language", language).Msg("unknown language identifier")
			groups = append(groups, LanguageResult{
				Language:        language,
				ErrorMessage:    fmt.Sprintf("unknown language: %s", language),
				AggregateResult: errorAggregate(),
			})
			groupFailures++
			continue
		}

		var groupResults []FileResult
		for _, base := range bases {
			files, err := a.resolveFolder(base, recursive, patterns)
			if err != nil {
				a.Log.Warn().Str("folder", base).Err(err).Msg("base path no longer resolvable")
				continue
			}
			for _, f := range files {
				res, ok := seen[f]
				if !ok {
					res = a.CountFile(f)
					seen[f] = res
					unique = append(unique, res)
				}
				groupResults = append(groupResults, res)
			}
		}
		groups = append(groups, LanguageResult{
			Language:        language,
			Patterns:        patterns,
			AggregateResult: aggregate(groupResults),
		})
	}

	agg := aggregate(unique)
	agg.Status = overallStatus(agg.SuccessfulFiles, agg.FailedFiles+len(folderErrs)+groupFailures)
	agg.TotalFolders = len(basePaths)
	agg.LanguageResults = groups
	agg.FolderResults = folderErrs
	return &agg, nil
}

// --- resolution helpers ---

// checkBasePaths splits base paths into usable directories and error
// markers for paths that are missing or not directories.
func (a *Aggregator) checkBasePaths(basePaths []string) ([]string, []FolderResult) {
	var bases []string
	var folderErrs []FolderResult
	for _, base := range basePaths {
		info, err := os.Stat(base)
		switch {
		case err != nil:
			folderErrs = append(folderErrs, FolderResult{
				FolderPath:      base,
				ErrorMessage:    err.Error(),
				AggregateResult: errorAggregate(),
			})
		case !info.IsDir():
			folderErrs = append(folderErrs, FolderResult{
				FolderPath:      base,
				ErrorMessage:    fmt.Sprintf("not a directory: %s", base),
				AggregateResult: errorAggregate(),
			})
		default:
			bases = append(bases, base)
		}
	}
	return bases, folderErrs
}

// resolveFolder lists the regular files under root that pass the hidden,
// gitignore and pattern filters. Walk order is lexical, so repeated calls
// over an unchanged tree yield identical results.
func (a *Aggregator) resolveFolder(root string, recursive bool, patterns []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("error accessing folder %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	var ignoreMatcher gitignore.IgnoreMatcher
	if a.UseGitignore {
		gitIgnorePath := filepath.Join(root, ".gitignore")
		if _, err := os.Stat(gitIgnorePath); err == nil {
			matcher, err := gitignore.NewGitIgnore(gitIgnorePath)
			if err != nil {
				a.Log.Warn().Str("path", gitIgnorePath).Err(err).Msg("could not parse .gitignore")
			} else {
				ignoreMatcher = matcher
			}
		}
	}

	var files []string

	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("error reading folder %s: %w", root, err)
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			name := entry.Name()
			if !a.IncludeHidden && isHidden(name) {
				continue
			}
			if ignoreMatcher != nil && ignoreMatcher.Match(name, false) {
				continue
			}
			if matchesAnyPattern(name, patterns) {
				files = append(files, filepath.Join(root, name))
			}
		}
		return files, nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			a.Log.Warn().Str("path", path).Err(err).Msg("error accessing path")
			return nil
		}
		if path == root {
			return nil
		}

		name := d.Name()
		isDir := d.IsDir()

		if !a.IncludeHidden && isHidden(name) {
			if isDir {
				return fs.SkipDir
			}
			return nil
		}
		if ignoreMatcher != nil {
			relPath, _ := filepath.Rel(root, path)
			if ignoreMatcher.Match(relPath, isDir) {
				if isDir {
					return fs.SkipDir
				}
				return nil
			}
		}
		if isDir {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if matchesAnyPattern(name, patterns) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking folder %s: %w", root, err)
	}
	return files, nil
}

// validatePatterns rejects malformed globs before any file access.
func validatePatterns(patterns []string) error {
	for _, p := range patterns {
		if _, err := filepath.Match(p, "probe"); err != nil {
			return fmt.Errorf("invalid glob pattern %q: %w", p, err)
		}
	}
	return nil
}

// matchesAnyPattern reports whether name matches at least one glob. An empty
// pattern set matches everything. Patterns are validated beforehand, so
// match errors cannot occur here.
func matchesAnyPattern(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// isHidden reports whether a base name is a dotfile.
func isHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return len(name) > 0 && name[0] == '.'
}

// decode converts raw file bytes to text according to the configured
// encoding. The empty name means UTF-8, which is validated strictly.
func (a *Aggregator) decode(raw []byte) (string, error) {
	name := strings.TrimSpace(a.Encoding)
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("invalid UTF-8")
		}
		return string(raw), nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return "", fmt.Errorf("unknown encoding %q", name)
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func fileError(res FileResult, msg string) FileResult {
	res.Status = StatusError
	res.ErrorMessage = msg
	res.TokenCount = 0
	return res
}
