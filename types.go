package main

// Status classifies the outcome of a file or an aggregation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusError   Status = "error"
)

// FileResult holds the outcome for a single counted file. It is built once
// per resolved file and never mutated afterwards.
type FileResult struct {
	FilePath      string `json:"file_path"`
	TokenCount    int    `json:"token_count"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	Status        Status `json:"status"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// AggregateResult is the structured outcome of one aggregation call.
// The grouping fields are only populated by the corresponding operation
// (CountFolders, CountByPattern, CountByLanguage).
type AggregateResult struct {
	TotalFiles      int          `json:"total_files"`
	SuccessfulFiles int          `json:"successful_files"`
	FailedFiles     int          `json:"failed_files"`
	TotalTokens     int          `json:"total_tokens"`
	Status          Status       `json:"status"`
	FileResults     []FileResult `json:"file_results"`

	TotalFolders    int              `json:"total_folders,omitempty"`
	FolderResults   []FolderResult   `json:"folder_results,omitempty"`
	PatternResults  []PatternResult  `json:"pattern_results,omitempty"`
	LanguageResults []LanguageResult `json:"language_results,omitempty"`
}

// FolderResult is one entry of a folder-grouped aggregation: either the
// nested result for that folder, or an error marker when the folder could
// not be resolved.
type FolderResult struct {
	FolderPath   string `json:"folder_path"`
	ErrorMessage string `json:"error_message,omitempty"`
	AggregateResult
}

// PatternResult is one entry of a pattern-grouped aggregation. Patterns are
// independent groupings, not a partition: a file matched by two patterns
// shows up in both entries.
type PatternResult struct {
	Pattern string `json:"pattern"`
	AggregateResult
}

// LanguageResult is one entry of a language-grouped aggregation. An
// unrecognized language identifier yields an error entry with zero counts.
type LanguageResult struct {
	Language     string   `json:"language"`
	Patterns     []string `json:"patterns,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
	AggregateResult
}

// aggregate builds an AggregateResult from per-file results, computing the
// totals and overall status. Order of results is preserved.
func aggregate(results []FileResult) AggregateResult {
	if results == nil {
		results = []FileResult{}
	}
	agg := AggregateResult{FileResults: results}
	for _, r := range results {
		agg.TotalFiles++
		if r.Status == StatusSuccess {
			agg.SuccessfulFiles++
			agg.TotalTokens += r.TokenCount
		} else {
			agg.FailedFiles++
		}
	}
	agg.Status = overallStatus(agg.SuccessfulFiles, agg.FailedFiles)
	return agg
}

// errorAggregate builds the zero-file aggregate used for error markers. It
// goes through aggregate so markers keep the same wire shape as real
// results (file_results as an empty array, never null).
func errorAggregate() AggregateResult {
	agg := aggregate(nil)
	agg.Status = StatusError
	return agg
}

// mergeAggregates folds two aggregates into one: file results and group
// entries are concatenated, totals are recomputed from the combined file
// results, and folder error markers keep degrading the overall status.
func mergeAggregates(a, b *AggregateResult) *AggregateResult {
	combined := make([]FileResult, 0, len(a.FileResults)+len(b.FileResults))
	combined = append(combined, a.FileResults...)
	combined = append(combined, b.FileResults...)

	merged := aggregate(combined)
	merged.TotalFolders = a.TotalFolders + b.TotalFolders
	merged.FolderResults = append(append([]FolderResult(nil), a.FolderResults...), b.FolderResults...)
	merged.PatternResults = append(append([]PatternResult(nil), a.PatternResults...), b.PatternResults...)
	merged.LanguageResults = append(append([]LanguageResult(nil), a.LanguageResults...), b.LanguageResults...)
	merged.Status = overallStatus(merged.SuccessfulFiles, merged.FailedFiles+folderFailures(merged.FolderResults))
	return &merged
}

// folderFailures counts the error markers among folder entries.
func folderFailures(entries []FolderResult) int {
	n := 0
	for _, e := range entries {
		if e.ErrorMessage != "" {
			n++
		}
	}
	return n
}

// overallStatus derives the aggregate status: an empty result set is a
// success (no matches is not an error), all failures is an error, and a mix
// is partial.
func overallStatus(successes, failures int) Status {
	switch {
	case failures == 0:
		return StatusSuccess
	case successes == 0:
		return StatusError
	default:
		return StatusPartial
	}
}
