package main

import (
	"encoding/json"
	"fmt"
	"strings"
)

// renderJSON marshals the aggregate with the stable wire field names
// (total_files, file_results, ...).
func renderJSON(agg *AggregateResult) (string, error) {
	data, err := json.MarshalIndent(agg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error encoding result: %w", err)
	}
	return string(data) + "\n", nil
}

// renderText generates the human-readable report: group tables first (when
// the call grouped by folder, pattern or language), then per-file lines,
// then the summary.
func renderText(agg *AggregateResult, showFiles bool) string {
	var b strings.Builder

	if len(agg.FolderResults) > 0 {
		b.WriteString("--- Folders ---\n")
		for _, fr := range agg.FolderResults {
			if fr.Status == StatusError && fr.ErrorMessage != "" {
				b.WriteString(fmt.Sprintf("%s: error (%s)\n", fr.FolderPath, fr.ErrorMessage))
				continue
			}
			b.WriteString(fmt.Sprintf("%s: %s\n", fr.FolderPath, groupLine(&fr.AggregateResult)))
		}
		b.WriteString("\n")
	}

	if len(agg.PatternResults) > 0 {
		b.WriteString("--- Patterns ---\n")
		for _, pr := range agg.PatternResults {
			b.WriteString(fmt.Sprintf("%s: %s\n", pr.Pattern, groupLine(&pr.AggregateResult)))
		}
		b.WriteString("\n")
	}

	if len(agg.LanguageResults) > 0 {
		b.WriteString("--- Languages ---\n")
		for _, lr := range agg.LanguageResults {
			if lr.Status == StatusError && lr.ErrorMessage != "" {
				b.WriteString(fmt.Sprintf("%s: error (%s)\n", lr.Language, lr.ErrorMessage))
				continue
			}
			b.WriteString(fmt.Sprintf("%s (%s): %s\n", lr.Language, strings.Join(lr.Patterns, ", "), groupLine(&lr.AggregateResult)))
		}
		b.WriteString("\n")
	}

	if showFiles && len(agg.FileResults) > 0 {
		b.WriteString("--- Files ---\n")
		for _, fr := range agg.FileResults {
			if fr.Status == StatusError {
				b.WriteString(fmt.Sprintf("%s: error (%s)\n", fr.FilePath, fr.ErrorMessage))
				continue
			}
			b.WriteString(fmt.Sprintf("%s: %d tokens, %d bytes\n", fr.FilePath, fr.TokenCount, fr.FileSizeBytes))
		}
		b.WriteString("\n")
	}

	b.WriteString("--- Summary ---\n")
	if agg.TotalFolders > 0 {
		b.WriteString(fmt.Sprintf("Total folders: %d\n", agg.TotalFolders))
	}
	b.WriteString(fmt.Sprintf("Total files: %d (ok %d, failed %d)\n", agg.TotalFiles, agg.SuccessfulFiles, agg.FailedFiles))
	b.WriteString(fmt.Sprintf("Total tokens: %d\n", agg.TotalTokens))
	b.WriteString(fmt.Sprintf("Status: %s\n", agg.Status))
	return b.String()
}

func groupLine(agg *AggregateResult) string {
	return fmt.Sprintf("%d files, %d tokens (%s)", agg.TotalFiles, agg.TotalTokens, agg.Status)
}
