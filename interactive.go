package main

import (
	"fmt"
	"io/fs"
	"path/filepath"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
)

// runInteractiveFinder walks the current directory and opens a fuzzy finder
// so the user can pick the paths to count. Returns nil when the selection is
// aborted.
func runInteractiveFinder(includeHidden bool) ([]string, error) {
	candidates := []string{}
	root := "."

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries, keep walking
		}
		if path == root {
			return nil
		}
		if !includeHidden && isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning for candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no files or directories found under %s", root)
	}

	indices, err := fuzzyfinder.FindMulti(candidates, func(i int) string {
		return candidates[i]
	})
	if err != nil {
		if err == fuzzyfinder.ErrAbort {
			return nil, nil
		}
		return nil, fmt.Errorf("interactive selection failed: %w", err)
	}

	selected := make([]string, 0, len(indices))
	for _, i := range indices {
		selected = append(selected, candidates[i])
	}
	return selected, nil
}
