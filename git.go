package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog/log"
)

// isGitURL reports whether the input looks like a Git repository URL.
// HTTP(S) URLs without a .git suffix are treated as web pages, not repos.
func isGitURL(input string) bool {
	return strings.HasSuffix(input, ".git") || strings.HasPrefix(input, "git@")
}

// cloneGitRepo clones the default branch of a repository into a temporary
// directory and returns its path. The caller is responsible for removing
// the directory afterwards.
func cloneGitRepo(url string) (string, error) {
	tempDir, err := os.MkdirTemp("", "tokentally-git-")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary directory: %w", err)
	}

	log.Info().Str("url", url).Str("dir", tempDir).Msg("cloning git repository")

	_, err = git.PlainClone(tempDir, false, &git.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.HEAD,
		SingleBranch:  true,
		Depth:         1,
	})
	if err != nil {
		_ = os.RemoveAll(tempDir)
		return "", fmt.Errorf("failed to clone repository %q: %w", url, err)
	}
	return tempDir, nil
}
