package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// isWebURL reports whether the input is an HTTP/HTTPS URL.
func isWebURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// fetchWebPage downloads a page, converts its HTML to Markdown and counts the
// markdown text with the aggregator's strategy. The result carries the URL as
// its file path so web inputs mix cleanly into a report. Network access
// happens only here, at the CLI input-resolution layer; the aggregator core
// never touches the network.
func fetchWebPage(agg *Aggregator, pageURL string) FileResult {
	res := FileResult{FilePath: pageURL}

	resp, err := http.Get(pageURL)
	if err != nil {
		return fileError(res, fmt.Sprintf("failed to fetch %s: %v", pageURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fileError(res, fmt.Sprintf("failed to fetch %s: status %d", pageURL, resp.StatusCode))
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return fileError(res, fmt.Sprintf("unsupported content type %q for %s", contentType, pageURL))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fileError(res, fmt.Sprintf("failed to read response from %s: %v", pageURL, err))
	}

	markdown, err := md.NewConverter("", true, nil).ConvertString(string(body))
	if err != nil {
		return fileError(res, fmt.Sprintf("failed to convert %s to markdown: %v", pageURL, err))
	}

	// Prefer the page title as the display path when one exists.
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body))); err == nil {
		if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
			res.FilePath = fmt.Sprintf("%s (%s)", title, pageURL)
		}
	}

	res.FileSizeBytes = int64(len(markdown))
	res.TokenCount = agg.Counter.CountTokens(markdown)
	res.Status = StatusSuccess
	return res
}
