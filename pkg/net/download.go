package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const maxDocumentBytes = 10 << 20

var ErrorURLNotFound = errors.New("URL not found")

// IsURL reports whether s looks like an http(s) location.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Fetch downloads the document at url.
func Fetch(ctx context.Context, url string) ([]byte, error) {
	c, err := GetHTTPClient()
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP client: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP Get request: %w", err)
	}
	req.Header.Set("User-Agent", clientAgent)

	resp, err := c.Do(req) //nolint:gosec // URL supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrorURLNotFound
	}

	if resp.StatusCode != http.StatusOK {
		PrintHTTPResponse(resp)
		return nil, fmt.Errorf("error downloading document (status: %d - %s): %s", resp.StatusCode, resp.Status, url)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading downloaded content: %w", err)
	}
	return b, nil
}

// ReadSource returns the content of a local file or a remote URL.
func ReadSource(ctx context.Context, src string) ([]byte, error) {
	if src == "" {
		return nil, errors.New("source is required")
	}
	if IsURL(src) {
		return Fetch(ctx, src)
	}
	b, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", src, err)
	}
	return b, nil
}
