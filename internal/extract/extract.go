package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// minTextLength filters out pages where readability only found boilerplate.
const minTextLength = 100

// Extractor performs best-effort full-text extraction for a single URL.
// One attempt per call, bounded by the client timeout, no retries.
type Extractor struct {
	client *http.Client
}

// New creates an extractor with the given per-request timeout.
func New(timeout time.Duration) *Extractor {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Extractor{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FullText fetches the page at articleURL and extracts its readable text.
// Any failure (network, HTTP status, unextractable markup) returns an error;
// the caller records the outcome and never retries this URL.
func (e *Extractor) FullText(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", articleURL, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", "brainboost/1.0 (context provider)")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("article fetch returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading article body: %w", err)
	}

	parsedURL, _ := url.Parse(articleURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return "", fmt.Errorf("extracting article text: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minTextLength {
		return "", fmt.Errorf("no extractable content (%d chars)", len(text))
	}
	return text, nil
}
