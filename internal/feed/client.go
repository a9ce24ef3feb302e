package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultBaseURL = "https://cryptonews-api.com/api/v1"

// Article is a candidate article from the crypto news feed. It is transient:
// candidates are fetched per request and never persisted as-is.
type Article struct {
	URL           string
	Title         string
	Snippet       string
	Tickers       []string
	PublishedDate string
}

// Client fetches candidate articles from the crypto news API.
type Client struct {
	apiKey  string
	baseURL string
	section string
	client  *http.Client
}

// NewClient creates a feed client reading its token from the given env var.
func NewClient(apiKeyEnv, section string) *Client {
	if section == "" {
		section = "general"
	}
	return &Client{
		apiKey:  os.Getenv(apiKeyEnv),
		baseURL: defaultBaseURL,
		section: section,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// IsConfigured returns whether the API token is available.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// Fetch returns up to items candidate articles for the given ticker set,
// in feed response order. Any failure is logged and yields an empty list:
// the caller treats a malformed response the same as no candidates.
func (c *Client) Fetch(ctx context.Context, tickers []string, items int) []Article {
	if c.apiKey == "" {
		log.Println("news feed not configured, skipping fetch")
		return nil
	}

	if items <= 0 {
		items = 10
	}

	params := url.Values{
		"section": {c.section},
		"items":   {fmt.Sprintf("%d", items)},
		"tickers": {strings.Join(tickers, ",")},
		"token":   {c.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		log.Printf("news feed request error: %v", err)
		return nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("news feed error: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("news feed HTTP error: %d", resp.StatusCode)
		return nil
	}

	var result struct {
		Data []struct {
			NewsURL string   `json:"news_url"`
			Title   string   `json:"title"`
			Text    string   `json:"text"`
			Tickers []string `json:"tickers"`
			Date    string   `json:"date"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Printf("news feed decode error: %v", err)
		return nil
	}

	var articles []Article
	for _, a := range result.Data {
		if a.NewsURL == "" {
			continue
		}
		articles = append(articles, Article{
			URL:           a.NewsURL,
			Title:         strings.TrimSpace(a.Title),
			Snippet:       strings.TrimSpace(a.Text),
			Tickers:       a.Tickers,
			PublishedDate: a.Date,
		})
	}

	log.Printf("fetched %d candidate articles from news feed", len(articles))
	return articles
}
