// Package news implements the news acquisition and dedup engine: one fresh
// article per call, deduplicated per consumer, with a manual buffer fallback.
package news

import (
	"context"
	"fmt"
	"log"
	"strings"

	"brainboost/internal/config"
	"brainboost/internal/database"
	"brainboost/internal/feed"
	"brainboost/internal/manual"
)

// NoNews is returned whenever there is nothing to serve. The engine never
// surfaces an error past its boundary; every failure path resolves to this.
const NoNews = "\n\n#Today News:\nNo news found"

const snippetLines = 3

// Source supplies candidate articles from the external feed.
type Source interface {
	IsConfigured() bool
	Fetch(ctx context.Context, tickers []string, items int) []feed.Article
}

// TextExtractor performs best-effort full-text extraction for one URL.
type TextExtractor interface {
	FullText(ctx context.Context, articleURL string) (string, error)
}

// Provider composes the feed, the extractor, the dedup ledger, and the
// manual overflow buffer into a single fetch-today's-news operation.
type Provider struct {
	db        *database.DB
	source    Source
	extractor TextExtractor
	buffer    *manual.Buffer
	tickers   []string
	items     int
}

// NewProvider creates the news engine.
func NewProvider(cfg *config.Config, db *database.DB, source Source, extractor TextExtractor, buffer *manual.Buffer) *Provider {
	return &Provider{
		db:        db,
		source:    source,
		extractor: extractor,
		buffer:    buffer,
		tickers:   cfg.Feed.Tickers,
		items:     cfg.Feed.Items,
	}
}

// FetchContext returns one context block for the consumer: the first fresh
// candidate whose text extracts successfully, otherwise the manual buffer,
// otherwise the no-news sentinel. At most one article is served per call.
func (p *Provider) FetchContext(ctx context.Context, consumerID string) string {
	if !p.source.IsConfigured() {
		log.Println("no feed credential configured, news engine returning empty")
		return NoNews
	}

	candidates := p.source.Fetch(ctx, p.tickers, p.items)
	if len(candidates) == 0 {
		log.Println("no candidates retrieved from news feed")
		return p.manualFallback()
	}

	// Feed response order is the tie-break; candidates are not re-sorted.
	for _, article := range candidates {
		seen, err := p.db.HasDedupRecord(article.URL, consumerID)
		if err != nil {
			log.Printf("dedup ledger read failed: %v", err)
			return NoNews
		}
		if seen {
			continue
		}

		fullText, extractErr := p.extractor.FullText(ctx, article.URL)

		// Persist the outcome before building any response, so this
		// (url, consumer) pair is never attempted twice even if a later
		// step crashes.
		status := database.ParseSuccess
		if extractErr != nil {
			status = database.ParseFailed
		}
		if err := p.db.InsertDedupRecord(article.URL, consumerID, status); err != nil {
			log.Printf("dedup ledger write failed for %s: %v", article.URL, err)
			return NoNews
		}

		if extractErr != nil {
			log.Printf("extraction failed for %s, marked as processed: %v", article.URL, extractErr)
			continue
		}

		log.Printf("providing new article context: %s (%s)", article.Title, article.URL)
		return formatArticle(article, fullText)
	}

	log.Println("all retrieved articles already processed or failed extraction")
	return p.manualFallback()
}

func (p *Provider) manualFallback() string {
	content, err := p.buffer.Drain()
	if err != nil {
		log.Printf("manual buffer read failed: %v", err)
		return NoNews
	}
	if content == "" {
		return NoNews
	}
	log.Printf("providing news from manual buffer at %s", p.buffer.Path())
	return "\n\n#Today News:\n" + content
}

// formatArticle builds the short context block for one extracted article:
// lead ticker, title, the first lines of full text, publish date, source URL.
func formatArticle(article feed.Article, fullText string) string {
	ticker := "Unknown"
	if len(article.Tickers) > 0 {
		ticker = article.Tickers[0]
	}

	title := article.Title
	if title == "" {
		title = "No Title"
	}

	published := article.PublishedDate
	if published == "" {
		published = "Unknown date"
	}

	lines := strings.Split(fullText, "\n")
	if len(lines) > snippetLines {
		lines = lines[:snippetLines]
	}
	shortExtract := strings.Join(lines, "\n") + "..."

	block := fmt.Sprintf("**%s News**: %s\nShort Snippet:\n%s\nPublished at: %s\nSource: %s",
		ticker, title, shortExtract, published, article.URL)
	return "\n\n#Today News:\n" + block
}
