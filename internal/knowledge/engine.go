// Package knowledge implements the ingestion drain loop and the retrieval
// merger over the typed vector collections.
package knowledge

import (
	"context"
	"fmt"
	"log"
	"strings"

	"brainboost/internal/config"
	"brainboost/internal/database"
	"brainboost/internal/llm"
)

// sectionOrder fixes the emission order of retrieval sections.
var sectionOrder = []string{database.TypeNews, database.TypeTransactions, database.TypePrices}

// DrainResult holds the counts of one drain pass.
type DrainResult struct {
	Indexed int
	Skipped int
	Failed  int
}

// Engine drains pending facts into the vector index and answers queries
// from it. Drain strictly precedes retrieval within one call, so a query
// can see facts ingested earlier in the same call.
type Engine struct {
	db          *database.DB
	embedder    llm.Embedder
	drainOrder  []string
	collections map[string]config.Collection
}

// NewEngine creates the knowledge engine.
func NewEngine(cfg *config.Config, db *database.DB, embedder llm.Embedder) *Engine {
	return &Engine{
		db:          db,
		embedder:    embedder,
		drainOrder:  cfg.Knowledge.DrainOrder,
		collections: cfg.Knowledge.Collections,
	}
}

// AnswerFromKnowledge flushes the pending backlog and answers the query from
// the index. Returns "" when no collection has a relevant fact; errors are
// logged and degrade to the same empty result.
func (e *Engine) AnswerFromKnowledge(ctx context.Context, consumerID, query string) string {
	result := e.Drain(ctx)
	if result.Failed > 0 {
		log.Printf("drain finished with %d failed rows (will retry on a later call)", result.Failed)
	}
	return e.Retrieve(ctx, consumerID, query)
}

// Drain moves pending knowledge rows into their vector collections, one type
// at a time in the configured priority order. Each row is claimed atomically
// before embedding so concurrent drains index it at most once; rows inserted
// by producers during the pass wait for the next call.
func (e *Engine) Drain(ctx context.Context) *DrainResult {
	result := &DrainResult{}

	for _, typ := range e.drainOrder {
		pending, err := e.db.PendingKnowledge(typ)
		if err != nil {
			log.Printf("reading pending %s rows failed: %v", typ, err)
			continue
		}

		for _, row := range pending {
			claimed, err := e.db.ClaimKnowledge(row.ID)
			if err != nil {
				log.Printf("claiming knowledge row %d failed: %v", row.ID, err)
				result.Failed++
				continue
			}
			if !claimed {
				// Another caller consumed this row first.
				result.Skipped++
				continue
			}

			if err := e.indexRow(ctx, typ, row); err != nil {
				log.Printf("indexing knowledge row %d failed: %v", row.ID, err)
				if relErr := e.db.ReleaseKnowledge(row.ID); relErr != nil {
					log.Printf("releasing knowledge row %d failed: %v", row.ID, relErr)
				}
				result.Failed++
				continue
			}
			result.Indexed++
		}
	}

	if result.Indexed > 0 {
		log.Printf("drained %d knowledge rows into the vector index", result.Indexed)
	}
	return result
}

func (e *Engine) indexRow(ctx context.Context, collection string, row database.KnowledgeRow) error {
	embeddings, err := e.embedder.Embed(ctx, []string{row.Summary})
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if len(embeddings) == 0 {
		return fmt.Errorf("embedder returned no vectors")
	}
	if err := e.db.InsertVector(collection, row.ID, row.Summary, embeddings[0]); err != nil {
		return fmt.Errorf("inserting vector: %w", err)
	}
	return nil
}

// Retrieve answers the query from the vector collections: one embedding for
// the query, a threshold-bounded nearest-neighbor search per collection, and
// the non-empty sections merged into a single text block. All sections empty
// means "" — no context to inject.
func (e *Engine) Retrieve(ctx context.Context, consumerID, query string) string {
	if strings.TrimSpace(query) == "" {
		return ""
	}

	embeddings, err := e.embedder.Embed(ctx, []string{query})
	if err != nil || len(embeddings) == 0 {
		log.Printf("query embedding failed: %v", err)
		return ""
	}
	queryEmbedding := embeddings[0]

	var sections []string
	for _, typ := range sectionOrder {
		limits := e.collections[typ]
		hits, err := e.db.SearchVectors(typ, queryEmbedding, limits.Count, limits.Threshold)
		if err != nil {
			log.Printf("vector search in %s failed: %v", typ, err)
			continue
		}
		if len(hits) == 0 {
			continue
		}
		sections = append(sections, formatSection(typ, consumerID, hits))
	}

	return strings.Join(sections, "\n\n")
}

// formatSection renders one collection's hits as a numbered list under its
// fixed label.
func formatSection(typ, consumerID string, hits []database.Hit) string {
	var label string
	switch typ {
	case database.TypeTransactions:
		label = fmt.Sprintf("Transaction-related facts that %s knows:", consumerID)
	case database.TypePrices:
		label = fmt.Sprintf("Price-related facts that %s knows:", consumerID)
	default:
		label = fmt.Sprintf("Key facts that %s knows from news:", consumerID)
	}

	lines := make([]string, 0, len(hits)+1)
	lines = append(lines, label)
	for i, hit := range hits {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, hit.Content))
	}
	return strings.Join(lines, "\n")
}
