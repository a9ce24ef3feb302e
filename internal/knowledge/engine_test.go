package knowledge

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"brainboost/internal/config"
	"brainboost/internal/database"
)

// fakeEmbedder maps known texts to fixed vectors. Unknown texts fail unless
// a fallback vector is set.
type fakeEmbedder struct {
	vectors map[string][]float64
	failOn  map[string]bool
	calls   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	f.calls++
	result := make([][]float64, len(texts))
	for i, text := range texts {
		if f.failOn[text] {
			return nil, errors.New("embedding backend unavailable")
		}
		v, ok := f.vectors[text]
		if !ok {
			v = []float64{0, 1}
		}
		result[i] = v
	}
	return result, nil
}

func newTestEngine(t *testing.T, embedder *fakeEmbedder) (*Engine, *database.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Knowledge: config.Knowledge{
			DrainOrder: []string{"transactions", "prices", "news"},
			Collections: map[string]config.Collection{
				"news":         {Count: 10, Threshold: 0.7},
				"transactions": {Count: 5, Threshold: 0.75},
				"prices":       {Count: 5, Threshold: 0.75},
			},
		},
	}
	return NewEngine(cfg, db, embedder), db
}

func TestDrainIndexesAllPendingRows(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float64{}}
	engine, db := newTestEngine(t, embedder)

	db.InsertKnowledge(database.TypeNews, "news fact")
	db.InsertKnowledge(database.TypeTransactions, "transaction fact")
	db.InsertKnowledge(database.TypePrices, "price fact")

	result := engine.Drain(context.Background())
	if result.Indexed != 3 {
		t.Errorf("expected 3 indexed rows, got %+v", result)
	}

	for _, typ := range []string{database.TypeNews, database.TypeTransactions, database.TypePrices} {
		n, _ := db.CountVectors(typ)
		if n != 1 {
			t.Errorf("expected 1 vector in %s, got %d", typ, n)
		}
		pending, _ := db.PendingKnowledge(typ)
		if len(pending) != 0 {
			t.Errorf("expected no pending %s rows, got %d", typ, len(pending))
		}
	}

	// A second drain with no new rows performs zero insertions.
	result = engine.Drain(context.Background())
	if result.Indexed != 0 {
		t.Errorf("expected idle second drain, got %+v", result)
	}
}

func TestDrainReleasesRowOnEmbeddingFailure(t *testing.T) {
	embedder := &fakeEmbedder{failOn: map[string]bool{"poison fact": true}}
	engine, db := newTestEngine(t, embedder)

	id, _ := db.InsertKnowledge(database.TypeNews, "poison fact")
	db.InsertKnowledge(database.TypeNews, "good fact")

	result := engine.Drain(context.Background())
	if result.Indexed != 1 || result.Failed != 1 {
		t.Errorf("expected 1 indexed / 1 failed, got %+v", result)
	}

	// The failed row is back in the queue for a later call.
	row, _ := db.GetKnowledgeByID(id)
	if row == nil || row.Processed {
		t.Errorf("expected failed row to return to pending, got %+v", row)
	}
	n, _ := db.CountVectors(database.TypeNews)
	if n != 1 {
		t.Errorf("expected only the good fact indexed, got %d vectors", n)
	}
}

func TestAnswerFromKnowledgeDrainPrecedesRetrieval(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float64{
		"BTC broke its all-time high": {1, 0},
		"what happened to BTC?":       {1, 0},
	}}
	engine, db := newTestEngine(t, embedder)
	db.InsertKnowledge(database.TypePrices, "BTC broke its all-time high")

	got := engine.AnswerFromKnowledge(context.Background(), "Luna", "what happened to BTC?")
	if !strings.Contains(got, "Price-related facts that Luna knows:") {
		t.Errorf("expected prices section, got %q", got)
	}
	if !strings.Contains(got, "1. BTC broke its all-time high") {
		t.Errorf("expected fact ingested in the same call to be retrievable, got %q", got)
	}
}

func TestRetrieveSectionFormatting(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float64{"query": {1, 0}}}
	engine, db := newTestEngine(t, embedder)

	db.InsertVector(database.TypeNews, 1, "news fact A", []float64{1, 0})
	db.InsertVector(database.TypeNews, 2, "news fact B", []float64{0.95, 0.05})
	db.InsertVector(database.TypePrices, 3, "price fact", []float64{1, 0})
	// Below the transactions threshold: excluded entirely.
	db.InsertVector(database.TypeTransactions, 4, "irrelevant transaction", []float64{0, 1})

	got := engine.Retrieve(context.Background(), "Luna", "query")

	sections := strings.Split(got, "\n\n")
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections separated by a blank line, got %d: %q", len(sections), got)
	}
	if !strings.HasPrefix(sections[0], "Key facts that Luna knows from news:") {
		t.Errorf("expected news section first, got %q", sections[0])
	}
	if !strings.Contains(sections[0], "1. news fact A") || !strings.Contains(sections[0], "2. news fact B") {
		t.Errorf("expected numbered news facts, got %q", sections[0])
	}
	if !strings.HasPrefix(sections[1], "Price-related facts that Luna knows:") {
		t.Errorf("expected prices section second, got %q", sections[1])
	}
	if strings.Contains(got, "irrelevant transaction") {
		t.Error("expected below-threshold hit to be excluded")
	}
}

func TestRetrieveRespectsPerCollectionCount(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float64{"query": {1, 0}}}
	engine, db := newTestEngine(t, embedder)
	engine.collections["news"] = config.Collection{Count: 2, Threshold: 0.5}

	for i := int64(1); i <= 5; i++ {
		db.InsertVector(database.TypeNews, i, "news fact", []float64{1, 0})
	}

	got := engine.Retrieve(context.Background(), "Luna", "query")
	if strings.Count(got, "news fact") != 2 {
		t.Errorf("expected at most 2 hits from the news collection, got %q", got)
	}
}

func TestRetrieveEmptyState(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float64{"query": {1, 0}}}
	engine, _ := newTestEngine(t, embedder)

	if got := engine.AnswerFromKnowledge(context.Background(), "Luna", "query"); got != "" {
		t.Errorf("expected empty string for empty index, got %q", got)
	}
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	embedder := &fakeEmbedder{failOn: map[string]bool{"query": true}}
	engine, db := newTestEngine(t, embedder)
	db.InsertVector(database.TypeNews, 1, "news fact", []float64{1, 0})

	if got := engine.Retrieve(context.Background(), "Luna", "query"); got != "" {
		t.Errorf("expected empty string on embedding failure, got %q", got)
	}
}

func TestRetrieveBlankQuery(t *testing.T) {
	embedder := &fakeEmbedder{}
	engine, _ := newTestEngine(t, embedder)

	if got := engine.Retrieve(context.Background(), "Luna", "   "); got != "" {
		t.Errorf("expected empty string for blank query, got %q", got)
	}
	if embedder.calls != 0 {
		t.Error("expected no embedding call for blank query")
	}
}
