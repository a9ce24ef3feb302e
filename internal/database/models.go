package database

// Parse status values for dedup records.
const (
	ParseSuccess = "success"
	ParseFailed  = "failed"
)

// Knowledge types. Each type maps to one vector collection namespace.
const (
	TypeNews         = "news"
	TypeTransactions = "transactions"
	TypePrices       = "prices"
)

// DedupRecord marks that an extraction was attempted for a (url, consumer) pair.
// Records are written once and never updated.
type DedupRecord struct {
	URL         string
	ConsumerID  string
	ProcessedAt string
	ParseStatus string
}

// KnowledgeRow is a pending or consumed fact in the knowledge queue.
type KnowledgeRow struct {
	ID        int64
	Type      string
	Summary   string
	Processed bool
	CreatedAt *string
}

// Hit is a single retrieval result with its cosine similarity to the query.
type Hit struct {
	Content    string
	Similarity float64
}
