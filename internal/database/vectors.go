package database

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// InsertVector stores an embedded fact in a typed collection. The insert is
// idempotent by knowledge row id: re-inserting after a crash between the
// vector write and the queue flag flip cannot produce a duplicate record.
func (db *DB) InsertVector(collection string, knowledgeID int64, content string, embedding []float64) error {
	if len(embedding) == 0 {
		return fmt.Errorf("empty embedding for knowledge row %d", knowledgeID)
	}
	_, err := db.conn.Exec(
		`INSERT INTO vector_records (collection, knowledge_id, content, embedding)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (knowledge_id) DO NOTHING`,
		collection, knowledgeID, content, encodeEmbedding(embedding),
	)
	return err
}

// SearchVectors runs a nearest-neighbor query over one collection.
// It returns up to count hits with cosine similarity at or above threshold,
// ranked descending. Below-threshold records are excluded entirely.
func (db *DB) SearchVectors(collection string, query []float64, count int, threshold float64) ([]Hit, error) {
	if count <= 0 {
		count = 10
	}

	rows, err := db.conn.Query(
		"SELECT content, embedding FROM vector_records WHERE collection = ?",
		collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var content string
		var blob []byte
		if err := rows.Scan(&content, &blob); err != nil {
			return nil, err
		}
		embedding, err := decodeEmbedding(blob)
		if err != nil {
			return nil, err
		}
		sim := cosineSimilarity(query, embedding)
		if sim < threshold {
			continue
		}
		hits = append(hits, Hit{Content: content, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > count {
		hits = hits[:count]
	}
	return hits, nil
}

// CountVectors returns the number of records in one collection.
func (db *DB) CountVectors(collection string) (int, error) {
	var n int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM vector_records WHERE collection = ?", collection,
	).Scan(&n)
	return n, err
}

// encodeEmbedding packs a float64 slice into a little-endian blob.
func encodeEmbedding(embedding []float64) []byte {
	buf := make([]byte, 8*len(embedding))
	for i, v := range embedding {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeEmbedding(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 8", len(blob))
	}
	embedding := make([]float64, len(blob)/8)
	for i := range embedding {
		embedding[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return embedding, nil
}

// cosineSimilarity returns the cosine of the angle between two vectors.
// Mismatched dimensions or zero vectors score 0 rather than erroring, so a
// model change degrades retrieval instead of breaking it.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
