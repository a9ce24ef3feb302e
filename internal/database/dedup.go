package database

import (
	"database/sql"
	"time"
)

// HasDedupRecord reports whether an extraction was already attempted
// for the given (url, consumer) pair.
func (db *DB) HasDedupRecord(url, consumerID string) (bool, error) {
	var one int
	err := db.conn.QueryRow(
		"SELECT 1 FROM processed_news WHERE url = ? AND consumer_id = ?",
		url, consumerID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertDedupRecord records the outcome of an extraction attempt.
// The first write for a (url, consumer) pair wins; the record is terminal
// and a failed extraction is never retried for that pair.
func (db *DB) InsertDedupRecord(url, consumerID, parseStatus string) error {
	_, err := db.conn.Exec(
		`INSERT INTO processed_news (url, consumer_id, processed_at, parse_status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (url, consumer_id) DO NOTHING`,
		url, consumerID, time.Now().UTC().Format(time.RFC3339), parseStatus,
	)
	return err
}

// GetDedupRecord returns the record for a (url, consumer) pair, or nil if absent.
func (db *DB) GetDedupRecord(url, consumerID string) (*DedupRecord, error) {
	var r DedupRecord
	err := db.conn.QueryRow(
		`SELECT url, consumer_id, processed_at, parse_status
		FROM processed_news WHERE url = ? AND consumer_id = ?`,
		url, consumerID,
	).Scan(&r.URL, &r.ConsumerID, &r.ProcessedAt, &r.ParseStatus)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
