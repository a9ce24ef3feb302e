package database

import "database/sql"

// InsertKnowledge appends a pending fact to the knowledge queue.
// Producers insert rows with processed=0; the drain loop consumes them.
func (db *DB) InsertKnowledge(typ, summary string) (int64, error) {
	result, err := db.conn.Exec(
		"INSERT INTO knowledge_base (type, summary) VALUES (?, ?)",
		typ, summary,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// PendingKnowledge returns the pending rows of one type, oldest first.
// The result is a snapshot: rows inserted after this call are picked up
// by a later drain, not the current one.
func (db *DB) PendingKnowledge(typ string) ([]KnowledgeRow, error) {
	rows, err := db.conn.Query(
		`SELECT id, type, summary, processed, created_at
		FROM knowledge_base WHERE type = ? AND processed = 0
		ORDER BY id ASC`, typ,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanKnowledgeRows(rows)
}

// ClaimKnowledge atomically flips a row from pending to processed.
// Returns false when another caller already claimed the row, so concurrent
// drains racing on the same row embed it at most once.
func (db *DB) ClaimKnowledge(id int64) (bool, error) {
	result, err := db.conn.Exec(
		"UPDATE knowledge_base SET processed = 1 WHERE id = ? AND processed = 0", id,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseKnowledge returns a claimed row to the pending state after a
// failed embed or index insert, so a later drain retries it.
func (db *DB) ReleaseKnowledge(id int64) error {
	_, err := db.conn.Exec(
		"UPDATE knowledge_base SET processed = 0 WHERE id = ?", id,
	)
	return err
}

// GetKnowledgeByID returns a single knowledge row, or nil if absent.
func (db *DB) GetKnowledgeByID(id int64) (*KnowledgeRow, error) {
	row := db.conn.QueryRow(
		`SELECT id, type, summary, processed, created_at
		FROM knowledge_base WHERE id = ?`, id,
	)
	var k KnowledgeRow
	var processed int
	err := row.Scan(&k.ID, &k.Type, &k.Summary, &processed, &k.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	k.Processed = processed != 0
	return &k, nil
}

func scanKnowledgeRows(rows *sql.Rows) ([]KnowledgeRow, error) {
	var result []KnowledgeRow
	for rows.Next() {
		var k KnowledgeRow
		var processed int
		if err := rows.Scan(&k.ID, &k.Type, &k.Summary, &processed, &k.CreatedAt); err != nil {
			return nil, err
		}
		k.Processed = processed != 0
		result = append(result, k)
	}
	return result, rows.Err()
}
