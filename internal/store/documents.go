package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/allaspectsdev/windowcapd/internal/domain"
)

// Document is a stored logical document's metadata row.
type Document struct {
	DocID           string
	Source          string
	URL             string
	Title           string
	Author          string
	Channel         string
	AppName         string
	BundleID        string
	ContentHash     string
	TokenCount      int
	ChunkCount      int
	FirstIngestedAt string
	LastIngestedAt  string
	RevisionCount   int
}

// UpsertResult is the outcome of a single ingestion write.
type UpsertResult struct {
	Action     domain.IngestAction
	DocID      string
	ChunkCount int
}

// UpsertDocument applies the dedup/storage bridge's atomic write contract:
// a document is either fully replaced with its new chunk set or left fully
// unchanged. Callers must serialize calls sharing the same docID (see
// internal/ingest's per-doc-id lock shards); this method itself only
// guarantees the transaction is atomic, not that concurrent callers for
// the same docID are ordered.
func (s *Store) UpsertDocument(p domain.CapturePayload, docID, contentHash string, chunks []domain.Chunk, tokenCount int) (UpsertResult, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.writer.Begin()
	if err != nil {
		return UpsertResult{}, fmt.Errorf("store: upsert begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existingHash string
	err = tx.QueryRow("SELECT content_hash FROM documents WHERE doc_id = ?", docID).Scan(&existingHash)

	switch {
	case err == sql.ErrNoRows:
		if err := insertDocument(tx, p, docID, contentHash, chunks, tokenCount, now); err != nil {
			return UpsertResult{}, err
		}
		if err := tx.Commit(); err != nil {
			return UpsertResult{}, fmt.Errorf("store: upsert commit: %w", err)
		}
		return UpsertResult{Action: domain.ActionCreated, DocID: docID, ChunkCount: len(chunks)}, nil

	case err != nil:
		return UpsertResult{}, fmt.Errorf("store: upsert lookup: %w", err)

	case existingHash == contentHash:
		if _, err := tx.Exec("UPDATE documents SET last_ingested_at = ? WHERE doc_id = ?", now, docID); err != nil {
			return UpsertResult{}, fmt.Errorf("store: upsert touch unchanged: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return UpsertResult{}, fmt.Errorf("store: upsert commit: %w", err)
		}
		var chunkCount int
		_ = s.reader.QueryRow("SELECT chunk_count FROM documents WHERE doc_id = ?", docID).Scan(&chunkCount)
		return UpsertResult{Action: domain.ActionSkipped, DocID: docID, ChunkCount: chunkCount}, nil

	default:
		if _, err := tx.Exec("DELETE FROM chunks WHERE doc_id = ?", docID); err != nil {
			return UpsertResult{}, fmt.Errorf("store: upsert delete old chunks: %w", err)
		}
		if err := insertChunks(tx, docID, chunks); err != nil {
			return UpsertResult{}, err
		}
		_, err = tx.Exec(`
			UPDATE documents SET
				source = ?, url = ?, title = ?, author = ?, channel = ?,
				app_name = ?, bundle_id = ?, content_hash = ?, token_count = ?,
				chunk_count = ?, last_ingested_at = ?, revision_count = revision_count + 1
			WHERE doc_id = ?`,
			p.Source, p.URL, p.Title, p.Author, p.Channel, p.AppName, p.BundleID,
			contentHash, tokenCount, len(chunks), now, docID,
		)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("store: upsert update document: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return UpsertResult{}, fmt.Errorf("store: upsert commit: %w", err)
		}
		return UpsertResult{Action: domain.ActionUpdated, DocID: docID, ChunkCount: len(chunks)}, nil
	}
}

func insertDocument(tx *sql.Tx, p domain.CapturePayload, docID, contentHash string, chunks []domain.Chunk, tokenCount int, now string) error {
	_, err := tx.Exec(`
		INSERT INTO documents (
			doc_id, source, url, title, author, channel, app_name, bundle_id,
			content_hash, token_count, chunk_count, first_ingested_at, last_ingested_at, revision_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		docID, p.Source, p.URL, p.Title, p.Author, p.Channel, p.AppName, p.BundleID,
		contentHash, tokenCount, len(chunks), now, now,
	)
	if err != nil {
		return fmt.Errorf("store: upsert insert document: %w", err)
	}
	return insertChunks(tx, docID, chunks)
}

func insertChunks(tx *sql.Tx, docID string, chunks []domain.Chunk) error {
	stmt, err := tx.Prepare(`
		INSERT INTO chunks (doc_id, chunk_index, total_chunks, text, token_count)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.Exec(docID, c.ChunkIndex, c.TotalChunks, c.Text, c.TokenCount); err != nil {
			return fmt.Errorf("store: insert chunk %d: %w", c.ChunkIndex, err)
		}
	}
	return nil
}

// GetDocument retrieves a document's metadata row by doc_id.
func (s *Store) GetDocument(docID string) (*Document, error) {
	d := &Document{}
	err := s.reader.QueryRow(`
		SELECT doc_id, source, url, title, author, channel, app_name, bundle_id,
		       content_hash, token_count, chunk_count, first_ingested_at, last_ingested_at, revision_count
		FROM documents WHERE doc_id = ?`, docID,
	).Scan(
		&d.DocID, &d.Source, &d.URL, &d.Title, &d.Author, &d.Channel, &d.AppName, &d.BundleID,
		&d.ContentHash, &d.TokenCount, &d.ChunkCount, &d.FirstIngestedAt, &d.LastIngestedAt, &d.RevisionCount,
	)
	if err != nil {
		return nil, fmt.Errorf("store: get document %s: %w", docID, err)
	}
	return d, nil
}

// GetDocumentContentHash is a narrow accessor used by internal/cache's
// dedup lookup, avoiding a full document row fetch when only the hash
// is needed.
func (s *Store) GetDocumentContentHash(docID string) (string, bool, error) {
	var hash string
	err := s.reader.QueryRow("SELECT content_hash FROM documents WHERE doc_id = ?", docID).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: get content hash %s: %w", docID, err)
	}
	return hash, true, nil
}

// GetChunks retrieves a document's chunks in index order.
func (s *Store) GetChunks(docID string) ([]domain.Chunk, error) {
	rows, err := s.reader.Query(`
		SELECT chunk_index, total_chunks, text, token_count
		FROM chunks WHERE doc_id = ? ORDER BY chunk_index ASC`, docID)
	if err != nil {
		return nil, fmt.Errorf("store: get chunks %s: %w", docID, err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ChunkIndex, &c.TotalChunks, &c.Text, &c.TokenCount); err != nil {
			return nil, fmt.Errorf("store: scan chunk row: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: get chunks iteration: %w", err)
	}
	return chunks, nil
}

// ListDocumentsPage returns a page of documents ordered by last_ingested_at
// descending, for the read-only admin listing API.
func (s *Store) ListDocumentsPage(limit, offset int) ([]*Document, int, error) {
	var total int
	if err := s.reader.QueryRow("SELECT COUNT(*) FROM documents").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count documents: %w", err)
	}

	rows, err := s.reader.Query(`
		SELECT doc_id, source, url, title, author, channel, app_name, bundle_id,
		       content_hash, token_count, chunk_count, first_ingested_at, last_ingested_at, revision_count
		FROM documents ORDER BY last_ingested_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d := &Document{}
		if err := rows.Scan(
			&d.DocID, &d.Source, &d.URL, &d.Title, &d.Author, &d.Channel, &d.AppName, &d.BundleID,
			&d.ContentHash, &d.TokenCount, &d.ChunkCount, &d.FirstIngestedAt, &d.LastIngestedAt, &d.RevisionCount,
		); err != nil {
			return nil, 0, fmt.Errorf("store: scan document row: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: list documents iteration: %w", err)
	}
	return docs, total, nil
}

// Stats summarizes the store's contents for the admin /api/stats endpoint
// and daemon status output.
type Stats struct {
	DocumentCount int64
	ChunkCount    int64
	TotalTokens   int64
}

// DBStats computes aggregate counters across documents and chunks for the
// admin stats endpoint and daemon status output.
func (s *Store) DBStats() (Stats, error) {
	var st Stats
	if err := s.reader.QueryRow("SELECT COUNT(*), COALESCE(SUM(token_count),0) FROM documents").Scan(&st.DocumentCount, &st.TotalTokens); err != nil {
		return st, fmt.Errorf("store: stats documents: %w", err)
	}
	if err := s.reader.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&st.ChunkCount); err != nil {
		return st, fmt.Errorf("store: stats chunks: %w", err)
	}
	return st, nil
}
