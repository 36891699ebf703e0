// Package chunks persists extracted text chunks and their embedding vectors.
// Vectors are stored as raw little-endian float32 buffers next to their chunk
// so searches can run in process without a separate vector database.
package chunks

import (
	"context"
	"database/sql"
	"fmt"
)

// Chunk is one positioned text block extracted from a PDF page.
type Chunk struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	Page       int     `json:"page"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Content    string  `json:"content"`
	Ordinal    int     `json:"ordinal"`
}

// Embedded pairs a chunk with its stored vector buffer.
type Embedded struct {
	Chunk
	Vector []byte
	Dim    int
	Model  string
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const chunkColumns = `id, document_id, page, x, y, width, height, content, ordinal`

// ReplaceChunks swaps a document's chunk set atomically. Re-extracting a
// document must never leave chunks from a previous pass behind, so the delete
// and the inserts share one transaction. Embeddings go with the old chunks via
// the cascade.
func (s *PostgresStore) ReplaceChunks(ctx context.Context, documentID string, cs []Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (document_id, page, x, y, width, height, content, ordinal) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range cs {
		cs[i].DocumentID = documentID
		if err := stmt.QueryRowContext(ctx, documentID, cs[i].Page, cs[i].X, cs[i].Y, cs[i].Width, cs[i].Height, cs[i].Content, cs[i].Ordinal).Scan(&cs[i].ID); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetChunks returns a document's chunks in reading order.
func (s *PostgresStore) GetChunks(ctx context.Context, documentID string) ([]Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE document_id = $1 ORDER BY page ASC, ordinal ASC`
	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Page, &c.X, &c.Y, &c.Width, &c.Height, &c.Content, &c.Ordinal); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertEmbedding stores or replaces the vector for one chunk.
func (s *PostgresStore) UpsertEmbedding(ctx context.Context, chunkID string, vector []byte, dim int, model string) error {
	query := `INSERT INTO embeddings (chunk_id, vector, dim, model) VALUES ($1, $2, $3, $4)
		ON CONFLICT (chunk_id) DO UPDATE SET vector = EXCLUDED.vector, dim = EXCLUDED.dim, model = EXCLUDED.model`
	_, err := s.db.ExecContext(ctx, query, chunkID, vector, dim, model)
	return err
}

// GetEmbedded returns a document's chunks that have a stored vector, in
// reading order.
func (s *PostgresStore) GetEmbedded(ctx context.Context, documentID string) ([]Embedded, error) {
	query := `SELECT c.id, c.document_id, c.page, c.x, c.y, c.width, c.height, c.content, c.ordinal, e.vector, e.dim, e.model
		FROM chunks c JOIN embeddings e ON e.chunk_id = c.id
		WHERE c.document_id = $1 ORDER BY c.page ASC, c.ordinal ASC`
	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Embedded
	for rows.Next() {
		var e Embedded
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Page, &e.X, &e.Y, &e.Width, &e.Height, &e.Content, &e.Ordinal, &e.Vector, &e.Dim, &e.Model); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByDocument reports how many chunks a document currently has.
func (s *PostgresStore) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE document_id = $1`, documentID).Scan(&count)
	return count, err
}

// Count reports the total number of chunks across all documents.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}
