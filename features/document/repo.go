package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

type Repository interface {
	Save(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context) ([]Document, error)
	SoftDelete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)

	UpdateStatus(ctx context.Context, id string, status Status) error
	MarkIndexed(ctx context.Context, id string) error
	SetDOI(ctx context.Context, id, doi string) error
	SetEmbeddingsReady(ctx context.Context, id string, ready bool) error
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const docColumns = `id, title, COALESCE(authors, ''), COALESCE(source_url, ''), pdf_path, COALESCE(doi, ''), status, embeddings_ready, metadata, added_at, indexed_at`

func (r *PostgresRepo) Save(ctx context.Context, doc *Document) error {
	if len(doc.Metadata) == 0 {
		doc.Metadata = json.RawMessage(`{}`)
	}
	query := `INSERT INTO documents (title, authors, source_url, pdf_path, metadata) VALUES ($1, $2, $3, $4, $5) RETURNING id, status, added_at`
	return r.db.QueryRowContext(ctx, query, doc.Title, doc.Authors, doc.SourceURL, doc.PDFPath, []byte(doc.Metadata)).
		Scan(&doc.ID, &doc.Status, &doc.AddedAt)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Document, error) {
	query := `SELECT ` + docColumns + ` FROM documents WHERE id = $1 AND deleted_at IS NULL`
	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Document, error) {
	query := `SELECT ` + docColumns + ` FROM documents WHERE deleted_at IS NULL ORDER BY added_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *PostgresRepo) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE documents SET deleted_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM documents WHERE deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id string, status Status) error {
	query := `UPDATE documents SET status = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, string(status), id)
	return err
}

func (r *PostgresRepo) MarkIndexed(ctx context.Context, id string) error {
	query := `UPDATE documents SET status = 'indexed', indexed_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PostgresRepo) SetDOI(ctx context.Context, id, doi string) error {
	query := `UPDATE documents SET doi = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, doi, id)
	return err
}

func (r *PostgresRepo) SetEmbeddingsReady(ctx context.Context, id string, ready bool) error {
	query := `UPDATE documents SET embeddings_ready = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, ready, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	doc := &Document{}
	var metadata []byte
	var indexedAt sql.NullTime
	err := row.Scan(&doc.ID, &doc.Title, &doc.Authors, &doc.SourceURL, &doc.PDFPath, &doc.DOI,
		&doc.Status, &doc.EmbeddingsReady, &metadata, &doc.AddedAt, &indexedAt)
	if err != nil {
		return nil, err
	}
	doc.Metadata = json.RawMessage(metadata)
	if indexedAt.Valid {
		doc.IndexedAt = &indexedAt.Time
	}
	return doc, nil
}
