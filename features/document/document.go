package document

import (
	"encoding/json"
	"errors"
	"time"
)

// Status tracks how far a document has progressed through the pipeline.
type Status string

const (
	StatusPending  Status = "pending"
	StatusIndexed  Status = "indexed"
	StatusNeedsOCR Status = "needs_ocr"
	StatusFailed   Status = "failed"
)

var (
	// ErrNotFound indicates the document id does not exist (or was deleted).
	ErrNotFound = errors.New("document not found")

	// ErrNoDOI indicates a citation lookup on a document without an identifier.
	ErrNoDOI = errors.New("document has no DOI")

	// ErrInvalidURL indicates an ingestion URL that is not a usable
	// http(s) address.
	ErrInvalidURL = errors.New("invalid document URL")
)

type Document struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Authors         string          `json:"authors,omitempty"`
	SourceURL       string          `json:"source_url,omitempty"`
	PDFPath         string          `json:"-"`
	DOI             string          `json:"doi,omitempty"`
	Status          Status          `json:"status"`
	EmbeddingsReady bool            `json:"embeddings_ready"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	AddedAt         time.Time       `json:"added_at"`
	IndexedAt       *time.Time      `json:"indexed_at,omitempty"`
}
