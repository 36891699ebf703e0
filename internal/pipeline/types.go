// Package pipeline drives document processing: it drains the persistent job
// queue one job at a time and dispatches each to its stage handler.
package pipeline

import (
	"context"

	"paperbase/features/document"
	"paperbase/features/job"
	"paperbase/internal/adapter/extractor"
	"paperbase/internal/chunks"
)

type JobStore interface {
	ListPending(ctx context.Context) ([]job.Job, error)
	Claim(ctx context.Context, id string) error
	Complete(ctx context.Context, id string) error
	Fail(ctx context.Context, id, errMsg string) error
}

type DocumentStore interface {
	Get(ctx context.Context, id string) (*document.Document, error)
	UpdateStatus(ctx context.Context, id string, status document.Status) error
	MarkIndexed(ctx context.Context, id string) error
	SetDOI(ctx context.Context, id, doi string) error
	SetEmbeddingsReady(ctx context.Context, id string, ready bool) error
}

type ChunkStore interface {
	ReplaceChunks(ctx context.Context, documentID string, cs []chunks.Chunk) error
	GetChunks(ctx context.Context, documentID string) ([]chunks.Chunk, error)
	UpsertEmbedding(ctx context.Context, chunkID string, vector []byte, dim int, model string) error
}

type Extractor interface {
	Extract(ctx context.Context, pdfPath string) (*extractor.Extraction, error)
	PlainText(ctx context.Context, pdfPath string, maxPages int) (string, error)
}

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Available(ctx context.Context) bool
	Model(ctx context.Context) string
}

// ProgressEvent describes one step of one job.
type ProgressEvent struct {
	JobID    string  `json:"job_id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message,omitempty"`
}

// Notifier receives progress events. Implementations must not assume they are
// called from a single goroutine across batches.
type Notifier interface {
	Notify(event ProgressEvent)
}

// BatchError records one failed job inside an otherwise continuing batch.
type BatchError struct {
	JobID string `json:"job_id"`
	Error string `json:"error"`
}

// Summary is the result of one batch run.
type Summary struct {
	Busy      bool         `json:"busy"`
	Processed int          `json:"processed"`
	Failed    int          `json:"failed"`
	Errors    []BatchError `json:"errors"`
}
