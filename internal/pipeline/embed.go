package pipeline

import (
	"context"
	"errors"
	"fmt"

	"paperbase/features/document"
	"paperbase/features/job"
	"paperbase/internal/vector"
)

// embedBatchSize is how many chunk texts go to the embedding model per call.
const embedBatchSize = 32

// runEmbed vectorizes every chunk of the document. embeddings_ready flips to
// true only after the full pass succeeds, so a partial run never looks
// complete to the search path.
func (p *Processor) runEmbed(ctx context.Context, j *job.Job) error {
	if !p.embedder.Available(ctx) {
		return fmt.Errorf("%w: embedding model not configured", ErrDependencyUnavailable)
	}

	doc, err := p.docs.Get(ctx, j.DocumentID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return fmt.Errorf("%w: document %s", ErrNotFound, j.DocumentID)
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	cs, err := p.chunks.GetChunks(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if len(cs) == 0 {
		return fmt.Errorf("%w: no chunks for document %s", ErrValidation, doc.ID)
	}

	model := p.embedder.Model(ctx)
	done := 0

	for start := 0; start < len(cs); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(cs) {
			end = len(cs)
		}
		batch := cs[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		embedCtx, cancel := context.WithTimeout(ctx, p.embedTimeout)
		vecs, err := p.embedder.EmbedBatch(embedCtx, texts)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("%w: embedding timed out after %s", ErrExternalService, p.embedTimeout)
			}
			return fmt.Errorf("%w: %v", ErrExternalService, err)
		}
		if len(vecs) != len(batch) {
			return fmt.Errorf("%w: expected %d vectors, got %d", ErrExternalService, len(batch), len(vecs))
		}

		for i, v := range vecs {
			vector.Normalize(v)
			if err := p.chunks.UpsertEmbedding(ctx, batch[i].ID, vector.Encode(v), len(v), model); err != nil {
				return fmt.Errorf("%w: %v", ErrStorage, err)
			}
		}

		done += len(batch)
		progress := 0.1 + 0.8*float64(done)/float64(len(cs))
		if progress > 0.9 {
			progress = 0.9
		}
		p.notify(ProgressEvent{JobID: j.ID, Status: "running", Progress: progress, Message: fmt.Sprintf("embedded %d/%d chunks", done, len(cs))})
	}

	if err := p.docs.SetEmbeddingsReady(ctx, doc.ID, true); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}
