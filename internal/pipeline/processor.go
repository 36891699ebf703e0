package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"paperbase/features/job"
)

// defaultEmbedTimeout bounds a single embedding batch call when no timeout is
// configured.
const defaultEmbedTimeout = 60 * time.Second

// Processor is the single-runner batch orchestrator. At most one RunBatch may
// be active per process; a second call returns a busy summary without
// touching any job row.
type Processor struct {
	jobs     JobStore
	docs     DocumentStore
	chunks   ChunkStore
	extract  Extractor
	embedder Embedder
	notifier Notifier
	logger   *slog.Logger

	embedTimeout time.Duration
	busy         atomic.Bool
}

func NewProcessor(jobs JobStore, docs DocumentStore, chunks ChunkStore, extract Extractor, embedder Embedder, notifier Notifier, embedTimeout time.Duration, logger *slog.Logger) *Processor {
	if embedTimeout <= 0 {
		embedTimeout = defaultEmbedTimeout
	}
	return &Processor{
		jobs:         jobs,
		docs:         docs,
		chunks:       chunks,
		extract:      extract,
		embedder:     embedder,
		notifier:     notifier,
		embedTimeout: embedTimeout,
		logger:       logger,
	}
}

// Busy reports whether a batch run is currently active.
func (p *Processor) Busy() bool {
	return p.busy.Load()
}

// RunBatch drains the pending queue sequentially, highest priority first. A
// failing job is recorded and the batch moves on; the summary carries every
// failure. Cancellation is cooperative: the context is checked before each
// claim, an in-flight job always finishes.
func (p *Processor) RunBatch(ctx context.Context) *Summary {
	if !p.busy.CompareAndSwap(false, true) {
		return &Summary{Busy: true}
	}
	defer p.busy.Store(false)

	summary := &Summary{}

	for {
		if ctx.Err() != nil {
			p.logger.InfoContext(ctx, "batch stopped", "reason", ctx.Err(), "processed", summary.Processed)
			return summary
		}

		pending, err := p.jobs.ListPending(ctx)
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to list pending jobs", "error", err)
			return summary
		}
		if len(pending) == 0 {
			return summary
		}

		next := pending[0]
		if err := p.jobs.Claim(ctx, next.ID); err != nil {
			if errors.Is(err, job.ErrNotPending) {
				// Someone else got it between the list and the claim. The
				// single-runner flag makes this rare but not impossible
				// (manual status edits); just move on.
				p.logger.WarnContext(ctx, "job no longer pending, skipping", "job_id", next.ID, "error", err)
				continue
			}
			// A storage failure would keep re-listing the same job; stop the
			// batch like the ListPending error path does.
			p.logger.ErrorContext(ctx, "failed to claim job", "job_id", next.ID, "error", err)
			return summary
		}

		p.notify(ProgressEvent{JobID: next.ID, Status: "running", Progress: 0.0, Message: string(next.Type)})

		if err := p.dispatch(ctx, &next); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, BatchError{JobID: next.ID, Error: err.Error()})
			p.notify(ProgressEvent{JobID: next.ID, Status: "failed", Progress: 1.0, Message: err.Error()})

			if failErr := p.jobs.Fail(ctx, next.ID, err.Error()); failErr != nil {
				p.logger.ErrorContext(ctx, "failed to record job failure", "job_id", next.ID, "error", failErr)
			}
			p.logger.WarnContext(ctx, "job failed", "job_id", next.ID, "type", next.Type, "error", err)
			continue
		}

		summary.Processed++
		p.notify(ProgressEvent{JobID: next.ID, Status: "completed", Progress: 1.0})

		if err := p.jobs.Complete(ctx, next.ID); err != nil {
			p.logger.ErrorContext(ctx, "failed to record job completion", "job_id", next.ID, "error", err)
		}
		p.logger.InfoContext(ctx, "job completed", "job_id", next.ID, "type", next.Type, "document_id", next.DocumentID)
	}
}

func (p *Processor) dispatch(ctx context.Context, j *job.Job) error {
	switch j.Type {
	case job.TypeExtractText:
		return p.runExtractText(ctx, j)
	case job.TypeExtractID:
		return p.runExtractIdentifier(ctx, j)
	case job.TypeEmbed:
		return p.runEmbed(ctx, j)
	default:
		return fmt.Errorf("%w: unknown job type %q", ErrValidation, j.Type)
	}
}

// notify delivers a progress event without letting the observer interfere
// with the batch. A panicking notifier is logged and swallowed.
func (p *Processor) notify(event ProgressEvent) {
	if p.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("progress notifier panicked", "recovered", r)
		}
	}()
	p.notifier.Notify(event)
}
