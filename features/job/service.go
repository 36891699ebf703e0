package job

import (
	"context"
	"fmt"
	"log/slog"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// EnqueueStandardJobs creates the three fixed-priority stage jobs for a newly
// ingested document. Priorities enforce the stage order: text extraction
// first, identifier scan next, embedding last.
func (s *Service) EnqueueStandardJobs(ctx context.Context, documentID string) ([]Job, error) {
	jobs := []Job{
		{DocumentID: documentID, Type: TypeExtractText, Priority: PriorityExtractText},
		{DocumentID: documentID, Type: TypeExtractID, Priority: PriorityExtractID},
		{DocumentID: documentID, Type: TypeEmbed, Priority: PriorityEmbed},
	}

	for i := range jobs {
		if err := s.repo.Enqueue(ctx, &jobs[i]); err != nil {
			return nil, fmt.Errorf("enqueue %s: %w", jobs[i].Type, err)
		}
	}

	s.logger.InfoContext(ctx, "standard jobs enqueued", "document_id", documentID, "count", len(jobs))
	return jobs, nil
}

// Enqueue persists a manually requested job after validating its type.
func (s *Service) Enqueue(ctx context.Context, j *Job) error {
	if j.DocumentID == "" {
		return fmt.Errorf("%w: document_id is required", ErrInvalidType)
	}
	if !j.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, j.Type)
	}
	return s.repo.Enqueue(ctx, j)
}

func (s *Service) ListPending(ctx context.Context) ([]Job, error) {
	return s.repo.ListPending(ctx)
}

func (s *Service) StatusSummary(ctx context.Context) (*StatusSummary, error) {
	return s.repo.StatusSummary(ctx)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
