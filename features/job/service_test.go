package job

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRepo records enqueued jobs for Service tests.
type MockRepo struct {
	Repository
	enqueued []Job
	nextID   int
}

func (m *MockRepo) Enqueue(ctx context.Context, j *Job) error {
	m.nextID++
	j.ID = string(rune('a' + m.nextID))
	j.Status = StatusPending
	m.enqueued = append(m.enqueued, *j)
	return nil
}

func (m *MockRepo) ListPending(ctx context.Context) ([]Job, error) {
	return m.enqueued, nil
}

func (m *MockRepo) Count(ctx context.Context) (int, error) { return len(m.enqueued), nil }

func newTestService(repo Repository) *Service {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewService(repo, logger)
}

func TestService_EnqueueStandardJobs(t *testing.T) {
	repo := &MockRepo{}
	service := newTestService(repo)

	jobs, err := service.EnqueueStandardJobs(context.Background(), "doc1")
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	assert.Equal(t, TypeExtractText, jobs[0].Type)
	assert.Equal(t, PriorityExtractText, jobs[0].Priority)
	assert.Equal(t, TypeExtractID, jobs[1].Type)
	assert.Equal(t, PriorityExtractID, jobs[1].Priority)
	assert.Equal(t, TypeEmbed, jobs[2].Type)
	assert.Equal(t, PriorityEmbed, jobs[2].Priority)

	for _, j := range jobs {
		assert.Equal(t, "doc1", j.DocumentID)
		assert.Equal(t, StatusPending, j.Status)
	}
}

func TestService_Enqueue_InvalidType(t *testing.T) {
	repo := &MockRepo{}
	service := newTestService(repo)

	err := service.Enqueue(context.Background(), &Job{DocumentID: "doc1", Type: "SUMMARIZE"})
	assert.ErrorIs(t, err, ErrInvalidType)
	assert.Empty(t, repo.enqueued)
}

func TestService_Enqueue_MissingDocument(t *testing.T) {
	repo := &MockRepo{}
	service := newTestService(repo)

	err := service.Enqueue(context.Background(), &Job{Type: TypeEmbed})
	assert.Error(t, err)
	assert.Empty(t, repo.enqueued)
}

func TestService_Enqueue_Valid(t *testing.T) {
	repo := &MockRepo{}
	service := newTestService(repo)

	j := &Job{DocumentID: "doc1", Type: TypeEmbed, Priority: 3}
	err := service.Enqueue(context.Background(), j)
	require.NoError(t, err)
	assert.NotEmpty(t, j.ID)
}
