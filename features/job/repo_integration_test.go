package job_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperbase/features/document"
	"paperbase/features/job"
	"paperbase/internal/testutils"
)

func TestJobRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	jobRepo := job.NewPostgresRepo(s.DB)
	docRepo := document.NewPostgresRepo(s.DB)
	ctx := context.Background()

	// 1. Setup Document
	doc := &document.Document{
		Title:   "Queue Ordering Test",
		PDFPath: "/tmp/ordering.pdf",
	}
	require.NoError(t, docRepo.Save(ctx, doc))

	// 2. Enqueue out of priority order
	embed := &job.Job{DocumentID: doc.ID, Type: job.TypeEmbed, Priority: job.PriorityEmbed}
	require.NoError(t, jobRepo.Enqueue(ctx, embed))

	time.Sleep(50 * time.Millisecond)

	extract := &job.Job{DocumentID: doc.ID, Type: job.TypeExtractText, Priority: job.PriorityExtractText}
	require.NoError(t, jobRepo.Enqueue(ctx, extract))

	time.Sleep(50 * time.Millisecond)

	scan := &job.Job{DocumentID: doc.ID, Type: job.TypeExtractID, Priority: job.PriorityExtractID}
	require.NoError(t, jobRepo.Enqueue(ctx, scan))

	// 3. Pending list comes back in priority order regardless of insertion order
	pending, err := jobRepo.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, job.TypeExtractText, pending[0].Type)
	assert.Equal(t, job.TypeExtractID, pending[1].Type)
	assert.Equal(t, job.TypeEmbed, pending[2].Type)

	// 4. Claim is exclusive
	require.NoError(t, jobRepo.Claim(ctx, extract.ID))
	err = jobRepo.Claim(ctx, extract.ID)
	assert.ErrorIs(t, err, job.ErrNotPending)

	claimed, err := jobRepo.Get(ctx, extract.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusRunning, claimed.Status)
	assert.NotNil(t, claimed.StartedAt)

	// 5. Fail records the error and finishes the job
	require.NoError(t, jobRepo.Fail(ctx, extract.ID, "extractor unreachable"))
	failed, err := jobRepo.Get(ctx, extract.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusFailed, failed.Status)
	assert.Equal(t, "extractor unreachable", failed.Error)
	assert.NotNil(t, failed.FinishedAt)

	// Terminal states stay terminal
	assert.ErrorIs(t, jobRepo.Claim(ctx, extract.ID), job.ErrNotPending)
	assert.ErrorIs(t, jobRepo.Complete(ctx, extract.ID), job.ErrNotRunning)

	// 6. Summary
	summary, err := jobRepo.StatusSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Pending)
	assert.Equal(t, 1, summary.Failed)
	assert.Nil(t, summary.CurrentJob)
}
