package job_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperbase/features/job"
)

const jobCols = `SELECT id, document_id, type, status, priority, COALESCE(error, ''), created_at, started_at, finished_at`

func TestPostgresRepo_Enqueue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := job.NewPostgresRepo(db)

	j := &job.Job{DocumentID: "doc1", Type: job.TypeExtractText, Priority: job.PriorityExtractText}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO jobs (document_id, type, priority) VALUES ($1, $2, $3) RETURNING id, status, created_at")).
		WithArgs("doc1", "EXTRACT_TEXT", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "created_at"}).AddRow("j1", "pending", time.Now()))

	err = repo.Enqueue(context.Background(), j)
	assert.NoError(t, err)
	assert.Equal(t, "j1", j.ID)
	assert.Equal(t, job.StatusPending, j.Status)
}

func TestPostgresRepo_ListPending_Ordering(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := job.NewPostgresRepo(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "document_id", "type", "status", "priority", "error", "created_at", "started_at", "finished_at"}).
		AddRow("j1", "doc1", "EXTRACT_TEXT", "pending", 10, "", now, nil, nil).
		AddRow("j2", "doc1", "EXTRACT_ID", "pending", 5, "", now, nil, nil).
		AddRow("j3", "doc1", "EMBED", "pending", 1, "", now, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta(jobCols + ` FROM jobs WHERE status = 'pending' ORDER BY priority DESC, created_at ASC, id ASC`)).
		WillReturnRows(rows)

	jobs, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, job.TypeExtractText, jobs[0].Type)
	assert.Equal(t, job.TypeEmbed, jobs[2].Type)
}

func TestPostgresRepo_Claim(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := job.NewPostgresRepo(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status = 'running', started_at = NOW() WHERE id = $1 AND status = 'pending'")).
			WithArgs("j1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Claim(context.Background(), "j1")
		assert.NoError(t, err)
	})

	t.Run("NotPending", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status = 'running', started_at = NOW() WHERE id = $1 AND status = 'pending'")).
			WithArgs("j1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Claim(context.Background(), "j1")
		assert.ErrorIs(t, err, job.ErrNotPending)
	})
}

func TestPostgresRepo_Complete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := job.NewPostgresRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status = 'completed', finished_at = NOW() WHERE id = $1 AND status = 'running'")).
		WithArgs("j1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Complete(context.Background(), "j1")
	assert.NoError(t, err)
}

func TestPostgresRepo_Fail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := job.NewPostgresRepo(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status = 'failed', error = $2, finished_at = NOW() WHERE id = $1 AND status = 'running'")).
			WithArgs("j1", "boom").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Fail(context.Background(), "j1", "boom")
		assert.NoError(t, err)
	})

	t.Run("NotRunning", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status = 'failed', error = $2, finished_at = NOW() WHERE id = $1 AND status = 'running'")).
			WithArgs("j1", "boom").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Fail(context.Background(), "j1", "boom")
		assert.ErrorIs(t, err, job.ErrNotRunning)
	})
}

func TestPostgresRepo_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := job.NewPostgresRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(jobCols + ` FROM jobs WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, job.ErrNotFound)
}

func TestPostgresRepo_StatusSummary(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := job.NewPostgresRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) FROM jobs GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 2).
			AddRow("completed", 5).
			AddRow("failed", 1))

	mock.ExpectQuery(regexp.QuoteMeta(jobCols + ` FROM jobs WHERE status = 'running' LIMIT 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	summary, err := repo.StatusSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Pending)
	assert.Equal(t, 0, summary.Running)
	assert.Equal(t, 5, summary.Completed)
	assert.Equal(t, 1, summary.Failed)
	assert.Nil(t, summary.CurrentJob)
}

func TestPostgresRepo_StatusSummary_WithRunningJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := job.NewPostgresRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) FROM jobs GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("running", 1))

	started := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(jobCols + ` FROM jobs WHERE status = 'running' LIMIT 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "type", "status", "priority", "error", "created_at", "started_at", "finished_at"}).
			AddRow("j9", "doc1", "EMBED", "running", 1, "", started, started, nil))

	summary, err := repo.StatusSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Running)
	require.NotNil(t, summary.CurrentJob)
	assert.Equal(t, "j9", summary.CurrentJob.ID)
	assert.NotNil(t, summary.CurrentJob.StartedAt)
}

func TestPostgresRepo_Count(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := job.NewPostgresRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM jobs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.Count(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 7, count)
}
