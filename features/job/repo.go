package job

import (
	"context"
	"database/sql"
	"errors"
)

type Repository interface {
	Enqueue(ctx context.Context, j *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	ListPending(ctx context.Context) ([]Job, error)
	Claim(ctx context.Context, id string) error
	Complete(ctx context.Context, id string) error
	Fail(ctx context.Context, id, errMsg string) error
	StatusSummary(ctx context.Context) (*StatusSummary, error)
	Count(ctx context.Context) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const jobColumns = `id, document_id, type, status, priority, COALESCE(error, ''), created_at, started_at, finished_at`

func (r *PostgresRepo) Enqueue(ctx context.Context, j *Job) error {
	query := `INSERT INTO jobs (document_id, type, priority) VALUES ($1, $2, $3) RETURNING id, status, created_at`
	return r.db.QueryRowContext(ctx, query, j.DocumentID, string(j.Type), j.Priority).
		Scan(&j.ID, &j.Status, &j.CreatedAt)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	j, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

// ListPending returns every pending job, most urgent first. Equal priorities
// preserve insertion order; the id tiebreak keeps the ordering deterministic
// for jobs created inside the same timestamp granularity.
func (r *PostgresRepo) ListPending(ctx context.Context) ([]Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = 'pending' ORDER BY priority DESC, created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// Claim transitions a job from pending to running in a single guarded UPDATE.
// A job that is no longer pending is reported as ErrNotPending, never
// silently re-claimed.
func (r *PostgresRepo) Claim(ctx context.Context, id string) error {
	query := `UPDATE jobs SET status = 'running', started_at = NOW() WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotPending
	}
	return nil
}

func (r *PostgresRepo) Complete(ctx context.Context, id string) error {
	query := `UPDATE jobs SET status = 'completed', finished_at = NOW() WHERE id = $1 AND status = 'running'`
	return r.terminal(ctx, query, id)
}

func (r *PostgresRepo) Fail(ctx context.Context, id, errMsg string) error {
	query := `UPDATE jobs SET status = 'failed', error = $2, finished_at = NOW() WHERE id = $1 AND status = 'running'`
	res, err := r.db.ExecContext(ctx, query, id, errMsg)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotRunning
	}
	return nil
}

func (r *PostgresRepo) terminal(ctx context.Context, query, id string) error {
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotRunning
	}
	return nil
}

func (r *PostgresRepo) StatusSummary(ctx context.Context) (*StatusSummary, error) {
	query := `SELECT status, COUNT(*) FROM jobs GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := &StatusSummary{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		switch Status(status) {
		case StatusPending:
			summary.Pending = count
		case StatusRunning:
			summary.Running = count
		case StatusCompleted:
			summary.Completed = count
		case StatusFailed:
			summary.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	current := `SELECT ` + jobColumns + ` FROM jobs WHERE status = 'running' LIMIT 1`
	j, err := scanJob(r.db.QueryRowContext(ctx, current))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	summary.CurrentJob = j
	return summary, nil
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM jobs`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	j := &Job{}
	var startedAt, finishedAt sql.NullTime
	err := row.Scan(&j.ID, &j.DocumentID, &j.Type, &j.Status, &j.Priority, &j.Error, &j.CreatedAt, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	if startedAt.Valid {
		j.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		j.FinishedAt = &finishedAt.Time
	}
	return j, nil
}
