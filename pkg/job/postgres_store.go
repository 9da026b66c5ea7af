package job

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alextanhongpin/podreport/pkg/postgres"
)

var _ Store = (*PostgresStore)(nil)

const jobColumns = `
	id,
	user_id,
	name,
	type,
	frequency,
	period,
	parameters,
	cron_expression,
	is_active,
	next_run,
	last_run,
	run_count,
	created_at,
	updated_at`

type PostgresStore struct {
	db postgres.DB
}

func NewPostgresStore(db postgres.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
	}
}

func (s *PostgresStore) Create(ctx context.Context, job *Job) error {
	if err := s.db.QueryRowContext(ctx, `
			INSERT INTO jobs(
				id,
				user_id,
				name,
				type,
				frequency,
				period,
				parameters,
				cron_expression,
				is_active,
				next_run,
				run_count
			) VALUES (
				$1,
				$2,
				$3,
				$4,
				$5,
				$6,
				$7,
				$8,
				$9,
				$10,
				$11
			)
			RETURNING created_at, updated_at
		`,
		job.ID,
		job.UserID,
		job.Name,
		job.Type,
		job.Frequency,
		job.Period,
		job.Parameters,
		job.CronExpression,
		job.IsActive,
		job.NextRun,
		job.RunCount,
	).Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
		return fmt.Errorf("%w: failed to insert job", err)
	}

	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find job by id", err)
	}

	return job, nil
}

func (s *PostgresStore) FindByUser(ctx context.Context, userID string) ([]Job, error) {
	return s.query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
}

func (s *PostgresStore) FindActive(ctx context.Context) ([]Job, error) {
	return s.query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE is_active = true
		ORDER BY created_at DESC
	`)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, active bool, nextRun time.Time) (*Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, `
			UPDATE jobs
			SET
				is_active = $1,
				next_run = $2,
				updated_at = now()
			WHERE id = $3
			RETURNING `+jobColumns,
		active,
		nextRun,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notUpdated(id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to update job status", err)
	}

	return job, nil
}

func (s *PostgresStore) UpdateNextRun(ctx context.Context, id string, nextRun time.Time) error {
	res, err := s.db.ExecContext(ctx, `
			UPDATE jobs
			SET
				next_run = $1,
				updated_at = now()
			WHERE id = $2
		`,
		nextRun,
		id,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to update next run", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get updated rows affected count", err)
	}

	if rows != 1 {
		return notUpdated(id)
	}

	return nil
}

func (s *PostgresStore) RecordRun(ctx context.Context, id string, ranAt, nextRun time.Time) (*Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, `
			UPDATE jobs
			SET
				run_count = run_count + 1,
				last_run = $1,
				next_run = $2,
				updated_at = now()
			WHERE id = $3
			RETURNING `+jobColumns,
		ranAt,
		nextRun,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notUpdated(id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to record job run", err)
	}

	return job, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM jobs
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete job", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get deleted rows affected count", err)
	}

	if rows == 0 {
		return notFound(id)
	}

	return nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: select query error", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan job", err)
		}

		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to process rows", err)
	}

	return jobs, nil
}

func scanJob(row postgres.Scanner) (*Job, error) {
	var (
		job     Job
		lastRun sql.NullTime
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Name,
		&job.Type,
		&job.Frequency,
		&job.Period,
		&job.Parameters,
		&job.CronExpression,
		&job.IsActive,
		&job.NextRun,
		&lastRun,
		&job.RunCount,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if lastRun.Valid {
		t := lastRun.Time
		job.LastRun = &t
	}

	return &job, nil
}
