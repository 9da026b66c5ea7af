package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/alextanhongpin/podreport/pkg/postgres"
)

var _ Store = (*PostgresStore)(nil)

const reportColumns = `
	id,
	channel_id,
	title,
	period,
	file_path,
	COALESCE(url, ''),
	COALESCE(public_id, ''),
	insights,
	generated_by,
	generated_at`

type PostgresStore struct {
	db postgres.DB
}

func NewPostgresStore(db postgres.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
	}
}

func (s *PostgresStore) Create(ctx context.Context, r *Report) error {
	if _, err := s.db.ExecContext(ctx, `
			INSERT INTO reports(
				id,
				channel_id,
				title,
				period,
				file_path,
				url,
				public_id,
				insights,
				generated_by,
				generated_at
			) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10)
		`,
		r.ID,
		r.ChannelID,
		r.Title,
		r.Period,
		r.FilePath,
		r.URL,
		r.PublicID,
		pq.Array(r.Insights),
		r.GeneratedBy,
		r.GeneratedAt,
	); err != nil {
		return fmt.Errorf("%w: failed to insert report", err)
	}

	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Report, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find report", err)
	}

	return r, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		ORDER BY generated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: select query error", err)
	}
	defer rows.Close()

	reports := []Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan report", err)
		}

		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to process rows", err)
	}

	return reports, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM reports
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete report", err)
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

func (s *PostgresStore) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM reports
		WHERE id = ANY($1::uuid[])
	`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("%w: failed to delete reports", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get deleted rows affected count", err)
	}

	return int(rows), nil
}

func scanReport(row postgres.Scanner) (*Report, error) {
	var r Report
	if err := row.Scan(
		&r.ID,
		&r.ChannelID,
		&r.Title,
		&r.Period,
		&r.FilePath,
		&r.URL,
		&r.PublicID,
		pq.Array(&r.Insights),
		&r.GeneratedBy,
		&r.GeneratedAt,
	); err != nil {
		return nil, err
	}

	return &r, nil
}
