package channel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/alextanhongpin/podreport/pkg/postgres"
)

var _ Store = (*PostgresStore)(nil)

const channelColumns = `
	id,
	channel_id,
	title,
	COALESCE(description, ''),
	COALESCE(thumbnail_url, ''),
	refresh_token,
	COALESCE(custom_name, ''),
	created_at,
	updated_at`

// uniqueViolation is the SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

type PostgresStore struct {
	db postgres.DB
}

func NewPostgresStore(db postgres.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
	}
}

func (s *PostgresStore) FindLinked(ctx context.Context) (*Channel, error) {
	c, err := scanChannel(s.db.QueryRowContext(ctx, `
		SELECT `+channelColumns+`
		FROM channels
		ORDER BY created_at
		LIMIT 1
	`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, noChannel()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find linked channel", err)
	}

	return c, nil
}

func (s *PostgresStore) FindByChannelID(ctx context.Context, channelID string) (*Channel, error) {
	c, err := scanChannel(s.db.QueryRowContext(ctx, `
		SELECT `+channelColumns+`
		FROM channels
		WHERE channel_id = $1
	`, channelID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(channelID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find channel", err)
	}

	return c, nil
}

func (s *PostgresStore) Create(ctx context.Context, c *Channel) error {
	err := s.db.QueryRowContext(ctx, `
			INSERT INTO channels(
				id,
				channel_id,
				title,
				description,
				thumbnail_url,
				refresh_token,
				custom_name
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at
		`,
		c.ID,
		c.ChannelID,
		c.Title,
		c.Description,
		c.ThumbnailURL,
		c.RefreshToken,
		c.CustomName,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return duplicate(c.ChannelID)
	}
	if err != nil {
		return fmt.Errorf("%w: failed to insert channel", err)
	}

	return nil
}

func (s *PostgresStore) Update(ctx context.Context, channelID string, p Patch) (*Channel, error) {
	c, err := scanChannel(s.db.QueryRowContext(ctx, `
			UPDATE channels
			SET
				title = COALESCE($1, title),
				description = COALESCE($2, description),
				thumbnail_url = COALESCE($3, thumbnail_url),
				custom_name = COALESCE($4, custom_name),
				updated_at = now()
			WHERE channel_id = $5
			RETURNING `+channelColumns,
		p.Title,
		p.Description,
		p.ThumbnailURL,
		p.CustomName,
		channelID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(channelID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to update channel", err)
	}

	return c, nil
}

func (s *PostgresStore) UpdateRefreshToken(ctx context.Context, channelID, refreshToken string) (*Channel, error) {
	c, err := scanChannel(s.db.QueryRowContext(ctx, `
			UPDATE channels
			SET
				refresh_token = $1,
				updated_at = now()
			WHERE channel_id = $2
			RETURNING `+channelColumns,
		refreshToken,
		channelID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(channelID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to update refresh token", err)
	}

	return c, nil
}

func (s *PostgresStore) Delete(ctx context.Context, channelID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM channels
		WHERE channel_id = $1
	`, channelID)
	if err != nil {
		return fmt.Errorf("%w: failed to delete channel", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get deleted rows affected count", err)
	}

	if rows == 0 {
		return notFound(channelID)
	}

	return nil
}

func scanChannel(row postgres.Scanner) (*Channel, error) {
	var c Channel
	if err := row.Scan(
		&c.ID,
		&c.ChannelID,
		&c.Title,
		&c.Description,
		&c.ThumbnailURL,
		&c.RefreshToken,
		&c.CustomName,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &c, nil
}
