package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/whatlove/getinthegame/internal/domain"
	"github.com/whatlove/getinthegame/internal/repository"
)

// Archive implements the match archive on PostgreSQL.
type Archive struct {
	pool *pgxpool.Pool
}

// New constructs an Archive.
func New(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

var _ repository.MatchArchive = (*Archive)(nil)

// AppendMatch inserts a flattened match row.
func (a *Archive) AppendMatch(ctx context.Context, entry domain.MatchLogEntry) error {
	const query = `INSERT INTO matches (team_name, team_color, team_order, opponent_name, opponent_color, opponent_order, court, score, opponent_score, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	rec := entry.Record()
	_, err := a.pool.Exec(ctx, query,
		rec.TeamName,
		rec.TeamColor,
		rec.TeamOrder,
		nullable(rec.OpponentName),
		nullable(rec.OpponentColor),
		rec.OpponentOrder,
		rec.Court,
		rec.Score,
		rec.OpponentScore,
		rec.PlayedAt,
	)
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return repository.ErrInvalidArgument
	}
	return err
}

// ListMatches fetches archived matches newest first.
func (a *Archive) ListMatches(ctx context.Context, limit, offset int) ([]domain.MatchRecord, error) {
	const query = `SELECT id, team_name, team_color, team_order, opponent_name, opponent_color, opponent_order, court, score, opponent_score, played_at
		FROM matches ORDER BY id DESC LIMIT $1 OFFSET $2`
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := a.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.MatchRecord
	for rows.Next() {
		var rec domain.MatchRecord
		var oppName, oppColor *string
		if err := rows.Scan(&rec.ID, &rec.TeamName, &rec.TeamColor, &rec.TeamOrder, &oppName, &oppColor, &rec.OpponentOrder, &rec.Court, &rec.Score, &rec.OpponentScore, &rec.PlayedAt); err != nil {
			return nil, err
		}
		if oppName != nil {
			rec.OpponentName = *oppName
		}
		if oppColor != nil {
			rec.OpponentColor = *oppColor
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
