package repository

import (
	"context"

	"github.com/whatlove/getinthegame/internal/domain"
)

// MatchArchive keeps a durable history of completed matches across
// sessions. The in-memory match log owns the current session; the archive
// is a write-behind sink plus a paging read for history views.
type MatchArchive interface {
	AppendMatch(ctx context.Context, entry domain.MatchLogEntry) error
	ListMatches(ctx context.Context, limit, offset int) ([]domain.MatchRecord, error)
}
