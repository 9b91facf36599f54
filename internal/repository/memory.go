package repository

import (
	"context"
	"sync"

	"github.com/whatlove/getinthegame/internal/domain"
)

// MemoryArchive is the match archive used when no database is configured.
type MemoryArchive struct {
	mu      sync.Mutex
	nextID  int64
	records []domain.MatchRecord
}

// NewMemoryArchive returns an empty in-process archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{nextID: 1}
}

// AppendMatch stores the flattened entry.
func (a *MemoryArchive) AppendMatch(ctx context.Context, entry domain.MatchLogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec := entry.Record()
	rec.ID = a.nextID
	a.nextID++
	a.records = append(a.records, rec)
	return nil
}

// ListMatches returns records newest first.
func (a *MemoryArchive) ListMatches(ctx context.Context, limit, offset int) ([]domain.MatchRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	out := make([]domain.MatchRecord, 0, limit)
	for i := len(a.records) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, a.records[i])
	}
	return out, nil
}
