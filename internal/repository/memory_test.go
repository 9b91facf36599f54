package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/whatlove/getinthegame/internal/domain"
)

func appendEntries(t *testing.T, a *MemoryArchive, n int) {
	t.Helper()
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		entry := domain.MatchLogEntry{
			Team: domain.Team{
				Order: i + 1,
				Color: domain.TeamColor{Name: fmt.Sprintf("Color%d", i+1)},
			},
			Court:    1,
			Score:    i,
			PlayedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := a.AppendMatch(context.Background(), entry); err != nil {
			t.Fatalf("AppendMatch %d: %v", i, err)
		}
	}
}

func TestMemoryArchiveListNewestFirst(t *testing.T) {
	archive := NewMemoryArchive()
	appendEntries(t, archive, 3)

	records, err := archive.ListMatches(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListMatches returned error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].TeamOrder != 3 || records[2].TeamOrder != 1 {
		t.Fatalf("records not newest first: %+v", records)
	}
	if records[0].ID != 3 || records[2].ID != 1 {
		t.Fatalf("ids not assigned sequentially: %+v", records)
	}
}

func TestMemoryArchivePaging(t *testing.T) {
	archive := NewMemoryArchive()
	appendEntries(t, archive, 5)
	ctx := context.Background()

	page, err := archive.ListMatches(ctx, 2, 0)
	if err != nil || len(page) != 2 || page[0].TeamOrder != 5 {
		t.Fatalf("first page = (%+v, %v)", page, err)
	}
	page, err = archive.ListMatches(ctx, 2, 2)
	if err != nil || len(page) != 2 || page[0].TeamOrder != 3 {
		t.Fatalf("second page = (%+v, %v)", page, err)
	}
	page, err = archive.ListMatches(ctx, 2, 4)
	if err != nil || len(page) != 1 || page[0].TeamOrder != 1 {
		t.Fatalf("last page = (%+v, %v)", page, err)
	}
	page, err = archive.ListMatches(ctx, 2, 10)
	if err != nil || len(page) != 0 {
		t.Fatalf("past-end page = (%+v, %v), want empty", page, err)
	}
}
