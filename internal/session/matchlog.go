package session

import "github.com/whatlove/getinthegame/internal/domain"

// matchLog is the append-only record of completed matches. Entries arrive
// only from court exits and are never modified afterwards.
type matchLog struct {
	entries []domain.MatchLogEntry
}

func (l *matchLog) record(entry domain.MatchLogEntry) {
	l.entries = append(l.entries, entry)
}

// list returns copies of every entry in chronological (insertion) order.
func (l *matchLog) list() []domain.MatchLogEntry {
	out := make([]domain.MatchLogEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.Clone())
	}
	return out
}
