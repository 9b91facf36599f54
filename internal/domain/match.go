package domain

import "time"

// MatchLogEntry records a completed match at the moment a team left its
// court. The team copies are snapshots taken at exit time; the entry never
// changes after it is appended.
type MatchLogEntry struct {
	Team          Team      `json:"team"`
	Opponent      *Team     `json:"opponent,omitempty"`
	Court         int       `json:"court"`
	Score         int       `json:"score"`
	OpponentScore int       `json:"opponent_score"`
	PlayedAt      time.Time `json:"played_at"`
}

// MatchRecord is the flattened archive row for a completed match.
type MatchRecord struct {
	ID            int64     `json:"id"`
	TeamName      string    `json:"team_name"`
	TeamColor     string    `json:"team_color"`
	TeamOrder     int       `json:"team_order"`
	OpponentName  string    `json:"opponent_name,omitempty"`
	OpponentColor string    `json:"opponent_color,omitempty"`
	OpponentOrder int       `json:"opponent_order,omitempty"`
	Court         int       `json:"court"`
	Score         int       `json:"score"`
	OpponentScore int       `json:"opponent_score"`
	PlayedAt      time.Time `json:"played_at"`
}

// Record flattens the entry for archival.
func (e MatchLogEntry) Record() MatchRecord {
	rec := MatchRecord{
		TeamName:      e.Team.Name(),
		TeamColor:     e.Team.Color.Name,
		TeamOrder:     e.Team.Order,
		Court:         e.Court,
		Score:         e.Score,
		OpponentScore: e.OpponentScore,
		PlayedAt:      e.PlayedAt,
	}
	if e.Opponent != nil {
		rec.OpponentName = e.Opponent.Name()
		rec.OpponentColor = e.Opponent.Color.Name
		rec.OpponentOrder = e.Opponent.Order
	}
	return rec
}

// Clone returns an independent copy of the entry.
func (e MatchLogEntry) Clone() MatchLogEntry {
	out := e
	out.Team = e.Team.Clone()
	if e.Opponent != nil {
		opp := e.Opponent.Clone()
		out.Opponent = &opp
	}
	return out
}
