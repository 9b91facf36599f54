package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CourtWaiting marks a team without a court assignment.
const CourtWaiting = 0

// Team is a roster of players cycling through the courts. Order encodes
// fairness priority: it is assigned once at creation, never reused, and a
// lower value always wins court admission over a higher one.
type Team struct {
	ID         uuid.UUID   `json:"id"`
	Order      int         `json:"order"`
	Color      TeamColor   `json:"color"`
	Roster     []uuid.UUID `json:"roster"`
	Court      int         `json:"court"`
	MatchScore int         `json:"match_score"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Name renders the display name used by the presentation layer.
func (t Team) Name() string {
	return fmt.Sprintf("Team %d - %s", t.Order, t.Color.Name)
}

// Waiting reports whether the team has no court assignment.
func (t Team) Waiting() bool { return t.Court == CourtWaiting }

// Playing reports whether the team currently occupies a court.
func (t Team) Playing() bool { return t.Court != CourtWaiting }

// IsFull reports whether the roster has reached the session capacity.
// Capacity is passed in explicitly; it is session configuration, not team
// state, and may change while the team is alive.
func (t Team) IsFull(playersPerTeam int) bool {
	return len(t.Roster) >= playersPerTeam
}

// OpenSpots returns how many roster slots remain at the given capacity.
func (t Team) OpenSpots(playersPerTeam int) int {
	spots := playersPerTeam - len(t.Roster)
	if spots < 0 {
		return 0
	}
	return spots
}

// HasPlayer reports whether the player is on the roster.
func (t Team) HasPlayer(playerID uuid.UUID) bool {
	for _, id := range t.Roster {
		if id == playerID {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the team.
func (t Team) Clone() Team {
	out := t
	out.Roster = append([]uuid.UUID(nil), t.Roster...)
	return out
}
