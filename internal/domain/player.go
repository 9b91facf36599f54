package domain

import (
	"time"

	"github.com/google/uuid"
)

// Player is a participant in the drop-in session. A player exists
// independently of any team; TeamID is nil while unassigned.
type Player struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	PinHash   []byte     `json:"-"`
	TeamID    *uuid.UUID `json:"team_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Clone returns an independent copy of the player.
func (p Player) Clone() Player {
	out := p
	if p.TeamID != nil {
		id := *p.TeamID
		out.TeamID = &id
	}
	out.PinHash = append([]byte(nil), p.PinHash...)
	return out
}
