package domain

// Snapshot is the full published state of the session after a command.
// Every field is an independent copy; holders may read it freely while the
// store keeps mutating its own state.
type Snapshot struct {
	Players               []Player                `json:"players"`
	Teams                 []Team                  `json:"teams"`
	Matches               []MatchLogEntry         `json:"matches"`
	PlayersPerTeam        int                     `json:"players_per_team"`
	PendingCourtFull      *CourtFullAdvisory      `json:"pending_court_full,omitempty"`
	PendingOrderViolation *OrderViolationAdvisory `json:"pending_order_violation,omitempty"`
}

// CloneAdvisories copies the pending advisory pointers so a snapshot can be
// assembled from live advisory state without sharing it.
func CloneAdvisories(full *CourtFullAdvisory, order *OrderViolationAdvisory) (*CourtFullAdvisory, *OrderViolationAdvisory) {
	var f *CourtFullAdvisory
	var o *OrderViolationAdvisory
	if full != nil {
		c := full.clone()
		f = &c
	}
	if order != nil {
		c := order.clone()
		o = &c
	}
	return f, o
}
