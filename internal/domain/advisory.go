package domain

// CourtFullAdvisory is raised when a due team asks onto a court that
// already holds two teams. No mutation happens until the caller resolves it
// by naming the occupant to bump, or dismisses it.
type CourtFullAdvisory struct {
	Court     int    `json:"court"`
	Occupants []Team `json:"occupants"`
	Requested Team   `json:"requested"`
}

// OrderViolationAdvisory is raised when a team asks onto a court while a
// lower-order team is still waiting. The request is not applied; the caller
// either dismisses the advisory or re-requests entry for the due team.
type OrderViolationAdvisory struct {
	Due       Team `json:"due"`
	Requested Team `json:"requested"`
}

func (a CourtFullAdvisory) clone() CourtFullAdvisory {
	out := a
	out.Occupants = make([]Team, len(a.Occupants))
	for i, t := range a.Occupants {
		out.Occupants[i] = t.Clone()
	}
	out.Requested = a.Requested.Clone()
	return out
}

func (a OrderViolationAdvisory) clone() OrderViolationAdvisory {
	out := a
	out.Due = a.Due.Clone()
	out.Requested = a.Requested.Clone()
	return out
}
