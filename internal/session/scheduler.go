package session

import (
	"fmt"

	"github.com/whatlove/getinthegame/internal/domain"
)

// courtOccupancy is how many teams share one court during a game.
const courtOccupancy = 2

// courtScheduler enforces fairness-ordered court admission. It never
// mutates anything except a team's court assignment; bumping and match
// logging are composed by the store on top of it.
type courtScheduler struct {
	pool   *teamPool
	courts int
}

func newCourtScheduler(pool *teamPool, courts int) *courtScheduler {
	return &courtScheduler{pool: pool, courts: courts}
}

// EntryResult reports the outcome of a court-entry request. Exactly one of
// Placed, OrderViolation, or CourtFull describes what happened; advisories
// mean the request was not applied.
type EntryResult struct {
	Placed         bool                           `json:"placed"`
	OrderViolation *domain.OrderViolationAdvisory `json:"order_violation,omitempty"`
	CourtFull      *domain.CourtFullAdvisory      `json:"court_full,omitempty"`
}

// requestEntry runs the fairness gate and, if it passes, either assigns the
// court or reports it full. A lower-order waiting team always blocks a
// higher-order one; there is no starvation allowance.
func (s *courtScheduler) requestEntry(team *domain.Team, court int) (EntryResult, error) {
	if court < 1 || court > s.courts {
		return EntryResult{}, fmt.Errorf("%w: court %d out of range 1..%d", ErrInvalidInput, court, s.courts)
	}
	if team.Playing() {
		return EntryResult{}, fmt.Errorf("%w: team already on court %d", ErrTeamNotFound, team.Court)
	}

	if due := s.pool.nextDue(); due != nil && due.ID != team.ID {
		return EntryResult{
			OrderViolation: &domain.OrderViolationAdvisory{
				Due:       due.Clone(),
				Requested: team.Clone(),
			},
		}, nil
	}

	occupants := s.pool.onCourt(court)
	if len(occupants) >= courtOccupancy {
		adv := &domain.CourtFullAdvisory{Court: court, Requested: team.Clone()}
		for _, o := range occupants {
			adv.Occupants = append(adv.Occupants, o.Clone())
		}
		return EntryResult{CourtFull: adv}, nil
	}

	team.Court = court
	return EntryResult{Placed: true}, nil
}

// opponentOf returns the other team sharing the playing team's court, if any.
func (s *courtScheduler) opponentOf(team *domain.Team) *domain.Team {
	if !team.Playing() {
		return nil
	}
	for _, t := range s.pool.onCourt(team.Court) {
		if t.ID != team.ID {
			return t
		}
	}
	return nil
}
