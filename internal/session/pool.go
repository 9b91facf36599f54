package session

import (
	"fmt"
	"iter"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/whatlove/getinthegame/internal/domain"
)

// minWaitingTeams is how many court-less teams the pool keeps alive so that
// arriving players always have somewhere to go.
const minWaitingTeams = 2

// teamPool owns team lifecycle: creation with a unique color identity,
// destruction with roster unassignment, and replenishment of the waiting
// pool. Fairness order is assigned here and never reused.
type teamPool struct {
	teams     map[uuid.UUID]*domain.Team
	palette   []domain.TeamColor
	nextOrder int
}

func newTeamPool(palette []domain.TeamColor) *teamPool {
	return &teamPool{
		teams:     make(map[uuid.UUID]*domain.Team),
		palette:   palette,
		nextOrder: 1,
	}
}

// create spawns an empty waiting team wearing an unused color. The palette
// is sampled only among colors no live team holds, so exhaustion is detected
// immediately instead of retrying forever.
func (p *teamPool) create(now time.Time) (*domain.Team, error) {
	free := p.unusedColors()
	if len(free) == 0 {
		return nil, fmt.Errorf("%w: all %d colors in use", ErrColorPoolExhausted, len(p.palette))
	}
	team := &domain.Team{
		ID:        uuid.New(),
		Order:     p.nextOrder,
		Color:     free[rand.IntN(len(free))],
		Court:     domain.CourtWaiting,
		CreatedAt: now,
	}
	p.nextOrder++
	p.teams[team.ID] = team
	return team, nil
}

func (p *teamPool) get(id uuid.UUID) (*domain.Team, error) {
	team, ok := p.teams[id]
	if !ok {
		return nil, ErrTeamNotFound
	}
	return team, nil
}

// destroy removes the team from the pool. Roster cleanup is the store's
// responsibility since players live in the registry.
func (p *teamPool) destroy(id uuid.UUID) (*domain.Team, error) {
	team, ok := p.teams[id]
	if !ok {
		return nil, ErrTeamNotFound
	}
	delete(p.teams, id)
	return team, nil
}

// replenish creates teams until the waiting count reaches the floor.
func (p *teamPool) replenish(now time.Time) error {
	for p.waitingCount() < minWaitingTeams {
		if _, err := p.create(now); err != nil {
			return err
		}
	}
	return nil
}

func (p *teamPool) waitingCount() int {
	n := 0
	for _, t := range p.teams {
		if t.Waiting() {
			n++
		}
	}
	return n
}

func (p *teamPool) availableCount(playersPerTeam int) int {
	n := 0
	for _, t := range p.teams {
		if !t.IsFull(playersPerTeam) {
			n++
		}
	}
	return n
}

func (p *teamPool) onCourt(court int) []*domain.Team {
	var out []*domain.Team
	for _, t := range p.teams {
		if t.Court == court && court != domain.CourtWaiting {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// nextDue returns the waiting team with the lowest order, or nil when no
// team is waiting. Orders are unique, so there are no ties.
func (p *teamPool) nextDue() *domain.Team {
	var due *domain.Team
	for _, t := range p.teams {
		if !t.Waiting() {
			continue
		}
		if due == nil || t.Order < due.Order {
			due = t
		}
	}
	return due
}

// list returns copies of every live team in fairness order.
func (p *teamPool) list() []domain.Team {
	out := make([]domain.Team, 0, len(p.teams))
	for _, t := range p.teams {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// available yields joinable teams in fairness order. The sequence is built
// over copies taken when it is created, so it is finite and restartable.
func (p *teamPool) available(playersPerTeam int) iter.Seq[domain.Team] {
	teams := p.list()
	return func(yield func(domain.Team) bool) {
		for _, t := range teams {
			if t.IsFull(playersPerTeam) {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}

func (p *teamPool) unusedColors() []domain.TeamColor {
	inUse := make(map[string]bool, len(p.teams))
	for _, t := range p.teams {
		inUse[t.Color.Name] = true
	}
	var free []domain.TeamColor
	for _, c := range p.palette {
		if !inUse[c.Name] {
			free = append(free, c)
		}
	}
	return free
}
