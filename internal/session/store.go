package session

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/whatlove/getinthegame/internal/domain"
)

// Archive receives a durable copy of every match log entry. The in-memory
// log remains the session's source of truth; archive failures are reported
// but never fail the command that produced the entry.
type Archive interface {
	AppendMatch(ctx context.Context, entry domain.MatchLogEntry) error
}

// Broadcaster fans a published snapshot payload out to stream subscribers.
type Broadcaster interface {
	Broadcast(payload []byte)
}

// Config bounds the session: court count, roster capacity with its
// adjustable range, and the color palette teams draw identities from.
type Config struct {
	Courts            int
	PlayersPerTeam    int
	PlayersPerTeamMin int
	PlayersPerTeamMax int
	Palette           []domain.TeamColor
}

func (c Config) withDefaults() Config {
	if c.Courts <= 0 {
		c.Courts = 2
	}
	if c.PlayersPerTeamMin <= 0 {
		c.PlayersPerTeamMin = 6
	}
	if c.PlayersPerTeamMax < c.PlayersPerTeamMin {
		c.PlayersPerTeamMax = 8
	}
	if c.PlayersPerTeam <= 0 {
		c.PlayersPerTeam = c.PlayersPerTeamMin
	}
	if len(c.Palette) == 0 {
		c.Palette = domain.DefaultPalette
	}
	return c
}

// Store is the single source of truth for one drop-in session. It applies
// one command at a time under its mutex, keeps the managers consistent, and
// publishes an immutable snapshot after every successful mutation. Pending
// conflict advisories are part of the snapshot, not suspended calls.
type Store struct {
	mu             sync.Mutex
	cfg            Config
	playersPerTeam int

	registry  *playerRegistry
	pool      *teamPool
	scheduler *courtScheduler
	log       *matchLog

	pendingCourtFull      *domain.CourtFullAdvisory
	pendingOrderViolation *domain.OrderViolationAdvisory

	archive Archive
	stream  Broadcaster
	logger  *slog.Logger
	now     func() time.Time
}

// New builds a session store and seeds the team pool so two teams are
// already waiting, matching how a session opens.
func New(cfg Config, archive Archive, stream Broadcaster, logger *slog.Logger) (*Store, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	pool := newTeamPool(cfg.Palette)
	s := &Store{
		cfg:            cfg,
		playersPerTeam: cfg.PlayersPerTeam,
		registry:       newPlayerRegistry(),
		pool:           pool,
		scheduler:      newCourtScheduler(pool, cfg.Courts),
		log:            &matchLog{},
		archive:        archive,
		stream:         stream,
		logger:         logger.With("component", "session"),
		now:            time.Now,
	}
	if err := s.pool.replenish(s.now()); err != nil {
		return nil, fmt.Errorf("seed team pool: %w", err)
	}
	return s, nil
}

// RegisterPlayer adds a player to the pool. The PIN gates later membership
// changes and is stored only as a hash.
func (s *Store) RegisterPlayer(ctx context.Context, name, pin string) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, err := s.registry.register(name, pin, s.now())
	if err != nil {
		return domain.Player{}, err
	}
	s.publishLocked()
	return player.Clone(), nil
}

// RemovePlayer deletes a player outright, clearing any team membership on
// the team side first.
func (s *Store) RemovePlayer(ctx context.Context, playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, err := s.registry.get(playerID)
	if err != nil {
		return err
	}
	s.unassignLocked(player)
	if _, err := s.registry.remove(playerID); err != nil {
		return err
	}
	s.publishLocked()
	return nil
}

// VerifyPin reports whether the entered PIN matches the player's secret.
func (s *Store) VerifyPin(ctx context.Context, playerID uuid.UUID, pin string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.verifyPin(playerID, pin)
}

// AddPlayerToTeam appends the player to the team roster. When the join
// leaves fewer than two joinable teams, the pool grows pre-emptively.
func (s *Store) AddPlayerToTeam(ctx context.Context, playerID, teamID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, err := s.registry.get(playerID)
	if err != nil {
		return err
	}
	team, err := s.pool.get(teamID)
	if err != nil {
		return err
	}
	if player.TeamID != nil {
		return fmt.Errorf("%w: player already on a team", ErrInvalidInput)
	}
	if team.IsFull(s.playersPerTeam) {
		return fmt.Errorf("%w: roster at %d players", ErrTeamFull, s.playersPerTeam)
	}

	team.Roster = append(team.Roster, player.ID)
	id := team.ID
	player.TeamID = &id

	if s.pool.availableCount(s.playersPerTeam) < minWaitingTeams {
		if _, err := s.pool.create(s.now()); err != nil {
			team.Roster = team.Roster[:len(team.Roster)-1]
			player.TeamID = nil
			s.logger.Error("pool growth failed after join", "error", err)
			return err
		}
	}
	s.publishLocked()
	return nil
}

// RemovePlayerFromTeam clears the player's membership. A player without a
// team is a no-op, not an error.
func (s *Store) RemovePlayerFromTeam(ctx context.Context, playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, err := s.registry.get(playerID)
	if err != nil {
		return err
	}
	if !s.unassignLocked(player) {
		return nil
	}
	s.publishLocked()
	return nil
}

// AvailableTeams yields joinable teams in fairness order. The sequence is
// finite and restartable; it iterates copies captured at call time.
func (s *Store) AvailableTeams() iter.Seq[domain.Team] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool.available(s.playersPerTeam)
}

// NextDueTeam returns the waiting team fairness allows onto a court next.
func (s *Store) NextDueTeam() (domain.Team, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	due := s.pool.nextDue()
	if due == nil {
		return domain.Team{}, false
	}
	return due.Clone(), true
}

// RequestCourtEntry asks a court slot for the team. The result either
// places the team or carries the advisory that blocked it; advisories stay
// pending in the snapshot until resolved or dismissed.
func (s *Store) RequestCourtEntry(ctx context.Context, teamID uuid.UUID, court int) (EntryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.entryLocked(teamID, court)
	if err != nil {
		return EntryResult{}, err
	}
	s.publishLocked()
	return res, nil
}

// ResolveCourtFull answers a pending court-full advisory: the named
// occupant exits (logged and retired) and the freed slot is re-requested
// for the waiting team under a fresh fairness check.
func (s *Store) ResolveCourtFull(ctx context.Context, bumpedID uuid.UUID, court int, waitingID uuid.UUID) (EntryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingCourtFull == nil || s.pendingCourtFull.Court != court {
		return EntryResult{}, fmt.Errorf("%w: no pending court-full advisory for court %d", ErrInvalidInput, court)
	}
	bumped, err := s.pool.get(bumpedID)
	if err != nil {
		return EntryResult{}, err
	}
	if bumped.Court != court {
		return EntryResult{}, fmt.Errorf("%w: team is not on court %d", ErrInvalidInput, court)
	}
	s.pendingCourtFull = nil
	if _, err := s.exitLocked(ctx, bumpedID); err != nil {
		s.publishLocked()
		return EntryResult{}, err
	}
	res, err := s.entryLocked(waitingID, court)
	s.publishLocked()
	if err != nil {
		return EntryResult{}, err
	}
	return res, nil
}

// RequestCourtExit logs the team's match and retires it, replenishing the
// waiting pool. Backfilling the freed slot is the caller's explicit
// follow-up, never automatic.
func (s *Store) RequestCourtExit(ctx context.Context, teamID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutated, err := s.exitLocked(ctx, teamID)
	if mutated {
		s.publishLocked()
	}
	return err
}

// DismissOrderViolation clears the pending order advisory without acting.
func (s *Store) DismissOrderViolation(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingOrderViolation == nil {
		return
	}
	s.pendingOrderViolation = nil
	s.publishLocked()
}

// DismissCourtFull abandons a pending court-full advisory unresolved.
func (s *Store) DismissCourtFull(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingCourtFull == nil {
		return
	}
	s.pendingCourtFull = nil
	s.publishLocked()
}

// SetPlayersPerTeam updates roster capacity for every team, clamped to the
// configured range.
func (s *Store) SetPlayersPerTeam(ctx context.Context, n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < s.cfg.PlayersPerTeamMin {
		n = s.cfg.PlayersPerTeamMin
	}
	if n > s.cfg.PlayersPerTeamMax {
		n = s.cfg.PlayersPerTeamMax
	}
	if n == s.playersPerTeam {
		return n
	}
	s.playersPerTeam = n
	s.publishLocked()
	return n
}

// RecordScore sets the team's running score, carried into the match log
// when the team exits its court.
func (s *Store) RecordScore(ctx context.Context, teamID uuid.UUID, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if score < 0 {
		return fmt.Errorf("%w: score cannot be negative", ErrInvalidInput)
	}
	team, err := s.pool.get(teamID)
	if err != nil {
		return err
	}
	team.MatchScore = score
	s.publishLocked()
	return nil
}

// Snapshot assembles an independent copy of the entire session state.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Matches returns the chronological match log.
func (s *Store) Matches() []domain.MatchLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.list()
}

func (s *Store) entryLocked(teamID uuid.UUID, court int) (EntryResult, error) {
	team, err := s.pool.get(teamID)
	if err != nil {
		return EntryResult{}, err
	}
	res, err := s.scheduler.requestEntry(team, court)
	if err != nil {
		return EntryResult{}, err
	}
	switch {
	case res.Placed:
		// Placement drains the waiting pool, so it must be refilled to
		// keep two teams ready for arriving players.
		if err := s.pool.replenish(s.now()); err != nil {
			team.Court = domain.CourtWaiting
			s.logger.Error("replenishment failed, entry rolled back", "error", err)
			return EntryResult{}, err
		}
		// Admitting the due team settles any stale order prompt.
		s.pendingOrderViolation = nil
	case res.OrderViolation != nil:
		s.pendingOrderViolation = res.OrderViolation
	case res.CourtFull != nil:
		s.pendingCourtFull = res.CourtFull
	}
	return res, nil
}

func (s *Store) exitLocked(ctx context.Context, teamID uuid.UUID) (bool, error) {
	team, err := s.pool.get(teamID)
	if err != nil {
		return false, err
	}
	if !team.Playing() {
		return false, fmt.Errorf("%w: team is not on a court", ErrTeamNotFound)
	}

	entry := domain.MatchLogEntry{
		Team:     team.Clone(),
		Court:    team.Court,
		Score:    team.MatchScore,
		PlayedAt: s.now(),
	}
	if opponent := s.scheduler.opponentOf(team); opponent != nil {
		opp := opponent.Clone()
		entry.Opponent = &opp
		entry.OpponentScore = opponent.MatchScore
	}
	s.log.record(entry)
	if s.archive != nil {
		if err := s.archive.AppendMatch(ctx, entry); err != nil {
			s.logger.Warn("match archive append failed", "error", err)
		}
	}

	if _, err := s.pool.destroy(team.ID); err != nil {
		return true, err
	}
	for _, pid := range team.Roster {
		if player, err := s.registry.get(pid); err == nil {
			player.TeamID = nil
		}
	}
	if err := s.pool.replenish(s.now()); err != nil {
		s.logger.Error("waiting pool below floor, palette exhausted", "error", err)
		return true, err
	}
	return true, nil
}

// unassignLocked removes the player from their team roster, if any.
func (s *Store) unassignLocked(player *domain.Player) bool {
	if player.TeamID == nil {
		return false
	}
	if team, err := s.pool.get(*player.TeamID); err == nil {
		for i, pid := range team.Roster {
			if pid == player.ID {
				team.Roster = append(team.Roster[:i], team.Roster[i+1:]...)
				break
			}
		}
	}
	player.TeamID = nil
	return true
}

func (s *Store) snapshotLocked() domain.Snapshot {
	full, order := domain.CloneAdvisories(s.pendingCourtFull, s.pendingOrderViolation)
	return domain.Snapshot{
		Players:               s.registry.list(),
		Teams:                 s.pool.list(),
		Matches:               s.log.list(),
		PlayersPerTeam:        s.playersPerTeam,
		PendingCourtFull:      full,
		PendingOrderViolation: order,
	}
}

func (s *Store) publishLocked() {
	if s.stream == nil {
		return
	}
	payload, err := json.Marshal(s.snapshotLocked())
	if err != nil {
		s.logger.Warn("failed to marshal snapshot", "error", err)
		return
	}
	s.stream.Broadcast(payload)
}
