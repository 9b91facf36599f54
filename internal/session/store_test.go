package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/whatlove/getinthegame/internal/domain"
)

type captureArchive struct {
	entries []domain.MatchLogEntry
	err     error
}

func (a *captureArchive) AppendMatch(ctx context.Context, entry domain.MatchLogEntry) error {
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, entry)
	return nil
}

type captureStream struct {
	payloads [][]byte
}

func (s *captureStream) Broadcast(payload []byte) {
	s.payloads = append(s.payloads, payload)
}

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := New(cfg, nil, nil, log)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return store
}

func registerPlayer(t *testing.T, s *Store, name string) domain.Player {
	t.Helper()
	player, err := s.RegisterPlayer(context.Background(), name, "1234")
	if err != nil {
		t.Fatalf("RegisterPlayer(%s) returned error: %v", name, err)
	}
	return player
}

func teamWithOrder(t *testing.T, s *Store, order int) domain.Team {
	t.Helper()
	for _, team := range s.Snapshot().Teams {
		if team.Order == order {
			return team
		}
	}
	t.Fatalf("no live team with order %d", order)
	return domain.Team{}
}

func checkInvariants(t *testing.T, snap domain.Snapshot) {
	t.Helper()
	waiting := 0
	colors := make(map[string]bool)
	courts := make(map[int]int)
	teams := make(map[uuid.UUID]domain.Team)
	for _, team := range snap.Teams {
		teams[team.ID] = team
		if team.Waiting() {
			waiting++
		} else {
			courts[team.Court]++
		}
		if colors[team.Color.Name] {
			t.Fatalf("two live teams share color %s", team.Color.Name)
		}
		colors[team.Color.Name] = true
		if len(team.Roster) > snap.PlayersPerTeam {
			t.Fatalf("team order %d roster %d exceeds capacity %d", team.Order, len(team.Roster), snap.PlayersPerTeam)
		}
	}
	if waiting < 2 {
		t.Fatalf("waiting team floor violated: %d waiting", waiting)
	}
	for court, n := range courts {
		if n > 2 {
			t.Fatalf("court %d holds %d teams", court, n)
		}
	}
	for _, player := range snap.Players {
		if player.TeamID == nil {
			continue
		}
		team, ok := teams[*player.TeamID]
		if !ok {
			t.Fatalf("player %s references dead team %s", player.Name, player.TeamID)
		}
		if !team.HasPlayer(player.ID) {
			t.Fatalf("player %s missing from roster of team order %d", player.Name, team.Order)
		}
	}
}

func TestNewSeedsTwoWaitingTeams(t *testing.T) {
	store := newTestStore(t, Config{})
	snap := store.Snapshot()
	if len(snap.Teams) != 2 {
		t.Fatalf("expected 2 seeded teams, got %d", len(snap.Teams))
	}
	if snap.Teams[0].Order != 1 || snap.Teams[1].Order != 2 {
		t.Fatalf("unexpected seed orders: %d, %d", snap.Teams[0].Order, snap.Teams[1].Order)
	}
	checkInvariants(t, snap)
}

func TestRegisterPlayerValidation(t *testing.T) {
	store := newTestStore(t, Config{})
	ctx := context.Background()

	cases := []struct {
		name string
		pin  string
	}{
		{name: "", pin: "1234"},
		{name: "   ", pin: "1234"},
		{name: "Sam", pin: "123"},
		{name: "Sam", pin: "12a4"},
		{name: "Sam", pin: ""},
	}
	for _, tc := range cases {
		if _, err := store.RegisterPlayer(ctx, tc.name, tc.pin); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("RegisterPlayer(%q, %q) = %v, want ErrInvalidInput", tc.name, tc.pin, err)
		}
	}

	player, err := store.RegisterPlayer(ctx, "  Sam ", "123456")
	if err != nil {
		t.Fatalf("RegisterPlayer returned error: %v", err)
	}
	if player.Name != "Sam" {
		t.Fatalf("expected trimmed name, got %q", player.Name)
	}
	if player.TeamID != nil {
		t.Fatalf("new player should be unassigned")
	}
}

func TestVerifyPin(t *testing.T) {
	store := newTestStore(t, Config{})
	ctx := context.Background()
	player := registerPlayer(t, store, "Alex")

	valid, err := store.VerifyPin(ctx, player.ID, "1234")
	if err != nil || !valid {
		t.Fatalf("VerifyPin correct = (%v, %v), want (true, nil)", valid, err)
	}
	valid, err = store.VerifyPin(ctx, player.ID, "9999")
	if err != nil || valid {
		t.Fatalf("VerifyPin wrong = (%v, %v), want (false, nil)", valid, err)
	}
	if _, err := store.VerifyPin(ctx, uuid.New(), "1234"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("VerifyPin unknown id = %v, want ErrPlayerNotFound", err)
	}
}

func TestAddPlayerToTeam(t *testing.T) {
	store := newTestStore(t, Config{})
	ctx := context.Background()
	player := registerPlayer(t, store, "Alex")
	team := teamWithOrder(t, store, 1)

	if err := store.AddPlayerToTeam(ctx, player.ID, uuid.New()); !errors.Is(err, ErrTeamNotFound) {
		t.Fatalf("unknown team = %v, want ErrTeamNotFound", err)
	}
	if err := store.AddPlayerToTeam(ctx, uuid.New(), team.ID); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("unknown player = %v, want ErrPlayerNotFound", err)
	}

	if err := store.AddPlayerToTeam(ctx, player.ID, team.ID); err != nil {
		t.Fatalf("AddPlayerToTeam returned error: %v", err)
	}
	updated := teamWithOrder(t, store, 1)
	if !updated.HasPlayer(player.ID) {
		t.Fatalf("roster missing player after join")
	}

	if err := store.AddPlayerToTeam(ctx, player.ID, team.ID); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("double join = %v, want ErrInvalidInput", err)
	}
	checkInvariants(t, store.Snapshot())
}

func TestAddPlayerToFullTeam(t *testing.T) {
	store := newTestStore(t, Config{PlayersPerTeam: 1, PlayersPerTeamMin: 1, PlayersPerTeamMax: 2})
	ctx := context.Background()
	first := registerPlayer(t, store, "Alex")
	second := registerPlayer(t, store, "Brett")
	team := teamWithOrder(t, store, 1)

	if err := store.AddPlayerToTeam(ctx, first.ID, team.ID); err != nil {
		t.Fatalf("first join returned error: %v", err)
	}
	if err := store.AddPlayerToTeam(ctx, second.ID, team.ID); !errors.Is(err, ErrTeamFull) {
		t.Fatalf("join to full team = %v, want ErrTeamFull", err)
	}
	if got := len(teamWithOrder(t, store, 1).Roster); got != 1 {
		t.Fatalf("roster changed on failed join: %d players", got)
	}
}

func TestPoolGrowsWhenAvailableTeamsRunLow(t *testing.T) {
	store := newTestStore(t, Config{PlayersPerTeam: 1, PlayersPerTeamMin: 1, PlayersPerTeamMax: 2})
	ctx := context.Background()
	player := registerPlayer(t, store, "Alex")
	team := teamWithOrder(t, store, 1)

	if err := store.AddPlayerToTeam(ctx, player.ID, team.ID); err != nil {
		t.Fatalf("join returned error: %v", err)
	}
	// Filling team 1 left only team 2 joinable, so a third team spawns.
	snap := store.Snapshot()
	if len(snap.Teams) != 3 {
		t.Fatalf("expected pre-emptive team creation, got %d teams", len(snap.Teams))
	}
	checkInvariants(t, snap)
}

func TestRemovePlayerFromTeamWithoutTeamIsNoop(t *testing.T) {
	store := newTestStore(t, Config{})
	ctx := context.Background()
	player := registerPlayer(t, store, "Alex")
	before := store.Snapshot()

	if err := store.RemovePlayerFromTeam(ctx, player.ID); err != nil {
		t.Fatalf("no-op removal returned error: %v", err)
	}
	after := store.Snapshot()
	if len(after.Teams) != len(before.Teams) || after.PendingCourtFull != nil || after.PendingOrderViolation != nil {
		t.Fatalf("no-op removal mutated state")
	}
}

func TestRemovePlayerClearsRosterSide(t *testing.T) {
	store := newTestStore(t, Config{})
	ctx := context.Background()
	player := registerPlayer(t, store, "Alex")
	team := teamWithOrder(t, store, 1)

	if err := store.AddPlayerToTeam(ctx, player.ID, team.ID); err != nil {
		t.Fatalf("join returned error: %v", err)
	}
	if err := store.RemovePlayer(ctx, player.ID); err != nil {
		t.Fatalf("RemovePlayer returned error: %v", err)
	}
	snap := store.Snapshot()
	if len(snap.Players) != 0 {
		t.Fatalf("player still registered after removal")
	}
	if got := len(teamWithOrder(t, store, 1).Roster); got != 0 {
		t.Fatalf("roster still holds removed player: %d", got)
	}
}

func TestAvailableTeamsSequenceIsRestartable(t *testing.T) {
	store := newTestStore(t, Config{})
	seq := store.AvailableTeams()

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	first, second := count(), count()
	if first != 2 || second != 2 {
		t.Fatalf("expected 2 available teams on both passes, got %d then %d", first, second)
	}
}

func TestNextDueTeamFollowsOrder(t *testing.T) {
	store := newTestStore(t, Config{})
	due, ok := store.NextDueTeam()
	if !ok || due.Order != 1 {
		t.Fatalf("expected team order 1 due, got (%v, %v)", due.Order, ok)
	}
}

func TestEntryByNonDueTeamRaisesOrderViolation(t *testing.T) {
	store := newTestStore(t, Config{})
	ctx := context.Background()
	team2 := teamWithOrder(t, store, 2)

	res, err := store.RequestCourtEntry(ctx, team2.ID, 1)
	if err != nil {
		t.Fatalf("RequestCourtEntry returned error: %v", err)
	}
	if res.Placed || res.OrderViolation == nil {
		t.Fatalf("expected order violation advisory, got %+v", res)
	}
	if res.OrderViolation.Due.Order != 1 || res.OrderViolation.Requested.Order != 2 {
		t.Fatalf("advisory names wrong teams: due %d requested %d", res.OrderViolation.Due.Order, res.OrderViolation.Requested.Order)
	}
	snap := store.Snapshot()
	if snap.PendingOrderViolation == nil {
		t.Fatalf("advisory not pending in snapshot")
	}
	if !teamWithOrder(t, store, 2).Waiting() {
		t.Fatalf("request was applied despite advisory")
	}

	store.DismissOrderViolation(ctx)
	if store.Snapshot().PendingOrderViolation != nil {
		t.Fatalf("dismiss left advisory pending")
	}
}

func TestDueTeamEntryPlacesAndReplenishes(t *testing.T) {
	store := newTestStore(t, Config{})
	ctx := context.Background()
	team1 := teamWithOrder(t, store, 1)

	res, err := store.RequestCourtEntry(ctx, team1.ID, 1)
	if err != nil || !res.Placed {
		t.Fatalf("due team entry = (%+v, %v), want placement", res, err)
	}
	if teamWithOrder(t, store, 1).Court != 1 {
		t.Fatalf("team 1 not on court 1")
	}
	checkInvariants(t, store.Snapshot())

	team2 := teamWithOrder(t, store, 2)
	res, err = store.RequestCourtEntry(ctx, team2.ID, 1)
	if err != nil || !res.Placed {
		t.Fatalf("second entry = (%+v, %v), want placement", res, err)
	}
	snap := store.Snapshot()
	onCourt := 0
	for _, team := range snap.Teams {
		if team.Court == 1 {
			onCourt++
		}
	}
	if onCourt != 2 {
		t.Fatalf("expected 2 teams on court 1, got %d", onCourt)
	}
	checkInvariants(t, snap)
}

func TestFullCourtBumpProtocol(t *testing.T) {
	store := newTestStore(t, Config{})
	ctx := context.Background()

	team1 := teamWithOrder(t, store, 1)
	team2 := teamWithOrder(t, store, 2)
	if _, err := store.RequestCourtEntry(ctx, team1.ID, 1); err != nil {
		t.Fatalf("entry 1: %v", err)
	}
	if _, err := store.RequestCourtEntry(ctx, team2.ID, 1); err != nil {
		t.Fatalf("entry 2: %v", err)
	}

	team3 := teamWithOrder(t, store, 3)
	res, err := store.RequestCourtEntry(ctx, team3.ID, 1)
	if err != nil {
		t.Fatalf("entry 3: %v", err)
	}
	if res.Placed || res.CourtFull == nil {
		t.Fatalf("expected court-full advisory, got %+v", res)
	}
	if len(res.CourtFull.Occupants) != 2 {
		t.Fatalf("advisory lists %d occupants, want 2", len(res.CourtFull.Occupants))
	}
	if store.Snapshot().PendingCourtFull == nil {
		t.Fatalf("court-full advisory not pending in snapshot")
	}

	res, err = store.ResolveCourtFull(ctx, team1.ID, 1, team3.ID)
	if err != nil {
		t.Fatalf("ResolveCourtFull returned error: %v", err)
	}
	if !res.Placed {
		t.Fatalf("waiting team not placed after bump: %+v", res)
	}

	snap := store.Snapshot()
	if snap.PendingCourtFull != nil {
		t.Fatalf("advisory still pending after resolve")
	}
	for _, team := range snap.Teams {
		if team.ID == team1.ID {
			t.Fatalf("bumped team still alive")
		}
	}
	if teamWithOrder(t, store, 3).Court != 1 {
		t.Fatalf("waiting team not on court 1")
	}
	if len(snap.Matches) != 1 {
		t.Fatalf("expected 1 logged match, got %d", len(snap.Matches))
	}
	entry := snap.Matches[0]
	if entry.Team.ID != team1.ID || entry.Opponent == nil || entry.Opponent.ID != team2.ID || entry.Court != 1 {
		t.Fatalf("unexpected match log entry: %+v", entry)
	}
	checkInvariants(t, snap)
}

func TestResolveCourtFullRequiresPendingAdvisory(t *testing.T) {
	store := newTestStore(t, Config{})
	ctx := context.Background()
	team1 := teamWithOrder(t, store, 1)
	team2 := teamWithOrder(t, store, 2)

	if _, err := store.ResolveCourtFull(ctx, team1.ID, 1, team2.ID); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("resolve without advisory = %v, want ErrInvalidInput", err)
	}
}

func TestCourtExitLogsScoresAndRetires(t *testing.T) {
	archive := &captureArchive{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := New(Config{}, archive, nil, log)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := context.Background()

	player := registerPlayer(t, store, "Alex")
	team1 := teamWithOrder(t, store, 1)
	team2 := teamWithOrder(t, store, 2)
	if err := store.AddPlayerToTeam(ctx, player.ID, team1.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := store.RequestCourtEntry(ctx, team1.ID, 1); err != nil {
		t.Fatalf("entry 1: %v", err)
	}
	if _, err := store.RequestCourtEntry(ctx, team2.ID, 1); err != nil {
		t.Fatalf("entry 2: %v", err)
	}
	if err := store.RecordScore(ctx, team1.ID, 21); err != nil {
		t.Fatalf("score 1: %v", err)
	}
	if err := store.RecordScore(ctx, team2.ID, 15); err != nil {
		t.Fatalf("score 2: %v", err)
	}

	if err := store.RequestCourtExit(ctx, team1.ID); err != nil {
		t.Fatalf("RequestCourtExit returned error: %v", err)
	}

	matches := store.Matches()
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	entry := matches[0]
	if entry.Score != 21 || entry.OpponentScore != 15 || entry.Court != 1 {
		t.Fatalf("unexpected entry: score %d opponent %d court %d", entry.Score, entry.OpponentScore, entry.Court)
	}
	if len(archive.entries) != 1 {
		t.Fatalf("archive received %d entries, want 1", len(archive.entries))
	}

	snap := store.Snapshot()
	for _, p := range snap.Players {
		if p.ID == player.ID && p.TeamID != nil {
			t.Fatalf("player still assigned to retired team")
		}
	}
	checkInvariants(t, snap)
}

func TestCourtExitSurvivesArchiveFailure(t *testing.T) {
	archive := &captureArchive{err: errors.New("db down")}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := New(Config{}, archive, nil, log)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := context.Background()

	team1 := teamWithOrder(t, store, 1)
	if _, err := store.RequestCourtEntry(ctx, team1.ID, 1); err != nil {
		t.Fatalf("entry: %v", err)
	}
	if err := store.RequestCourtExit(ctx, team1.ID); err != nil {
		t.Fatalf("exit should not fail on archive error: %v", err)
	}
	if len(store.Matches()) != 1 {
		t.Fatalf("match log missing entry after archive failure")
	}
}

func TestCourtExitRejectsWaitingTeam(t *testing.T) {
	store := newTestStore(t, Config{})
	team1 := teamWithOrder(t, store, 1)
	if err := store.RequestCourtExit(context.Background(), team1.ID); !errors.Is(err, ErrTeamNotFound) {
		t.Fatalf("exit for waiting team = %v, want ErrTeamNotFound", err)
	}
}

func TestColorPoolExhaustion(t *testing.T) {
	palette := []domain.TeamColor{{Name: "Red"}, {Name: "Blue"}}
	store := newTestStore(t, Config{Palette: palette})
	ctx := context.Background()
	team1 := teamWithOrder(t, store, 1)

	// Placing team 1 needs a replacement waiting team, but both colors are
	// worn. The command fails and rolls back instead of retrying forever.
	res, err := store.RequestCourtEntry(ctx, team1.ID, 1)
	if !errors.Is(err, ErrColorPoolExhausted) {
		t.Fatalf("entry with exhausted palette = (%+v, %v), want ErrColorPoolExhausted", res, err)
	}
	if !teamWithOrder(t, store, 1).Waiting() {
		t.Fatalf("placement not rolled back after exhaustion")
	}
}

func TestColorPoolExhaustionOnJoinGrowth(t *testing.T) {
	palette := []domain.TeamColor{{Name: "Red"}, {Name: "Blue"}}
	store := newTestStore(t, Config{Palette: palette, PlayersPerTeam: 1, PlayersPerTeamMin: 1, PlayersPerTeamMax: 2})
	ctx := context.Background()
	player := registerPlayer(t, store, "Alex")
	team1 := teamWithOrder(t, store, 1)

	if err := store.AddPlayerToTeam(ctx, player.ID, team1.ID); !errors.Is(err, ErrColorPoolExhausted) {
		t.Fatalf("join requiring pool growth = %v, want ErrColorPoolExhausted", err)
	}
	if got := len(teamWithOrder(t, store, 1).Roster); got != 0 {
		t.Fatalf("failed join left roster mutated: %d players", got)
	}
	snap := store.Snapshot()
	for _, p := range snap.Players {
		if p.TeamID != nil {
			t.Fatalf("failed join left player assigned")
		}
	}
}

func TestSetPlayersPerTeamClamps(t *testing.T) {
	store := newTestStore(t, Config{})
	ctx := context.Background()

	if got := store.SetPlayersPerTeam(ctx, 10); got != 8 {
		t.Fatalf("SetPlayersPerTeam(10) = %d, want clamp to 8", got)
	}
	if got := store.SetPlayersPerTeam(ctx, 1); got != 6 {
		t.Fatalf("SetPlayersPerTeam(1) = %d, want clamp to 6", got)
	}
	if got := store.SetPlayersPerTeam(ctx, 7); got != 7 {
		t.Fatalf("SetPlayersPerTeam(7) = %d, want 7", got)
	}
	if store.Snapshot().PlayersPerTeam != 7 {
		t.Fatalf("snapshot does not carry updated capacity")
	}
}

func TestRecordScoreValidation(t *testing.T) {
	store := newTestStore(t, Config{})
	ctx := context.Background()
	team1 := teamWithOrder(t, store, 1)

	if err := store.RecordScore(ctx, team1.ID, -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative score = %v, want ErrInvalidInput", err)
	}
	if err := store.RecordScore(ctx, uuid.New(), 5); !errors.Is(err, ErrTeamNotFound) {
		t.Fatalf("unknown team = %v, want ErrTeamNotFound", err)
	}
}

func TestSnapshotIsIsolatedCopy(t *testing.T) {
	store := newTestStore(t, Config{})
	ctx := context.Background()
	player := registerPlayer(t, store, "Alex")
	team1 := teamWithOrder(t, store, 1)
	if err := store.AddPlayerToTeam(ctx, player.ID, team1.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	snap := store.Snapshot()
	snap.Teams[0].Roster[0] = uuid.New()
	snap.Players[0].Name = "Mutated"

	fresh := store.Snapshot()
	if !fresh.Teams[0].HasPlayer(player.ID) {
		t.Fatalf("mutating a snapshot leaked into the store")
	}
	if fresh.Players[0].Name != "Alex" {
		t.Fatalf("mutating a snapshot player leaked into the store")
	}
}

func TestStorePublishesSnapshotsOnCommands(t *testing.T) {
	stream := &captureStream{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := New(Config{}, nil, stream, log)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := context.Background()

	registerPlayer(t, store, "Alex")
	if len(stream.payloads) != 1 {
		t.Fatalf("expected 1 published snapshot, got %d", len(stream.payloads))
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(stream.payloads[0], &snap); err != nil {
		t.Fatalf("published payload is not a snapshot: %v", err)
	}
	if len(snap.Players) != 1 || len(snap.Teams) != 2 {
		t.Fatalf("published snapshot wrong shape: %d players, %d teams", len(snap.Players), len(snap.Teams))
	}

	// Queries publish nothing.
	store.Snapshot()
	_, _ = store.VerifyPin(ctx, snap.Players[0].ID, "1234")
	if len(stream.payloads) != 1 {
		t.Fatalf("query published a snapshot")
	}
}
