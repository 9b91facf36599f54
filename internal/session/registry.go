package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/whatlove/getinthegame/internal/domain"
	"github.com/whatlove/getinthegame/pkg/crypto"
)

const minPinDigits = 4

// playerRegistry owns the player pool and the PIN secrets gating team
// membership changes. Players stay registered until explicitly removed.
type playerRegistry struct {
	players map[uuid.UUID]*domain.Player
	arrival []uuid.UUID
}

func newPlayerRegistry() *playerRegistry {
	return &playerRegistry{players: make(map[uuid.UUID]*domain.Player)}
}

func (r *playerRegistry) register(name, pin string, now time.Time) (*domain.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}
	if !validPin(pin) {
		return nil, fmt.Errorf("%w: pin must be at least %d digits", ErrInvalidInput, minPinDigits)
	}
	hash, err := crypto.HashPin(pin)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}
	player := &domain.Player{
		ID:        uuid.New(),
		Name:      name,
		PinHash:   hash,
		CreatedAt: now,
	}
	r.players[player.ID] = player
	r.arrival = append(r.arrival, player.ID)
	return player, nil
}

func (r *playerRegistry) get(id uuid.UUID) (*domain.Player, error) {
	player, ok := r.players[id]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	return player, nil
}

func (r *playerRegistry) remove(id uuid.UUID) (*domain.Player, error) {
	player, ok := r.players[id]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	delete(r.players, id)
	for i, pid := range r.arrival {
		if pid == id {
			r.arrival = append(r.arrival[:i], r.arrival[i+1:]...)
			break
		}
	}
	return player, nil
}

func (r *playerRegistry) verifyPin(id uuid.UUID, pin string) (bool, error) {
	player, ok := r.players[id]
	if !ok {
		return false, ErrPlayerNotFound
	}
	return crypto.ComparePin(player.PinHash, pin) == nil, nil
}

// list returns registration-ordered copies of every player.
func (r *playerRegistry) list() []domain.Player {
	out := make([]domain.Player, 0, len(r.arrival))
	for _, id := range r.arrival {
		out = append(out, r.players[id].Clone())
	}
	return out
}

func validPin(pin string) bool {
	if len(pin) < minPinDigits {
		return false
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
