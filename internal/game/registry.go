package game

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a thread-safe catalog of games keyed by slug.
type Registry struct {
	games map[string]Game
	mu    sync.RWMutex
}

// NewRegistry creates a registry pre-filled with games.
func NewRegistry(games ...Game) (*Registry, error) {
	r := &Registry{games: make(map[string]Game)}
	for _, g := range games {
		if err := r.Register(g); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds or replaces a game.
func (r *Registry) Register(g Game) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("invalid game %q: %w", g.Slug, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.Slug] = g
	return nil
}

// Get retrieves a game by slug.
func (r *Registry) Get(slug string) (Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[slug]
	return g, ok
}

// List returns every game sorted by slug.
func (r *Registry) List() []Game {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Slug < games[j].Slug })
	return games
}

// Count returns the number of registered games.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}
