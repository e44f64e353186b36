package werewolf

import (
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
)

// Manager keeps every live game of one host process and routes actors to the
// game they play in.
type Manager struct {
	cfg      Config
	msg      Messenger
	narrator Narrator
	stats    StatsSink

	gamesMutex sync.RWMutex
	games      map[string]*Game
}

// NewManager creates an empty manager. Every game it creates shares the
// collaborators and starts from cfg.
func NewManager(cfg Config, msg Messenger, narrator Narrator, stats StatsSink) *Manager {
	return &Manager{
		cfg:      cfg,
		msg:      msg,
		narrator: narrator,
		stats:    stats,
		games:    make(map[string]*Game),
	}
}

// CreateLobby opens a new lobby hosted by host.
func (m *Manager) CreateLobby(host Identity) (*Game, error) {
	m.gamesMutex.Lock()
	defer m.gamesMutex.Unlock()

	if g, ok := m.gameForLocked(host.ExternalID()); ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInGame, g.ID)
	}
	cfg := m.cfg
	if cfg.Rand != nil {
		// Games never share a generator.
		cfg.Rand = rand.New(rand.NewPCG(cfg.Rand.Uint64(), cfg.Rand.Uint64()))
	}

	g, err := NewGame(host, cfg, m.msg, m.narrator, m.stats)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.onFinish = m.forget
	g.mu.Unlock()

	m.games[g.ID] = g
	return g, nil
}

// Join adds id to the lobby gameID. The membership check and the join
// happen under one lock so an actor never ends up in two games.
func (m *Manager) Join(gameID string, id Identity) (*Game, string, error) {
	m.gamesMutex.Lock()
	defer m.gamesMutex.Unlock()

	if g, ok := m.gameForLocked(id.ExternalID()); ok && g.ID != gameID {
		return nil, "", fmt.Errorf("%w: %s", ErrAlreadyInGame, g.ID)
	}
	g, ok := m.games[gameID]
	if !ok {
		return nil, "", fmt.Errorf("%w: no game %q", ErrNotFound, gameID)
	}
	line, err := g.Join(id)
	return g, line, err
}

// Get returns a live game by id.
func (m *Manager) Get(id string) (*Game, bool) {
	m.gamesMutex.RLock()
	defer m.gamesMutex.RUnlock()
	g, ok := m.games[id]
	return g, ok
}

// GameFor returns the live game actorID is part of.
func (m *Manager) GameFor(actorID string) (*Game, bool) {
	m.gamesMutex.RLock()
	defer m.gamesMutex.RUnlock()
	return m.gameForLocked(actorID)
}

func (m *Manager) gameForLocked(actorID string) (*Game, bool) {
	for _, g := range m.games {
		if g.Has(actorID) {
			return g, true
		}
	}
	return nil, false
}

// Games returns every live game.
func (m *Manager) Games() []*Game {
	m.gamesMutex.RLock()
	defer m.gamesMutex.RUnlock()
	out := make([]*Game, 0, len(m.games))
	for _, g := range m.games {
		out = append(out, g)
	}
	return out
}

// StopAll stops every live game, used on shutdown.
func (m *Manager) StopAll(reason string) {
	for _, g := range m.Games() {
		if err := g.Stop(reason); err != nil {
			log.Printf("StopAll: game %s: %v", g.ID, err)
		}
	}
}

func (m *Manager) forget(g *Game) {
	m.gamesMutex.Lock()
	delete(m.games, g.ID)
	m.gamesMutex.Unlock()
}
