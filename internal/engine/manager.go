package engine

import (
	"context"
	"sync"

	"github.com/contagio-game/server/internal/events"
	"github.com/contagio-game/server/internal/platform/logger"
)

// Manager owns the live match instances. Each match is constructed at
// creation time and dropped when its roster empties; there is no global
// singleton match.
type Manager struct {
	mu      sync.Mutex
	matches map[string]*Match

	cfg       Settings
	sink      Sink
	logger    *logger.Logger
	persister events.EventPersister
	arch      Archiver
}

// NewManager wires the shared dependencies every match receives.
func NewManager(cfg Settings, sink Sink, log *logger.Logger, persister events.EventPersister, arch Archiver) *Manager {
	return &Manager{
		matches:   make(map[string]*Match),
		cfg:       cfg,
		sink:      sink,
		logger:    log,
		persister: persister,
		arch:      arch,
	}
}

// Create builds a match with its own event log and starts its command loop.
func (mg *Manager) Create(ctx context.Context, id string) *Match {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	if existing, ok := mg.matches[id]; ok {
		return existing
	}

	m := NewMatch(id, mg.cfg, mg.sink, events.NewEventLog(mg.persister), mg.logger, mg.arch, mg.remove)
	mg.matches[id] = m
	go m.Run(ctx)
	mg.logger.Info("Match created: " + id)
	return m
}

// Get returns a live match by ID.
func (mg *Manager) Get(id string) (*Match, bool) {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	m, ok := mg.matches[id]
	return m, ok
}

// Shutdown stops every live match.
func (mg *Manager) Shutdown() {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	for _, m := range mg.matches {
		m.Stop()
	}
}

func (mg *Manager) remove(id string) {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	delete(mg.matches, id)
	mg.logger.Info("Match removed: " + id)
}
