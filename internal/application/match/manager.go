package match

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/execution-hub/matchflow/internal/application/orchestrator"
)

// Manager tracks live instances by id.
type Manager struct {
	defaults Options
	logger   zerolog.Logger

	mu        sync.RWMutex
	instances map[uuid.UUID]*Instance
}

// NewManager creates a manager whose instances start from defaults.
func NewManager(defaults Options, logger zerolog.Logger) *Manager {
	defaults.Logger = logger
	return &Manager{
		defaults:  defaults,
		logger:    logger.With().Str("component", "match_manager").Logger(),
		instances: make(map[uuid.UUID]*Instance),
	}
}

// Create builds and registers an instance. Zero fields of opts take the
// manager defaults.
func (m *Manager) Create(opts Options) *Instance {
	if opts.Orchestrator == (orchestrator.Config{}) {
		opts.Orchestrator = m.defaults.Orchestrator
	}
	if opts.Registry == nil {
		opts.Registry = m.defaults.Registry
	}
	if opts.Scheduler == nil {
		opts.Scheduler = m.defaults.Scheduler
	}
	if opts.Presenter == nil {
		opts.Presenter = m.defaults.Presenter
	}
	if opts.RevealDelay == 0 {
		opts.RevealDelay = m.defaults.RevealDelay
	}
	opts.Logger = m.defaults.Logger

	inst := Create(opts)
	m.mu.Lock()
	m.instances[inst.ID()] = inst
	m.mu.Unlock()
	m.logger.Debug().Str("match_id", inst.ID().String()).Msg("match created")
	return inst
}

// Get returns a live instance.
func (m *Manager) Get(id uuid.UUID) (*Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[id]
	if !ok {
		return nil, ErrNotFound
	}
	return inst, nil
}

// Dispose disposes and forgets an instance.
func (m *Manager) Dispose(id uuid.UUID) error {
	m.mu.Lock()
	inst, ok := m.instances[id]
	delete(m.instances, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	inst.Dispose()
	return nil
}

// DisposeAll disposes every live instance.
func (m *Manager) DisposeAll() {
	m.mu.Lock()
	all := m.instances
	m.instances = make(map[uuid.UUID]*Instance)
	m.mu.Unlock()
	for _, inst := range all {
		inst.Dispose()
	}
}

// IDs returns live instance ids in lexical order.
func (m *Manager) IDs() []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(m.instances))
	for id := range m.instances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a].String() < ids[b].String() })
	return ids
}

// Len returns the number of live instances.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.instances)
}
