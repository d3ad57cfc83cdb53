package session

import "sync"

// Manager resolves an identity to its Store, loading persisted sessions on
// first use. All anonymous callers share one memory-only store that lives
// for the process lifetime and is discarded on restart.
type Manager struct {
	mu     sync.Mutex
	stores map[string]*Store
	anon   *Store
}

func NewManager() *Manager {
	return &Manager{stores: map[string]*Store{}, anon: NewStore("")}
}

// For returns the store owning sessions for identity. The first call for a
// signed-in identity loads its persisted session list.
func (m *Manager) For(identity string) (*Store, error) {
	if identity == "" {
		return m.anon, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.stores[identity]; ok {
		return st, nil
	}
	st := NewStore(identity)
	if err := st.Load(); err != nil {
		return nil, err
	}
	m.stores[identity] = st
	return st, nil
}

// Evict drops the cached store for identity, e.g. on sign-out. The persisted
// copy is untouched; the next For call reloads it.
func (m *Manager) Evict(identity string) {
	if identity == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, identity)
}
