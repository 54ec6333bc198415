package service

import (
	"sync"
	"time"
)

type cityEntry struct {
	cities  []string
	touched time.Time
}

// CityMemory keeps the last resolved city list per session.
type CityMemory struct {
	mu      sync.RWMutex
	entries map[string]*cityEntry
	now     func() time.Time
}

// NewCityMemory creates an empty session city memory
func NewCityMemory() *CityMemory {
	return &CityMemory{
		entries: make(map[string]*cityEntry),
		now:     time.Now,
	}
}

// Get returns a copy of the session's last cities.
func (m *CityMemory) Get(sessionID string) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[sessionID]
	if !ok || len(entry.cities) == 0 {
		return nil, false
	}
	entry.touched = m.now()
	return append([]string(nil), entry.cities...), true
}

// Set overwrites the session's cities. Empty lists are ignored.
func (m *CityMemory) Set(sessionID string, cities []string) {
	if len(cities) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[sessionID] = &cityEntry{
		cities:  append([]string(nil), cities...),
		touched: m.now(),
	}
}

// Forget drops a session, used when its history is cleared.
func (m *CityMemory) Forget(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionID)
}

// Sweep removes sessions idle for longer than ttl and returns how many went.
func (m *CityMemory) Sweep(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, entry := range m.entries {
		if entry.touched.Before(cutoff) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked sessions.
func (m *CityMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
