package storage

import (
	"strings"
	"sync"
)

// Memory is the always-available storage origin backing the fallback
// transport. Keys are prefixed "profile:<name>:" so profile swaps cannot
// leak into another namespace.
type Memory struct {
	mu      sync.Mutex
	records map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string][]byte)}
}

func scopedKey(profile, key string) string {
	return "profile:" + profile + ":" + key
}

func (m *Memory) Get(profile, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.records[scopedKey(profile, key)]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, true, nil
}

func (m *Memory) Put(profile, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	m.records[scopedKey(profile, key)] = stored
	return nil
}

func (m *Memory) Delete(profile, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, scopedKey(profile, key))
	return nil
}

func (m *Memory) Keys(profile string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := scopedKey(profile, "")
	var keys []string
	for key := range m.records {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, strings.TrimPrefix(key, prefix))
		}
	}
	return keys, nil
}
