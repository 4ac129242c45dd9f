package credentials

import (
	"context"
	"sort"
	"sync"
)

type recordKey struct {
	exchange string
	label    string
}

// MemoryBackend keeps credentials in process memory
type MemoryBackend struct {
	mu      sync.RWMutex
	salt    []byte
	records map[recordKey]Record
}

// NewMemoryBackend creates an empty MemoryBackend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[recordKey]Record)}
}

func (m *MemoryBackend) Salt(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.salt == nil {
		salt, err := NewSalt()
		if err != nil {
			return nil, err
		}
		m.salt = salt
	}
	return m.salt, nil
}

func (m *MemoryBackend) Save(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey{rec.Exchange, rec.Label}
	if existing, ok := m.records[key]; ok {
		rec.CreatedAt = existing.CreatedAt
	}
	m.records[key] = rec
	return nil
}

func (m *MemoryBackend) Load(ctx context.Context, exchangeName, label string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[recordKey{exchangeName, label}]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryBackend) List(ctx context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Exchange != out[j].Exchange {
			return out[i].Exchange < out[j].Exchange
		}
		return out[i].Label < out[j].Label
	})
	return out, nil
}

func (m *MemoryBackend) Delete(ctx context.Context, exchangeName, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey{exchangeName, label}
	if _, ok := m.records[key]; !ok {
		return ErrNotFound
	}
	delete(m.records, key)
	return nil
}

func (m *MemoryBackend) Sample(ctx context.Context) (Record, bool, error) {
	list, _ := m.List(ctx)
	if len(list) == 0 {
		return Record{}, false, nil
	}
	return list[0], true, nil
}
