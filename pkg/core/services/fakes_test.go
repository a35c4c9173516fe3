package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
	"github.com/wadjakorntonsri/linkora/pkg/ports"
)

var (
	_ ports.ProfileStore = (*ProfileStore)(nil)
	_ ports.AuthService  = (*AuthService)(nil)
)

type tickingClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newTickingClock() *tickingClock {
	return &tickingClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), step: time.Second}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

func (c *tickingClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// memorySnapshots stores encoded snapshots so loads go through the codec
type memorySnapshots struct {
	mu      sync.Mutex
	data    map[string][]byte
	refs    map[string]ports.ProfileRef
	saveErr error
	saves   int
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{data: map[string][]byte{}, refs: map[string]ports.ProfileRef{}}
}

func (m *memorySnapshots) LoadSnapshot(_ context.Context, key string) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return domain.DecodeSnapshot(raw)
}

func (m *memorySnapshots) SaveSnapshot(_ context.Context, key string, snap *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	raw, err := snap.Encode()
	if err != nil {
		return err
	}
	m.data[key] = raw
	for id, ref := range m.refs {
		if ref.Key == key {
			delete(m.refs, id)
		}
	}
	for _, ref := range ports.IndexEntries(key, snap) {
		m.refs[ref.ProfileID] = ref
	}
	return nil
}

func (m *memorySnapshots) FindProfileRef(_ context.Context, username string) (*ports.ProfileRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ref := range m.refs {
		if ref.Username != "" && ref.Username == username {
			r := ref
			return &r, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (m *memorySnapshots) FindProfileRefByID(_ context.Context, id string) (*ports.ProfileRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ref, ok := m.refs[id]; ok {
		return &ref, nil
	}
	return nil, ports.ErrNotFound
}

func (m *memorySnapshots) Close() error { return nil }

type memoryUsers struct {
	mu      sync.Mutex
	byID    map[string]ports.UserRecord
	revoked map[string]time.Time
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[string]ports.UserRecord{}, revoked: map[string]time.Time{}}
}

func (m *memoryUsers) CreateUser(_ context.Context, rec *ports.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == rec.Email {
			return ports.ErrConflict
		}
	}
	m.byID[rec.ID] = *rec
	return nil
}

func (m *memoryUsers) GetUserByID(_ context.Context, id string) (*ports.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &rec, nil
}

func (m *memoryUsers) GetUserByEmail(_ context.Context, email string) (*ports.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.byID {
		if rec.Email == email {
			r := rec
			return &r, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (m *memoryUsers) UpdateUser(_ context.Context, rec *ports.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[rec.ID]; !ok {
		return ports.ErrNotFound
	}
	m.byID[rec.ID] = *rec
	return nil
}

func (m *memoryUsers) RevokeSession(_ context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = expiresAt
	return nil
}

func (m *memoryUsers) IsSessionRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}
