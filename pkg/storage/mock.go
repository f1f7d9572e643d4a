package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/novel-engine/pkg/session"
	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

// MockStore is an in-memory Store for tests and local wiring.
type MockStore struct {
	mu          sync.RWMutex
	sessions    map[uuid.UUID]*session.Session
	checkpoints map[string]*state.PlayerState
	stories     map[string][]byte
	pingError   error
}

// Ensure MockStore implements Store interface
var _ Store = (*MockStore)(nil)

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		sessions:    make(map[uuid.UUID]*session.Session),
		checkpoints: make(map[string]*state.PlayerState),
		stories:     make(map[string][]byte),
	}
}

// AddStory registers a raw story document under a filename.
func (m *MockStore) AddStory(filename string, doc []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stories[filename] = doc
}

// SetPingError configures Ping to fail with the given error.
func (m *MockStore) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

func (m *MockStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStore) Close() error {
	return nil
}

func (m *MockStore) SaveSession(ctx context.Context, s *session.Session) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MockStore) LoadSession(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id], nil
}

func (m *MockStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func checkpointKey(sessionID uuid.UUID, act int) string {
	return fmt.Sprintf("%s:%d", sessionID, act)
}

func (m *MockStore) SaveCheckpoint(ctx context.Context, sessionID uuid.UUID, act int, snapshot *state.PlayerState) error {
	if snapshot == nil {
		return errors.New("snapshot cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints[checkpointKey(sessionID, act)] = snapshot.Snapshot()
	return nil
}

func (m *MockStore) LoadCheckpoint(ctx context.Context, sessionID uuid.UUID, act int) (*state.PlayerState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.checkpoints[checkpointKey(sessionID, act)]
	if !ok {
		return nil, nil
	}
	return snap.Snapshot(), nil
}

func (m *MockStore) ListStories(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.stories))
	for name := range m.stories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MockStore) GetStory(ctx context.Context, filename string) (*story.Graph, error) {
	m.mu.RLock()
	doc, ok := m.stories[filename]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("story not found: %s", filename)
	}
	return story.Normalize(doc)
}
