// Package storage defines the persistence surface for playback sessions,
// act checkpoints, and story documents. Implementations live in
// internal/storage (Redis for a server deployment, SQLite for local play);
// this package only fixes the contract.
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwebster45206/novel-engine/pkg/session"
	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

// Store is the unified interface for all persistence operations.
//
// Load operations return (nil, nil) for absent records: a missing checkpoint
// is the normal state of an act that has never been completed, and a missing
// session simply means an expired or unknown ID.
type Store interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Playback sessions
	SaveSession(ctx context.Context, s *session.Session) error
	LoadSession(ctx context.Context, id uuid.UUID) (*session.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// Act checkpoints, keyed (session, act). Save overwrites; Load never
	// falls back to another act's checkpoint.
	SaveCheckpoint(ctx context.Context, sessionID uuid.UUID, act int, snapshot *state.PlayerState) error
	LoadCheckpoint(ctx context.Context, sessionID uuid.UUID, act int) (*state.PlayerState, error)

	// Story documents (filesystem-backed)
	ListStories(ctx context.Context) ([]string, error)
	GetStory(ctx context.Context, filename string) (*story.Graph, error)
}
