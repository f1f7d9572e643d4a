// Package session defines the serializable playback session: which story a
// player is in, where they are in it, and their stats. The API tier stores
// one of these per player and rehydrates an engine from it on every request.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/novel-engine/pkg/engine"
	"github.com/jwebster45206/novel-engine/pkg/reveal"
)

// Session is one player's playback of one story document.
type Session struct {
	ID        uuid.UUID        `json:"id"`
	StoryFile string           `json:"story_file"`
	Act       int              `json:"act"`
	TextSpeed reveal.Speed     `json:"text_speed"`
	Engine    *engine.Snapshot `json:"engine"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// New returns a session shell for a story file. The engine snapshot is
// attached by the caller once the engine has started.
func New(storyFile string, speed reveal.Speed) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.New(),
		StoryFile: storyFile,
		TextSpeed: speed,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
