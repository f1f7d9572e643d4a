package engine

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jwebster45206/novel-engine/pkg/reveal"
	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

// Snapshot is the serializable part of an engine, small enough to store with
// a session and rehydrate between stateless requests. Reveal progress is not
// captured; a resumed engine re-reveals its current line.
type Snapshot struct {
	SceneID         string               `json:"scene_id"`
	LineIndex       int                  `json:"line_index"`
	Phase           Phase                `json:"phase"`
	Log             []story.DialogueLine `json:"log,omitempty"`
	State           *state.PlayerState   `json:"state"`
	CheckpointSaved bool                 `json:"checkpoint_saved"`
}

// Snapshot captures the engine's position and state.
func (e *Engine) Snapshot() *Snapshot {
	snap := &Snapshot{
		LineIndex:       e.lineIndex,
		Phase:           e.phase,
		State:           e.st.Snapshot(),
		CheckpointSaved: e.checkpointSaved,
	}
	if e.scene != nil {
		snap.SceneID = e.scene.ID
	}
	if len(e.dialogueLog) > 0 {
		snap.Log = make([]story.DialogueLine, len(e.dialogueLog))
		copy(snap.Log, e.dialogueLog)
	}
	return snap
}

// Resume rebuilds an engine from a stored snapshot against the same story
// graph. The snapshot must reference a scene and line that exist in the
// graph; anything else means the stored session no longer matches the story
// document.
func Resume(graph *story.Graph, snap *Snapshot, sessionID uuid.UUID, checkpoints CheckpointStore, sched *reveal.Scheduler, logger *slog.Logger) (*Engine, error) {
	if snap == nil {
		return nil, fmt.Errorf("nil engine snapshot")
	}

	e := New(graph, sessionID, checkpoints, sched, nil, logger)

	scene, ok := graph.Scene(snap.SceneID)
	if !ok {
		return nil, fmt.Errorf("snapshot references unknown scene %q", snap.SceneID)
	}
	if len(scene.Dialogue) > 0 && (snap.LineIndex < 0 || snap.LineIndex >= len(scene.Dialogue)) {
		return nil, fmt.Errorf("snapshot line index %d out of range for scene %q", snap.LineIndex, snap.SceneID)
	}

	e.scene = scene
	e.lineIndex = snap.LineIndex
	e.phase = snap.Phase
	e.checkpointSaved = snap.CheckpointSaved
	e.st.Replace(snap.State)
	if len(snap.Log) > 0 {
		e.dialogueLog = make([]story.DialogueLine, len(snap.Log))
		copy(e.dialogueLog, snap.Log)
	}

	switch snap.Phase {
	case PhaseAwaitingAdvance:
		if len(scene.Dialogue) > 0 {
			e.sched.Start(scene.Dialogue[e.lineIndex].Text)
		}
	default:
		// Choices or ended: the last line is fully shown.
		if len(scene.Dialogue) > 0 {
			e.lineIndex = len(scene.Dialogue) - 1
			e.sched.Start(scene.Dialogue[e.lineIndex].Text)
			e.sched.Skip()
		}
	}
	return e, nil
}
