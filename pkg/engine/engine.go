// Package engine drives presentation-agnostic story traversal: it walks the
// dialogue of the current scene, evaluates choice conditions against player
// state, applies stat deltas, and moves between scenes until the act's
// terminal scene is reached.
package engine

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jwebster45206/novel-engine/pkg/reveal"
	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

// Phase is the engine's interaction state.
type Phase string

const (
	// PhaseAwaitingAdvance means a dialogue line is visible and more input
	// moves the scene forward.
	PhaseAwaitingAdvance Phase = "awaiting_advance"
	// PhaseShowingChoices means the scene's last line has been read and the
	// player must pick an outgoing choice.
	PhaseShowingChoices Phase = "showing_choices"
	// PhaseEnded means the terminal scene's last line has been read; the act
	// is complete.
	PhaseEnded Phase = "ended"
)

// CheckpointStore is the minimal persistence surface the engine needs at act
// boundaries. Load returns (nil, nil) when no checkpoint exists for the act;
// that is a normal result, not an error. Implementations live in
// internal/storage; this interface keeps the engine ignorant of where
// snapshots are held.
type CheckpointStore interface {
	SaveCheckpoint(ctx context.Context, sessionID uuid.UUID, act int, snapshot *state.PlayerState) error
	LoadCheckpoint(ctx context.Context, sessionID uuid.UUID, act int) (*state.PlayerState, error)
}

// Engine is the scene traversal state machine for one playback session.
//
// The engine is driven by discrete external events from a single goroutine;
// it performs no background work of its own. The only asynchronous progress
// anywhere in a session is the reveal scheduler's timer, which never touches
// engine state. The inFlight guard makes rapid repeated input during a scene
// transition harmless rather than double-applying a delta.
type Engine struct {
	graph       *story.Graph
	st          *state.PlayerState
	sched       *reveal.Scheduler
	checkpoints CheckpointStore
	logger      *slog.Logger

	sessionID uuid.UUID
	seed      *state.PlayerState

	scene           *story.Scene
	lineIndex       int
	phase           Phase
	dialogueLog     []story.DialogueLine
	inFlight        bool
	checkpointSaved bool
}

// New builds an engine over a normalized story graph. The seed snapshot, if
// non-nil, becomes the starting player state when no checkpoint exists for
// the act (the import path for previously exported acts).
func New(graph *story.Graph, sessionID uuid.UUID, checkpoints CheckpointStore, sched *reveal.Scheduler, seed *state.PlayerState, logger *slog.Logger) *Engine {
	if sched == nil {
		sched = reveal.NewScheduler(reveal.SpeedMedium)
	}
	return &Engine{
		graph:       graph,
		st:          state.New(),
		sched:       sched,
		checkpoints: checkpoints,
		logger:      logger,
		sessionID:   sessionID,
		seed:        seed,
	}
}

// Start enters the act. Player state is restored from the act's checkpoint
// when one exists; otherwise it starts from the seed snapshot, or empty.
// State is never inherited from a different act's checkpoint.
func (e *Engine) Start(ctx context.Context) {
	snap, err := e.checkpoints.LoadCheckpoint(ctx, e.sessionID, e.graph.Act)
	switch {
	case err != nil:
		e.logger.Error("failed to load act checkpoint, starting fresh",
			"session_id", e.sessionID, "act", e.graph.Act, "error", err)
		e.st.Replace(e.seed)
	case snap != nil:
		e.st.Replace(snap)
	default:
		e.st.Replace(e.seed)
	}

	e.checkpointSaved = false
	e.dialogueLog = nil
	e.enterScene(ctx, e.graph.First().ID)
}

// Advance moves the dialogue forward. While the current line is still
// revealing, Advance completes the reveal instead of stepping. Once the
// scene's last line has been read, the engine shows choices, or ends the act
// if the scene is terminal. Calls outside PhaseAwaitingAdvance are ignored.
func (e *Engine) Advance(ctx context.Context) {
	if e.inFlight {
		return
	}
	if e.phase != PhaseAwaitingAdvance {
		e.logger.Debug("advance ignored outside dialogue", "phase", e.phase)
		return
	}

	if !e.sched.IsComplete() {
		e.sched.Skip()
		return
	}

	e.dialogueLog = append(e.dialogueLog, e.scene.Dialogue[e.lineIndex])
	if e.lineIndex+1 < len(e.scene.Dialogue) {
		e.lineIndex++
		e.sched.Start(e.scene.Dialogue[e.lineIndex].Text)
		return
	}

	e.endOfDialogue(ctx)
}

// SelectChoice resolves a choice out of the current scene. An unsatisfied
// condition routes to the choice's fail target, with no delta applied, when
// one exists; otherwise the delta is applied and the main target is entered.
// Calls outside PhaseShowingChoices, or with an unknown choice ID, are
// ignored.
func (e *Engine) SelectChoice(ctx context.Context, choiceID string) {
	if e.inFlight {
		return
	}
	if e.phase != PhaseShowingChoices {
		e.logger.Debug("choice ignored outside choice phase", "phase", e.phase, "choice_id", choiceID)
		return
	}

	choice, ok := e.scene.Choice(choiceID)
	if !ok {
		e.logger.Warn("unknown choice ignored", "scene_id", e.scene.ID, "choice_id", choiceID)
		return
	}

	e.inFlight = true
	defer func() { e.inFlight = false }()

	if len(choice.Condition) > 0 && !e.st.Satisfies(choice.Condition) && choice.FailNext != "" {
		e.enterScene(ctx, choice.FailNext)
		return
	}

	if len(choice.Delta) > 0 {
		e.st.Apply(choice.Delta)
	}
	e.enterScene(ctx, choice.Next)
}

// enterScene makes the target scene current, resets the dialogue position,
// and recomputes terminality. Targets are validated at load time, so a miss
// here means a corrupted snapshot; it is logged and ignored.
func (e *Engine) enterScene(ctx context.Context, sceneID string) {
	scene, ok := e.graph.Scene(sceneID)
	if !ok {
		e.logger.Error("transition to unknown scene ignored", "scene_id", sceneID)
		return
	}

	e.scene = scene
	e.lineIndex = 0

	if len(scene.Dialogue) > 0 {
		e.phase = PhaseAwaitingAdvance
		e.sched.Start(scene.Dialogue[0].Text)
		return
	}

	e.sched.Start("")
	e.endOfDialogue(ctx)
}

// endOfDialogue runs when the current scene has no lines left to show.
func (e *Engine) endOfDialogue(ctx context.Context) {
	if e.scene.Terminal() {
		e.finishAct(ctx)
		return
	}
	e.phase = PhaseShowingChoices
}

// finishAct marks the act complete and writes its checkpoint exactly once.
func (e *Engine) finishAct(ctx context.Context) {
	e.phase = PhaseEnded
	if e.checkpointSaved {
		return
	}
	e.checkpointSaved = true

	if err := e.checkpoints.SaveCheckpoint(ctx, e.sessionID, e.graph.Act, e.st.Snapshot()); err != nil {
		e.logger.Error("failed to save act checkpoint",
			"session_id", e.sessionID, "act", e.graph.Act, "error", err)
	}
}

// ResetState wipes the player state entirely, on explicit player request.
// The story position is untouched.
func (e *Engine) ResetState() {
	e.st.Reset()
}

// Phase returns the engine's current interaction state.
func (e *Engine) Phase() Phase {
	return e.phase
}

// State exposes the live player state for read access.
func (e *Engine) State() *state.PlayerState {
	return e.st
}

// Scheduler exposes the reveal scheduler so the presentation layer can
// adjust the rate tier.
func (e *Engine) Scheduler() *reveal.Scheduler {
	return e.sched
}
