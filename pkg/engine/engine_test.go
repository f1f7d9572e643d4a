package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/novel-engine/pkg/reveal"
	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

// memCheckpoints is an in-memory CheckpointStore recording save calls.
type memCheckpoints struct {
	snaps map[string]*state.PlayerState
	saves int
}

func newMemCheckpoints() *memCheckpoints {
	return &memCheckpoints{snaps: make(map[string]*state.PlayerState)}
}

func ckKey(sessionID uuid.UUID, act int) string {
	return fmt.Sprintf("%s:%d", sessionID, act)
}

func (m *memCheckpoints) SaveCheckpoint(_ context.Context, sessionID uuid.UUID, act int, snap *state.PlayerState) error {
	m.saves++
	m.snaps[ckKey(sessionID, act)] = snap.Snapshot()
	return nil
}

func (m *memCheckpoints) LoadCheckpoint(_ context.Context, sessionID uuid.UUID, act int) (*state.PlayerState, error) {
	snap, ok := m.snaps[ckKey(sessionID, act)]
	if !ok {
		return nil, nil
	}
	return snap.Snapshot(), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func mustGraph(t *testing.T, doc string) *story.Graph {
	t.Helper()
	g, err := story.Normalize([]byte(doc))
	require.NoError(t, err)
	return g
}

// branchingDoc is the condition/failNext scenario: scene A has one line and
// two choices, "go" gated on key >= 3 with a fail target, "stay" ungated.
const branchingDoc = `{"scenes": [
	{"id": "a", "setting": "Crossroads",
		"dialogue": [{"speaker": "Guide", "text": "Choose."}],
		"choices": [
			{"id": "go", "label": "Go", "condition": {"key": 3}, "delta": {"key": 1}, "next": "b", "failNext": "c"},
			{"id": "stay", "label": "Stay", "next": "d"}
		]},
	{"id": "b", "setting": "Beyond", "dialogue": [], "choices": null},
	{"id": "c", "setting": "Turned back", "dialogue": [], "choices": null},
	{"id": "d", "setting": "Home", "dialogue": [], "choices": null}
]}`

const twoSceneDoc = `{"scenes": [
	{"id": "start", "setting": "The square",
		"dialogue": [
			{"speaker": "Ana", "text": "Morning."},
			{"speaker": "Ben", "text": "You're early."}
		],
		"choices": [
			{"id": "greet", "label": "Wave back", "delta": {"ana": 1}, "next": "end"}
		]},
	{"id": "end", "setting": "The square, later",
		"dialogue": [{"speaker": "Ana", "text": "See you tomorrow."}],
		"choices": null}
]}`

func newTestEngine(t *testing.T, doc string, seed *state.PlayerState) (*Engine, *memCheckpoints, uuid.UUID) {
	t.Helper()
	graph := mustGraph(t, doc)
	cp := newMemCheckpoints()
	id := uuid.New()
	e := New(graph, id, cp, reveal.NewScheduler(reveal.SpeedFast), seed, testLogger())
	e.Start(context.Background())
	return e, cp, id
}

func TestStart_InitialPhase(t *testing.T) {
	e, _, _ := newTestEngine(t, twoSceneDoc, nil)
	assert.Equal(t, PhaseAwaitingAdvance, e.Phase())

	v := e.View()
	assert.Equal(t, "start", v.SceneID)
	assert.Equal(t, "Ana", v.Speaker)
	assert.Equal(t, "Morning.", v.Text, "fast tier reveals the whole line immediately")
	assert.True(t, v.RevealComplete)
	assert.Empty(t, v.Choices)
}

func TestAdvance_WalksDialogueThenShowsChoices(t *testing.T) {
	e, _, _ := newTestEngine(t, twoSceneDoc, nil)
	ctx := context.Background()

	e.Advance(ctx)
	v := e.View()
	assert.Equal(t, PhaseAwaitingAdvance, v.Phase)
	assert.Equal(t, "Ben", v.Speaker)
	require.Len(t, v.Log, 1, "the line just left joins the dialogue log")
	assert.Equal(t, "Morning.", v.Log[0].Text)

	e.Advance(ctx)
	v = e.View()
	assert.Equal(t, PhaseShowingChoices, v.Phase)
	require.Len(t, v.Choices, 1)
	assert.Equal(t, "greet", v.Choices[0].ID)
	assert.True(t, v.Choices[0].Satisfied, "unconditional choices are always satisfied")
	assert.Len(t, v.Log, 2)
}

func TestAdvance_SkipsRevealFirst(t *testing.T) {
	graph := mustGraph(t, twoSceneDoc)
	cp := newMemCheckpoints()
	e := New(graph, uuid.New(), cp, reveal.NewScheduler(reveal.SpeedSlow), nil, testLogger())
	ctx := context.Background()
	e.Start(ctx)

	require.False(t, e.Scheduler().IsComplete(), "slow tier should still be revealing")

	// First advance completes the reveal and stays on the same line.
	e.Advance(ctx)
	v := e.View()
	assert.Equal(t, "Morning.", v.Text)
	assert.True(t, v.RevealComplete)
	assert.Equal(t, "Ana", v.Speaker)
	assert.Empty(t, v.Log)

	// With the reveal complete, advance moves to the next line.
	e.Advance(ctx)
	assert.Equal(t, "Ben", e.View().Speaker)
}

func TestSkipStaysSkippedAcrossTicks(t *testing.T) {
	graph := mustGraph(t, twoSceneDoc)
	e := New(graph, uuid.New(), newMemCheckpoints(), reveal.NewScheduler(reveal.SpeedSlow), nil, testLogger())
	ctx := context.Background()
	e.Start(ctx)

	e.Advance(ctx) // skip
	time.Sleep(150 * time.Millisecond)
	v := e.View()
	assert.True(t, v.RevealComplete)
	assert.Equal(t, "Morning.", v.Text, "no stale reveal step may land after a skip")
}

func TestSelectChoice_UnsatisfiedConditionTakesFailTarget(t *testing.T) {
	seed := &state.PlayerState{Skills: map[string]int{"key": 1}}
	e, _, _ := newTestEngine(t, branchingDoc, seed)
	ctx := context.Background()

	e.Advance(ctx)
	require.Equal(t, PhaseShowingChoices, e.Phase())

	v := e.View()
	require.Len(t, v.Choices, 2)
	assert.False(t, v.Choices[0].Satisfied)
	assert.True(t, v.Choices[1].Satisfied)

	e.SelectChoice(ctx, "go")
	v = e.View()
	assert.Equal(t, "c", v.SceneID, "fail target, not the main target")
	assert.Equal(t, 1, e.State().Get(state.CategorySkills, "key"), "no delta on the fail path")
}

func TestSelectChoice_SatisfiedConditionAppliesDelta(t *testing.T) {
	seed := &state.PlayerState{Skills: map[string]int{"key": 3}}
	e, _, _ := newTestEngine(t, branchingDoc, seed)
	ctx := context.Background()

	e.Advance(ctx)
	e.SelectChoice(ctx, "go")

	v := e.View()
	assert.Equal(t, "b", v.SceneID)
	assert.Equal(t, 4, e.State().Get(state.CategorySkills, "key"))
}

func TestSelectChoice_InvalidCallsIgnored(t *testing.T) {
	e, _, _ := newTestEngine(t, branchingDoc, nil)
	ctx := context.Background()

	// Still in dialogue: selection must be a no-op.
	e.SelectChoice(ctx, "stay")
	assert.Equal(t, PhaseAwaitingAdvance, e.Phase())
	assert.Equal(t, "a", e.View().SceneID)

	e.Advance(ctx)
	require.Equal(t, PhaseShowingChoices, e.Phase())

	// Unknown choice ID: also a no-op.
	e.SelectChoice(ctx, "teleport")
	assert.Equal(t, PhaseShowingChoices, e.Phase())
	assert.Equal(t, "a", e.View().SceneID)

	// A real choice still works afterwards.
	e.SelectChoice(ctx, "stay")
	assert.Equal(t, "d", e.View().SceneID)
}

func TestAdvance_IgnoredOutsideDialogue(t *testing.T) {
	e, _, _ := newTestEngine(t, branchingDoc, nil)
	ctx := context.Background()

	e.Advance(ctx)
	require.Equal(t, PhaseShowingChoices, e.Phase())

	e.Advance(ctx)
	assert.Equal(t, PhaseShowingChoices, e.Phase(), "advance during choices changes nothing")
}

func TestTerminalScene_CheckpointSavedExactlyOnce(t *testing.T) {
	e, cp, id := newTestEngine(t, twoSceneDoc, nil)
	ctx := context.Background()

	e.Advance(ctx)
	e.Advance(ctx)
	e.SelectChoice(ctx, "greet")
	require.Equal(t, PhaseAwaitingAdvance, e.Phase())
	assert.Equal(t, 0, cp.saves, "no checkpoint before the terminal line is read")

	e.Advance(ctx)
	assert.Equal(t, PhaseEnded, e.Phase())
	assert.Equal(t, 1, cp.saves)

	snap, err := cp.LoadCheckpoint(ctx, id, 1)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 1, snap.Relationships["ana"])

	// Further input does not resave.
	e.Advance(ctx)
	e.SelectChoice(ctx, "greet")
	assert.Equal(t, 1, cp.saves)
}

func TestAbandonedAct_NoCheckpoint(t *testing.T) {
	e, cp, id := newTestEngine(t, twoSceneDoc, nil)
	ctx := context.Background()

	e.Advance(ctx)
	e.Advance(ctx)
	e.SelectChoice(ctx, "greet")
	// Abandon before the terminal scene's last line.
	assert.Equal(t, 0, cp.saves)

	// Re-entering the act starts empty.
	graph := mustGraph(t, twoSceneDoc)
	e2 := New(graph, id, cp, reveal.NewScheduler(reveal.SpeedFast), nil, testLogger())
	e2.Start(ctx)
	assert.Equal(t, 0, e2.State().Get(state.CategoryRelationships, "ana"))
}

func TestReplayingCompletedAct_RestoresCheckpoint(t *testing.T) {
	e, cp, id := newTestEngine(t, twoSceneDoc, nil)
	ctx := context.Background()

	e.Advance(ctx)
	e.Advance(ctx)
	e.SelectChoice(ctx, "greet")
	e.Advance(ctx)
	require.Equal(t, PhaseEnded, e.Phase())

	graph := mustGraph(t, twoSceneDoc)
	e2 := New(graph, id, cp, reveal.NewScheduler(reveal.SpeedFast), nil, testLogger())
	e2.Start(ctx)
	assert.Equal(t, 1, e2.State().Get(state.CategoryRelationships, "ana"),
		"re-entering a completed act restores exactly its checkpoint")
}

func TestStart_NeverFallsBackToAnotherActsCheckpoint(t *testing.T) {
	ctx := context.Background()
	cp := newMemCheckpoints()
	id := uuid.New()

	// Complete act 1, leaving a checkpoint behind.
	act1 := mustGraph(t, twoSceneDoc)
	e1 := New(act1, id, cp, reveal.NewScheduler(reveal.SpeedFast), nil, testLogger())
	e1.Start(ctx)
	e1.Advance(ctx)
	e1.Advance(ctx)
	e1.SelectChoice(ctx, "greet")
	e1.Advance(ctx)
	require.Equal(t, 1, cp.saves)

	// Act 2 has no checkpoint of its own and must start empty, even though
	// act 1 was just played.
	act2 := mustGraph(t, `{"act2": {
		"scene1": {"setting": "Elsewhere", "dialogue": [{"speaker": "Ana", "text": "A new day."}], "choices": null}
	}}`)
	require.Equal(t, 2, act2.Act)

	e2 := New(act2, id, cp, reveal.NewScheduler(reveal.SpeedFast), nil, testLogger())
	e2.Start(ctx)
	assert.Equal(t, 0, e2.State().Get(state.CategoryRelationships, "ana"))
}

func TestSeedStateUsedWhenNoCheckpoint(t *testing.T) {
	seed := &state.PlayerState{Inventory: map[string]int{"locket": 1}}
	e, _, _ := newTestEngine(t, twoSceneDoc, seed)
	assert.Equal(t, 1, e.State().Get(state.CategoryInventory, "locket"))
}

func TestStringNullChoices_EndsActWithoutChoices(t *testing.T) {
	doc := `{
		"scene1": {
			"setting": "The end of the road",
			"dialogue": [{"speaker": "Narrator", "text": "And that was that."}],
			"choices": "null"
		}
	}`
	e, cp, _ := newTestEngine(t, doc, nil)
	ctx := context.Background()

	require.Equal(t, PhaseAwaitingAdvance, e.Phase())
	e.Advance(ctx)

	assert.Equal(t, PhaseEnded, e.Phase(), "string-null choices mean terminal, never ShowingChoices")
	assert.Equal(t, 1, cp.saves)
}

func TestZeroDialogueScene_SkipsStraightToChoices(t *testing.T) {
	doc := `{"scenes": [
		{"id": "a", "setting": "Silent hall", "dialogue": [],
			"choices": [{"id": "leave", "label": "Leave", "next": "b"}]},
		{"id": "b", "setting": "Outside", "dialogue": [], "choices": null}
	]}`
	e, cp, _ := newTestEngine(t, doc, nil)
	ctx := context.Background()

	assert.Equal(t, PhaseShowingChoices, e.Phase())

	e.SelectChoice(ctx, "leave")
	assert.Equal(t, PhaseEnded, e.Phase(), "terminal scene with no dialogue ends immediately on entry")
	assert.Equal(t, 1, cp.saves)
}

func TestResetState_IsTotal(t *testing.T) {
	seed := &state.PlayerState{
		Relationships: map[string]int{"ana": 2},
		Inventory:     map[string]int{"rope": 1},
	}
	e, _, _ := newTestEngine(t, twoSceneDoc, seed)

	e.ResetState()
	assert.Equal(t, 0, e.State().Get(state.CategoryRelationships, "ana"))
	assert.Equal(t, 0, e.State().Get(state.CategoryInventory, "rope"))
}

func TestSnapshotResume_RoundTrip(t *testing.T) {
	e, cp, id := newTestEngine(t, twoSceneDoc, nil)
	ctx := context.Background()

	e.Advance(ctx)
	snap := e.Snapshot()
	require.Equal(t, "start", snap.SceneID)
	require.Equal(t, 1, snap.LineIndex)

	graph := mustGraph(t, twoSceneDoc)
	resumed, err := Resume(graph, snap, id, cp, reveal.NewScheduler(reveal.SpeedFast), testLogger())
	require.NoError(t, err)

	v := resumed.View()
	assert.Equal(t, PhaseAwaitingAdvance, v.Phase)
	assert.Equal(t, "Ben", v.Speaker)
	require.Len(t, v.Log, 1)

	// The resumed engine plays out to the same ending.
	resumed.Advance(ctx)
	resumed.SelectChoice(ctx, "greet")
	resumed.Advance(ctx)
	assert.Equal(t, PhaseEnded, resumed.Phase())
}

func TestResume_RejectsCorruptSnapshots(t *testing.T) {
	graph := mustGraph(t, twoSceneDoc)
	cp := newMemCheckpoints()

	_, err := Resume(graph, nil, uuid.New(), cp, nil, testLogger())
	assert.Error(t, err)

	_, err = Resume(graph, &Snapshot{SceneID: "gone", State: state.New()}, uuid.New(), cp, nil, testLogger())
	assert.Error(t, err)

	_, err = Resume(graph, &Snapshot{SceneID: "start", LineIndex: 99, State: state.New()}, uuid.New(), cp, nil, testLogger())
	assert.Error(t, err)
}
