package reveal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpeed(t *testing.T) {
	assert.Equal(t, SpeedSlow, ParseSpeed("slow"))
	assert.Equal(t, SpeedFast, ParseSpeed(" FAST "))
	assert.Equal(t, SpeedMedium, ParseSpeed("medium"))
	assert.Equal(t, SpeedMedium, ParseSpeed("warp"), "unknown tiers default to medium")
}

func TestFastTierRevealsImmediately(t *testing.T) {
	s := NewScheduler(SpeedFast)
	s.Start("Hello there.")

	assert.True(t, s.IsComplete())
	assert.Equal(t, "Hello there.", s.Text())
}

func TestEmptyTextIsImmediatelyComplete(t *testing.T) {
	s := NewScheduler(SpeedSlow)
	s.Start("")
	assert.True(t, s.IsComplete())
	assert.Equal(t, "", s.Text())
}

func TestIncrementalReveal(t *testing.T) {
	s := NewScheduler(SpeedMedium)
	s.Start("abcde")

	assert.False(t, s.IsComplete(), "medium tier must not complete instantly")

	require.Eventually(t, s.IsComplete, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "abcde", s.Text())
}

func TestRevealGrowsAsPrefix(t *testing.T) {
	s := NewScheduler(SpeedMedium)
	full := "slowly now"
	s.Start(full)

	require.Eventually(t, func() bool {
		return len(s.Text()) > 0
	}, 2*time.Second, 5*time.Millisecond)

	partial := s.Text()
	assert.True(t, len(partial) <= len(full))
	assert.Equal(t, full[:len(partial)], partial, "revealed text is always a prefix of the target")
	assert.Equal(t, full, s.Full())
}

func TestSkipCompletesAndCancelsPendingSteps(t *testing.T) {
	s := NewScheduler(SpeedSlow)
	text := "a rather long line of dialogue that would take seconds to reveal"
	s.Start(text)

	s.Skip()
	assert.True(t, s.IsComplete())
	assert.Equal(t, text, s.Text())

	// A stale timer step must not run after Skip.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, text, s.Text())
	assert.True(t, s.IsComplete())
}

func TestRestartCancelsPriorReveal(t *testing.T) {
	s := NewScheduler(SpeedSlow)
	s.Start("the first line, soon abandoned")
	s.Start("second")

	// Give stale steps from the first reveal a chance to misfire.
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, "second", s.Full())
	partial := s.Text()
	assert.Equal(t, "second"[:len(partial)], partial, "no character of the first line may leak in")

	require.Eventually(t, s.IsComplete, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "second", s.Text())
}

func TestSpeedChangeTakesEffectOnNextStart(t *testing.T) {
	s := NewScheduler(SpeedSlow)
	s.SetSpeed(SpeedFast)
	assert.Equal(t, SpeedFast, s.Speed())

	s.Start("instant now")
	assert.True(t, s.IsComplete())
}

func TestSchedulerStartsComplete(t *testing.T) {
	s := NewScheduler(SpeedMedium)
	assert.True(t, s.IsComplete(), "no reveal in progress means nothing left to show")
	assert.Equal(t, "", s.Text())
}
