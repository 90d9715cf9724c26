package watchdog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flowstate-labs/predengine/clock"
)

func TestStatusTransitions(t *testing.T) {
	clk := clock.NewFake(0)
	w := New(clk, 1000, 5000)

	assert.Equal(t, Healthy, w.Status())

	clk.Advance(1500 * time.Millisecond)
	assert.Equal(t, Degraded, w.Status())

	clk.Advance(4000 * time.Millisecond)
	assert.Equal(t, Critical, w.Status())
	assert.True(t, w.ShouldBlockEntries())
}

func TestTouchResetsTimer(t *testing.T) {
	clk := clock.NewFake(0)
	w := New(clk, 1000, 5000)

	clk.Advance(2000 * time.Millisecond)
	assert.Equal(t, Degraded, w.Status())

	w.Touch()
	assert.Equal(t, Healthy, w.Status())
	assert.False(t, w.ShouldBlockEntries())
}

func TestSilenceMsToleratesBackwardClock(t *testing.T) {
	clk := clock.NewFake(10_000)
	w := New(clk, 1000, 5000)

	clk.Set(0) // clock moves backward
	assert.LessOrEqual(t, w.SilenceMs(), int64(0))
	assert.Equal(t, Healthy, w.Status())
}
