package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/acaldeo/TallerMendoza/internal/clock"
)

func TestFixed_AdvanceMovesForward(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.NewFixed(start)
	assert.Equal(t, start, c.Now())

	next := c.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), next)
	assert.Equal(t, start.Add(time.Hour), c.Now())
}

func TestSystem_ReturnsUTCTruncatedToSeconds(t *testing.T) {
	now := clock.System{}.Now()
	assert.Equal(t, now, now.Truncate(time.Second))
	assert.Equal(t, time.UTC, now.Location())
}
