package embedding

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func steppingClock(step time.Duration) func() time.Time {
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestProgressTracker_ReportsAtInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "books", 100, 50)
	tracker.now = steppingClock(time.Second)

	tracker.Start()
	tracker.Increment(25)
	assert.Empty(t, buf.String())

	tracker.Increment(25)
	assert.Contains(t, buf.String(), "Embedding books: 50/100 (50%)")
	assert.Contains(t, buf.String(), " eta ")

	tracker.Increment(50)
	assert.Contains(t, buf.String(), "100/100 (100%)")
	assert.Positive(t, tracker.Elapsed())
}

func TestProgressTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "texts", 100, 10)

	tracker.Start()
	tracker.Increment(75)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "100/100", "finish should set to total")
	assert.True(t, output[len(output)-1] == '\n', "finish should end the line")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "texts", 10, 1)

	tracker.Increment(5)
	tracker.Finish()

	assert.Empty(t, buf.String())
	assert.Zero(t, tracker.Elapsed())
}

func TestProgressTracker_IncrementBeyondTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "texts", 100, 10)

	tracker.Start()
	tracker.Increment(150)

	assert.Contains(t, buf.String(), "100/100")
	assert.NotContains(t, buf.String(), "150/100")
}
