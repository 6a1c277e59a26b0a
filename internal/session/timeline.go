package session

import (
	"sync"
	"time"

	"github.com/voxmood/emotion-audio-service/internal/analysis"
)

// TimelineCap bounds the emotion timeline to the most recent entries.
const TimelineCap = 10

// TimelineEntry is one detected emotion at a point in time.
type TimelineEntry struct {
	Timestamp  time.Time        `json:"timestamp"`
	Emotion    analysis.Emotion `json:"emotion"`
	Confidence float64          `json:"confidence"`
}

// Timeline is a bounded most-recent-first sequence of detected emotions.
// When the bound is exceeded the oldest entry is evicted.
type Timeline struct {
	mu      sync.RWMutex
	entries []TimelineEntry
	cap     int
}

// NewTimeline creates a timeline bounded to capacity entries.
func NewTimeline(capacity int) *Timeline {
	if capacity <= 0 {
		capacity = TimelineCap
	}
	return &Timeline{cap: capacity}
}

// Add prepends an entry, evicting the oldest when over capacity.
func (t *Timeline) Add(entry TimelineEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append([]TimelineEntry{entry}, t.entries...)
	if len(t.entries) > t.cap {
		t.entries = t.entries[:t.cap]
	}
}

// Entries returns a most-recent-first snapshot.
func (t *Timeline) Entries() []TimelineEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]TimelineEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the current number of entries.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Clear empties the timeline. Called when a new session starts.
func (t *Timeline) Clear() {
	t.mu.Lock()
	t.entries = nil
	t.mu.Unlock()
}
