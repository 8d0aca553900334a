package client

import (
	"sort"
	"sync"
	"time"

	"classifier-api/internal/shared"
)

// HistoryEntry is one successful prediction made in this session.
type HistoryEntry struct {
	Time     time.Time
	Model    string
	Inputs   []map[string]any
	Response *shared.PredictionResponse
}

// History keeps the session's predictions in memory only; nothing is
// written to disk.
type History struct {
	mu      sync.Mutex
	entries []HistoryEntry
	now     func() time.Time
}

func NewHistory() *History {
	return &History{now: time.Now}
}

func (h *History) Add(model string, inputs []map[string]any, resp *shared.PredictionResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, HistoryEntry{Time: h.now(), Model: model, Inputs: inputs, Response: resp})
}

// Recent returns up to n entries, newest first.
func (h *History) Recent(n int) []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]HistoryEntry, 0, n)
	for i := len(h.entries) - 1; i >= len(h.entries)-n; i-- {
		out = append(out, h.entries[i])
	}
	return out
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}

type ModelUsage struct {
	Model       string
	Predictions int
}

// Stats returns the total number of predictions and the per-model counts,
// most used first.
func (h *History) Stats() (int, []ModelUsage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	counts := map[string]int{}
	for _, e := range h.entries {
		counts[e.Model]++
	}
	usage := make([]ModelUsage, 0, len(counts))
	for m, n := range counts {
		usage = append(usage, ModelUsage{Model: m, Predictions: n})
	}
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Predictions != usage[j].Predictions {
			return usage[i].Predictions > usage[j].Predictions
		}
		return usage[i].Model < usage[j].Model
	})
	return len(h.entries), usage
}
