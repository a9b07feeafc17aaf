// Package usage implements the process-wide token usage tracker (C8):
// per-model input/output token accumulation across a session, with no
// persistence across process lifetimes.
package usage

import "sync"

// Totals is one model's accumulated token counts.
type Totals struct {
	InputTokens  int
	OutputTokens int
}

// Tracker is a process-wide singleton guarded by a mutex, since model
// calls happen concurrently across workers (§5).
type Tracker struct {
	mu     sync.Mutex
	totals map[string]Totals
}

func NewTracker() *Tracker {
	return &Tracker{totals: make(map[string]Totals)}
}

// AddUse atomically increments a model's running totals.
func (t *Tracker) AddUse(model string, input, output int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur := t.totals[model]
	cur.InputTokens += input
	cur.OutputTokens += output
	t.totals[model] = cur
}

// GetUsage returns a snapshot of every model's accumulated totals.
func (t *Tracker) GetUsage() map[string]Totals {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]Totals, len(t.totals))
	for k, v := range t.totals {
		out[k] = v
	}
	return out
}

// Cost computes total cost for (inputTokens, outputTokens) given costs
// stored as integer units of 1/10,000,000 of the currency base (§4.7
// invariant 7). The model listing divides a stored cost by 10 to show
// a per-million rate; this returns the raw currency-base cost, which
// /cost prints as is.
func Cost(inputTokens, outputTokens, inputCostPer10M, outputCostPer10M int) float64 {
	return float64(inputTokens)*float64(inputCostPer10M)/10_000_000 +
		float64(outputTokens)*float64(outputCostPer10M)/10_000_000
}
