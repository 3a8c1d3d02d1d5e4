// Package stats carries the per-request counters the engine accumulates
// while running a consolidation or retrieval pipeline. A Stats value is
// owned by exactly one in-flight request; its counters are updated
// atomically, so that request's parallel branches can share it.
package stats

import "sync/atomic"

// Stats holds call counters for one pipeline run. The zero value is ready
// to use. All methods are safe to call from multiple goroutines belonging
// to the same logical request (e.g. the two consolidation branches), since
// each field is updated atomically.
type Stats struct {
	llmCalls       int64
	llmRetries     int64
	embeddingCalls int64
	graphReads     int64
	graphWrites    int64
}

func (s *Stats) IncLLMCall()       { atomic.AddInt64(&s.llmCalls, 1) }
func (s *Stats) IncLLMRetry()      { atomic.AddInt64(&s.llmRetries, 1) }
func (s *Stats) IncEmbeddingCall() { atomic.AddInt64(&s.embeddingCalls, 1) }
func (s *Stats) IncGraphRead()     { atomic.AddInt64(&s.graphReads, 1) }
func (s *Stats) IncGraphWrite()    { atomic.AddInt64(&s.graphWrites, 1) }

// Snapshot is an immutable, point-in-time copy of the counters suitable
// for logging or returning to a caller.
type Snapshot struct {
	LLMCalls       int64
	LLMRetries     int64
	EmbeddingCalls int64
	GraphReads     int64
	GraphWrites    int64
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		LLMCalls:       atomic.LoadInt64(&s.llmCalls),
		LLMRetries:     atomic.LoadInt64(&s.llmRetries),
		EmbeddingCalls: atomic.LoadInt64(&s.embeddingCalls),
		GraphReads:     atomic.LoadInt64(&s.graphReads),
		GraphWrites:    atomic.LoadInt64(&s.graphWrites),
	}
}
