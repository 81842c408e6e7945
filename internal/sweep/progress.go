package sweep

import (
	"sync"
	"time"
)

const percentMultiplier = 100

// Progress tracks a running sweep. It is safe for concurrent reads while the
// sweep updates it.
type Progress struct {
	mu sync.RWMutex

	total            int
	processed        int
	failed           int
	totalBatches     int
	processedBatches int
	start            time.Time
}

// NewProgress creates a tracker for total samples split into batches.
func NewProgress(total, totalBatches int) *Progress {
	return &Progress{total: total, totalBatches: totalBatches, start: time.Now()}
}

// addBatch records a finished batch.
func (p *Progress) addBatch(processed, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed += processed
	p.failed += failed
	p.processedBatches++
}

// Snapshot is a copy of the progress state.
type Snapshot struct {
	Total            int
	Processed        int
	Failed           int
	TotalBatches     int
	ProcessedBatches int
	PercentComplete  float64
	Elapsed          time.Duration
	Remaining        time.Duration
}

// Snapshot returns the current state.
func (p *Progress) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	elapsed := time.Since(p.start)
	s := Snapshot{
		Total:            p.total,
		Processed:        p.processed,
		Failed:           p.failed,
		TotalBatches:     p.totalBatches,
		ProcessedBatches: p.processedBatches,
		Elapsed:          elapsed,
	}
	if p.total > 0 {
		s.PercentComplete = float64(p.processed) / float64(p.total) * percentMultiplier
	}
	if p.processed > 0 {
		s.Remaining = elapsed / time.Duration(p.processed) * time.Duration(p.total-p.processed)
	}
	return s
}

// IsComplete reports whether every sample was processed.
func (p *Progress) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.processed >= p.total
}
