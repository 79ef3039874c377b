package export

import (
	"sync"
	"sync/atomic"

	"github.com/trailscan/trailscan/internal/config"
	"github.com/trailscan/trailscan/internal/detect"
)

// Buffer is the shared, append-only result sequence. It holds replayed
// checkpoint records plus everything produced by the current run.
type Buffer struct {
	mu      sync.Mutex
	records []Frame
}

// Append adds one record.
func (b *Buffer) Append(f Frame) {
	b.mu.Lock()
	b.records = append(b.records, f)
	b.mu.Unlock()
}

// Extend adds many records.
func (b *Buffer) Extend(frames []Frame) {
	b.mu.Lock()
	b.records = append(b.records, frames...)
	b.mu.Unlock()
}

// Snapshot returns a copy of the current record sequence.
func (b *Buffer) Snapshot() []Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Frame, len(b.records))
	copy(out, b.records)
	return out
}

// Len returns the current record count.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// SinkPool drains the result channel into the buffer, writing the whole
// buffer to disk at every checkpoint interval. Locks are acquired in the
// fixed order counter then buffer, and never held across the file write.
type SinkPool struct {
	Interval int
	Format   config.ExportFormat
	Path     string
	Buffer   *Buffer
	Warn     func(format string, args ...any)

	counterMu sync.Mutex
	counter   int

	errorCount atomic.Int64
}

// RunSink consumes detector results until the channel closes. Write
// failures are logged and the sink continues; at most Interval records can
// be lost to a crash because the artefact is rewritten in full at each
// checkpoint.
func (p *SinkPool) RunSink(in <-chan detect.Result) {
	for res := range in {
		rec := FromResult(res)
		if rec.Error != nil {
			p.errorCount.Add(1)
		}

		p.counterMu.Lock()
		p.counter++
		checkpoint := p.counter%p.Interval == 0
		p.counterMu.Unlock()

		if checkpoint {
			if err := WriteArtefact(p.Path, p.Format, p.Buffer.Snapshot()); err != nil && p.Warn != nil {
				p.Warn("checkpoint write failed: %v", err)
			}
		}

		p.Buffer.Append(rec)
	}
}

// ErrorCount returns the number of error records seen so far.
func (p *SinkPool) ErrorCount() int {
	return int(p.errorCount.Load())
}
