package reporter

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// LogReporter writes scan events to a log file.
type LogReporter struct {
	w  io.Writer
	mu sync.Mutex
}

// NewLogReporter creates a new log reporter that writes to the given writer.
func NewLogReporter(w io.Writer) *LogReporter {
	return &LogReporter{w: w}
}

func (r *LogReporter) log(level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(r.w, "%s [%s] %s\n", timestamp, level, msg)
}

func (r *LogReporter) RunStarted(s RunSummary) {
	r.log("INFO", "=== SCAN ===")
	r.log("INFO", "Folder: %s", s.Root)
	r.log("INFO", "Model: %s", s.Model)
	r.log("INFO", "Devices: %s", s.Devices)
	r.log("INFO", "Files: %d, workers: %d, batch: %d, export: %s", s.Files, s.Workers, s.BatchSize, s.Format)
}

func (r *LogReporter) ResumeApplied(s ResumeSummary) {
	r.log("INFO", "Resumed from %s: %d records replayed, %d files complete, %d remaining",
		s.Checkpoint, s.Replayed, s.Completed, s.Remaining)
}

func (r *LogReporter) FileDone(o FileOutcome) {
	if o.Failed {
		r.log("WARN", "Failed %s: %s", o.Path, o.Message)
	} else {
		r.log("INFO", "Done %s", o.Path)
	}
}

func (r *LogReporter) Warning(message string) {
	r.log("WARN", "%s", message)
}

func (r *LogReporter) Error(message string) {
	r.log("ERROR", "%s", message)
}

func (r *LogReporter) RunComplete(o RunOutcome) {
	r.log("INFO", "Scan complete: %d files, %d records, %d errors, artefact %s, elapsed %s",
		o.Files, o.Records, o.Errors, o.Artefact, o.Elapsed)
}
