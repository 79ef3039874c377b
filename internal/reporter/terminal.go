package reporter

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	mu       sync.Mutex
	progress *progressbar.ProgressBar
	verbose  bool
	cyan     *color.Color
	green    *color.Color
	yellow   *color.Color
	red      *color.Color
	bold     *color.Color
	dim      *color.Color
}

// NewTerminalReporter creates a new terminal reporter with verbose mode disabled.
func NewTerminalReporter() *TerminalReporter {
	return NewTerminalReporterVerbose(false)
}

// NewTerminalReporterVerbose creates a new terminal reporter with configurable verbose mode.
func NewTerminalReporterVerbose(verbose bool) *TerminalReporter {
	return &TerminalReporter{
		verbose: verbose,
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		bold:    color.New(color.Bold),
		dim:     color.New(color.Faint),
	}
}

// labelWidth is the global width for all labels to ensure consistent alignment.
const labelWidth = 12

// printLabel prints a bold label with fixed width padding followed by a value.
func (r *TerminalReporter) printLabel(label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", labelWidth, label)
	fmt.Printf("  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) RunStarted(s RunSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("SCAN")
	r.printLabel("Folder:", s.Root)
	r.printLabel("Model:", s.Model)
	r.printLabel("Devices:", s.Devices)
	r.printLabel("Files:", fmt.Sprintf("%d", s.Files))
	r.printLabel("Workers:", fmt.Sprintf("%d", s.Workers))
	r.printLabel("Batch:", fmt.Sprintf("%d", s.BatchSize))
	r.printLabel("Export:", s.Format)
	fmt.Println()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = progressbar.NewOptions(
		s.Files,
		progressbar.OptionSetDescription("scanning"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) ResumeApplied(s ResumeSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("RESUME")
	r.printLabel("Checkpoint:", s.Checkpoint)
	r.printLabel("Replayed:", fmt.Sprintf("%d records", s.Replayed))
	r.printLabel("Completed:", fmt.Sprintf("%d files", s.Completed))
	r.printLabel("Remaining:", fmt.Sprintf("%d files", s.Remaining))
}

func (r *TerminalReporter) FileDone(o FileOutcome) {
	r.mu.Lock()
	if r.progress != nil {
		_ = r.progress.Add(1)
	}
	r.mu.Unlock()

	if o.Failed {
		fmt.Printf("  %s %s: %s\n", r.red.Sprint("✗"), o.Path, o.Message)
	} else if r.verbose {
		fmt.Printf("  %s %s\n", r.green.Sprint("✓"), o.Path)
	}
}

func (r *TerminalReporter) Warning(message string) {
	fmt.Printf("  %s %s\n", r.yellow.Sprint("!"), message)
}

func (r *TerminalReporter) Error(message string) {
	fmt.Printf("  %s %s\n", r.red.Sprint("✗"), message)
}

func (r *TerminalReporter) RunComplete(o RunOutcome) {
	r.mu.Lock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.mu.Unlock()

	fmt.Println()
	_, _ = r.cyan.Println("COMPLETE")
	r.printLabel("Files:", fmt.Sprintf("%d", o.Files))
	r.printLabel("Records:", fmt.Sprintf("%d", o.Records))
	if o.Errors > 0 {
		r.printLabel("Errors:", r.yellow.Sprintf("%d", o.Errors))
	}
	r.printLabel("Artefact:", o.Artefact)
	r.printLabel("Elapsed:", o.Elapsed.Round(10 * time.Millisecond).String())
	fmt.Println()
}
