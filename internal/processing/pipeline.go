// Package processing wires the scan pipeline: media decode fan-out, the
// bounded frame queue, detector workers, exporter sinks, and the ordered
// shutdown between them.
package processing

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trailscan/trailscan/internal/config"
	"github.com/trailscan/trailscan/internal/detect"
	"github.com/trailscan/trailscan/internal/export"
	"github.com/trailscan/trailscan/internal/index"
	"github.com/trailscan/trailscan/internal/logging"
	"github.com/trailscan/trailscan/internal/media"
	"github.com/trailscan/trailscan/internal/reporter"
	"github.com/trailscan/trailscan/internal/util"
)

// SessionFactory builds one detector session for a device group. The
// controller owns construction so tests can run pipelines against fakes.
type SessionFactory func(cfg config.DetectConfig) (detect.Session, error)

// OnnxSessions is the default factory backed by ONNX Runtime.
func OnnxSessions(logger *logging.Logger) SessionFactory {
	return func(cfg config.DetectConfig) (detect.Session, error) {
		return detect.NewOnnxSession(cfg, logger.Info)
	}
}

// RunResult summarises a completed scan.
type RunResult struct {
	Files    int
	Records  int
	Errors   int
	Artefact string
	Elapsed  time.Duration
}

// Run executes the full pipeline over cfg.Folder and writes the artefact.
// Decode failures become records; detector failures are fatal.
func Run(ctx context.Context, cfg *config.Config, sessions SessionFactory, rep reporter.Reporter, logger *logging.Logger) (*RunResult, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	start := time.Now()

	warn := func(format string, args ...any) {
		logger.Warn(format, args...)
		rep.Warning(fmt.Sprintf(format, args...))
	}

	work, err := index.Walk(cfg.Folder, warn)
	if err != nil {
		return nil, err
	}
	logger.Info("Indexed %d media files under %s", len(work), cfg.Folder)
	util.CheckDiskSpace(cfg.Folder, warn)

	artefact := cfg.ResultPath
	if artefact == "" {
		artefact = export.ResultPath(cfg.Folder, cfg.Format)
	}
	if err := util.EnsureDirectoryWritable(filepath.Dir(artefact)); err != nil {
		return nil, fmt.Errorf("artefact directory unusable: %w", err)
	}

	buffer := &export.Buffer{}
	if cfg.ResumeFrom != "" {
		indexed := len(work)
		if err := export.Reconcile(cfg.ResumeFrom, work, buffer); err != nil {
			return nil, err
		}
		rep.ResumeApplied(reporter.ResumeSummary{
			Checkpoint: cfg.ResumeFrom,
			Replayed:   buffer.Len(),
			Completed:  indexed - len(work),
			Remaining:  len(work),
		})
		logger.Info("Resumed from %s: %d records replayed, %d files remaining",
			cfg.ResumeFrom, buffer.Len(), len(work))
	}

	rep.RunStarted(reporter.RunSummary{
		Root:      cfg.Folder,
		Model:     cfg.ModelPath,
		Devices:   describeDevices(cfg.Devices),
		Files:     len(work),
		Workers:   cfg.TotalWorkers(),
		BatchSize: cfg.BatchSize,
		Format:    string(cfg.Format),
		Resumed:   cfg.ResumeFrom != "",
	})

	frames := make(chan media.Item, cfg.FrameQueueSize())
	results := make(chan detect.Result, cfg.ResultQueueSize)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Detector workers: one session per worker, sessions are never shared.
	// All sessions are built before any worker starts so a failed device
	// cannot leave half a fleet blocked on the frame queue.
	var workers []*detect.Worker
	for _, group := range cfg.Devices {
		detectCfg := cfg.DetectConfigFor(group)
		for i := 0; i < group.Workers; i++ {
			session, err := sessions(detectCfg)
			if err != nil {
				for _, w := range workers {
					_ = w.Session.Close()
				}
				return nil, fmt.Errorf("failed to create detector session on %s: %w", group.Device, err)
			}
			workers = append(workers, &detect.Worker{
				Config:  detectCfg,
				Session: session,
				Logf:    logger.Debug,
			})
		}
	}

	var detectors errgroup.Group
	for _, worker := range workers {
		worker := worker
		detectors.Go(func() error {
			defer func() { _ = worker.Session.Close() }()
			if err := worker.Run(frames, results); err != nil {
				// Unblock media workers stuck on a full frame queue.
				cancel()
				return err
			}
			return nil
		})
	}

	sinks := &export.SinkPool{
		Interval: cfg.CheckpointInterval,
		Format:   cfg.Format,
		Path:     artefact,
		Buffer:   buffer,
		Warn:     warn,
	}
	var exporters errgroup.Group
	for i := 0; i < config.DefaultExportSinks; i++ {
		exporters.Go(func() error {
			sinks.RunSink(results)
			return nil
		})
	}

	mediaWorker := &media.Worker{
		TargetSize: cfg.TargetSize,
		IFrameOnly: cfg.IFrameOnly,
		MaxFrames:  cfg.MaxFrames,
		Warn:       warn,
	}

	var decoders errgroup.Group
	decoders.SetLimit(runtime.NumCPU())
	for _, file := range sortedWork(work) {
		file := file
		decoders.Go(func() error {
			fe := mediaWorker.Process(runCtx, file, frames)
			outcome := reporter.FileOutcome{Path: file.FilePath}
			if fe != nil {
				outcome.Failed = true
				outcome.Message = fe.Message
				logger.Warn("Decode failed for %s: %s", file.FilePath, fe.Message)
			}
			rep.FileDone(outcome)
			return nil
		})
	}

	// Shutdown cascades stage by stage: close the frame queue once decoding
	// is done, join detectors, close the result queue, join exporters.
	_ = decoders.Wait()
	close(frames)
	detectErr := detectors.Wait()
	close(results)
	_ = exporters.Wait()

	if detectErr != nil {
		rep.Error(detectErr.Error())
		return nil, fmt.Errorf("detector worker failed: %w", detectErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := export.WriteArtefact(artefact, cfg.Format, buffer.Snapshot()); err != nil {
		return nil, err
	}

	result := &RunResult{
		Files:    len(work),
		Records:  buffer.Len(),
		Errors:   sinks.ErrorCount(),
		Artefact: artefact,
		Elapsed:  time.Since(start),
	}
	rep.RunComplete(reporter.RunOutcome{
		Files:    result.Files,
		Records:  result.Records,
		Errors:   result.Errors,
		Artefact: result.Artefact,
		Elapsed:  result.Elapsed,
	})
	logger.Info("Scan complete: %d files, %d records, %d errors in %s",
		result.Files, result.Records, result.Errors, result.Elapsed)

	return result, nil
}

// sortedWork returns the work set in file-id order so decode dispatch is
// deterministic.
func sortedWork(work map[string]index.FileItem) []index.FileItem {
	files := make([]index.FileItem, 0, len(work))
	for _, f := range work {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].FileID < files[j].FileID
	})
	return files
}

func describeDevices(groups []config.DeviceGroup) string {
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = fmt.Sprintf("%s×%d", g.Device, g.Workers)
	}
	return strings.Join(parts, ", ")
}
