// Package trailscan provides a Go library for batch wildlife-camera media
// analysis.
//
// Trailscan walks a folder of trail-camera images and videos, runs every
// visual frame through an object-detection model, and exports per-frame
// detection records with checkpoint/resume support.
//
// Basic usage:
//
//	scanner, err := trailscan.New("/data/cameras",
//	    trailscan.WithModel("models/md_v5a_d_pp_fp16.onnx"),
//	    trailscan.WithDevice("gpu", 2),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := scanner.Run(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Scanned %d files, %d records\n", result.Files, result.Records)
package trailscan

import (
	"context"
	"time"

	"github.com/trailscan/trailscan/internal/config"
	"github.com/trailscan/trailscan/internal/processing"
	"github.com/trailscan/trailscan/internal/reporter"
)

// Reporter receives scan lifecycle events. Implement it to observe runs.
type Reporter = reporter.Reporter

// NullReporter is a no-op reporter that discards all updates.
type NullReporter = reporter.NullReporter

// ExportFormat selects the artefact encoding.
type ExportFormat = config.ExportFormat

const (
	ExportJSON = config.ExportJSON
	ExportCSV  = config.ExportCSV
)

// Result summarises a completed scan.
type Result = processing.RunResult

// Scanner is the main entry point for batch media analysis. Each scanner
// owns its own pipeline; multiple scanners may run independently.
type Scanner struct {
	config     *config.Config
	sessions   processing.SessionFactory
	devicesSet bool // a WithDevice option has replaced the default group
}

// Option configures the scanner.
type Option func(*Scanner)

// New creates a new Scanner over the given folder.
func New(folder string, opts ...Option) (*Scanner, error) {
	s := &Scanner{config: config.NewConfig(folder)}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.config.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// WithModel sets the detector model path.
func WithModel(path string) Option {
	return func(s *Scanner) {
		s.config.ModelPath = path
	}
}

// WithDevice adds a device group running the given number of detector
// workers. The first call replaces the default CPU group.
func WithDevice(device string, workers int) Option {
	return func(s *Scanner) {
		if !s.devicesSet {
			s.config.Devices = nil
			s.devicesSet = true
		}
		s.config.Devices = append(s.config.Devices, config.DeviceGroup{Device: device, Workers: workers})
	}
}

// WithTargetSize sets the model input edge length.
func WithTargetSize(size int) Option {
	return func(s *Scanner) {
		s.config.TargetSize = size
	}
}

// WithBatch sets the inference batch size and wait deadline.
func WithBatch(size int, timeout time.Duration) Option {
	return func(s *Scanner) {
		s.config.BatchSize = size
		s.config.BatchTimeout = timeout
	}
}

// WithThresholds sets the NMS IoU and confidence thresholds.
func WithThresholds(iou, conf float32) Option {
	return func(s *Scanner) {
		s.config.IoUThreshold = iou
		s.config.ConfThreshold = conf
	}
}

// WithMaxFrames caps the sampled frames per video.
func WithMaxFrames(n int) Option {
	return func(s *Scanner) {
		s.config.MaxFrames = n
	}
}

// WithIFrameOnly controls key-frame-only video decoding.
func WithIFrameOnly(enabled bool) Option {
	return func(s *Scanner) {
		s.config.IFrameOnly = enabled
	}
}

// WithExport sets the artefact format and an optional path override.
func WithExport(format ExportFormat, path string) Option {
	return func(s *Scanner) {
		s.config.Format = format
		s.config.ResultPath = path
	}
}

// WithCheckpoint sets the checkpoint interval in records.
func WithCheckpoint(interval int) Option {
	return func(s *Scanner) {
		s.config.CheckpointInterval = interval
	}
}

// WithResume resumes from a prior run's artefact.
func WithResume(path string) Option {
	return func(s *Scanner) {
		s.config.ResumeFrom = path
	}
}

// WithSessionFactory overrides detector session construction. Tests use
// this to run pipelines without an inference backend.
func WithSessionFactory(factory processing.SessionFactory) Option {
	return func(s *Scanner) {
		s.sessions = factory
	}
}

// Run executes the scan pipeline to completion and writes the artefact.
func (s *Scanner) Run(ctx context.Context, rep Reporter) (*Result, error) {
	sessions := s.sessions
	if sessions == nil {
		sessions = processing.OnnxSessions(nil)
	}
	return processing.Run(ctx, s.config, sessions, rep, nil)
}
