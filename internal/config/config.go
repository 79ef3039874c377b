// Package config provides configuration types and defaults for trailscan.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Default constants
const (
	// DefaultTargetSize is the model input edge length in pixels.
	DefaultTargetSize int = 1280

	// DefaultBatchSize is the inference micro-batch size.
	DefaultBatchSize int = 2

	// DefaultBatchTimeout is the wait deadline before a partial batch is flushed.
	DefaultBatchTimeout = 50 * time.Millisecond

	// DefaultDetectWorkers is the number of detector workers per device slot.
	DefaultDetectWorkers int = 2

	// DefaultIoUThreshold is the NMS IoU threshold.
	DefaultIoUThreshold float32 = 0.45

	// DefaultConfThreshold is the minimum detection confidence.
	DefaultConfThreshold float32 = 0.2

	// DefaultCheckpointInterval is the number of records between checkpoint writes.
	DefaultCheckpointInterval int = 100

	// DefaultResultQueueSize is the result channel capacity.
	DefaultResultQueueSize int = 1024

	// DefaultExportSinks is the size of the exporter pool.
	DefaultExportSinks int = 4

	// DefaultModelPath is the bundled detector model location.
	DefaultModelPath string = "models/md_v5a_d_pp_fp16.onnx"

	// NMSTopK caps the number of boxes surviving suppression per frame.
	NMSTopK int = 100

	// FrameQueueFactor scales the bounded frame channel: batch * workers * factor.
	FrameQueueFactor int = 2
)

// ExportFormat selects the artefact encoding.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

// ParseExportFormat converts a format string to an ExportFormat value.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(s) {
	case "json":
		return ExportJSON, nil
	case "csv":
		return ExportCSV, nil
	default:
		return "", fmt.Errorf("invalid export format %q (expected json or csv)", s)
	}
}

// DeviceGroup pairs a compute device with a detector worker count.
type DeviceGroup struct {
	Device  string // "cpu", "gpu", "npu" or a numeric device id
	Workers int
}

// DetectConfig is the immutable per-run configuration shared by all
// detector workers.
type DetectConfig struct {
	Device        string
	ModelPath     string
	TargetSize    int
	IoUThreshold  float32
	ConfThreshold float32
	BatchSize     int
	BatchTimeout  time.Duration
	IFrameOnly    bool
}

// Config holds all configuration for a scan run.
type Config struct {
	// Input/output paths
	Folder     string // Root folder to scan
	ModelPath  string
	ResultPath string // Artefact path override; defaults to <Folder>/result.<ext>
	LogDir     string

	// Detection settings
	Devices       []DeviceGroup
	TargetSize    int
	BatchSize     int
	BatchTimeout  time.Duration
	IoUThreshold  float32
	ConfThreshold float32

	// Media settings
	MaxFrames  int // Max sampled frames per video; 0 means all
	IFrameOnly bool

	// Export settings
	Format             ExportFormat
	CheckpointInterval int
	ResultQueueSize    int
	ResumeFrom         string

	// Debug options
	Verbose bool
}

// NewConfig creates a new Config with default values.
func NewConfig(folder string) *Config {
	return &Config{
		Folder:             folder,
		ModelPath:          DefaultModelPath,
		Devices:            []DeviceGroup{{Device: "cpu", Workers: DefaultDetectWorkers}},
		TargetSize:         DefaultTargetSize,
		BatchSize:          DefaultBatchSize,
		BatchTimeout:       DefaultBatchTimeout,
		IoUThreshold:       DefaultIoUThreshold,
		ConfThreshold:      DefaultConfThreshold,
		IFrameOnly:         true,
		Format:             ExportJSON,
		CheckpointInterval: DefaultCheckpointInterval,
		ResultQueueSize:    DefaultResultQueueSize,
	}
}

// TotalWorkers returns the detector worker count across all device groups.
func (c *Config) TotalWorkers() int {
	total := 0
	for _, g := range c.Devices {
		total += g.Workers
	}
	return total
}

// FrameQueueSize returns the bounded frame channel capacity.
func (c *Config) FrameQueueSize() int {
	return c.BatchSize * c.TotalWorkers() * FrameQueueFactor
}

// DetectConfigFor returns the detector configuration for one device group.
func (c *Config) DetectConfigFor(g DeviceGroup) DetectConfig {
	return DetectConfig{
		Device:        g.Device,
		ModelPath:     c.ModelPath,
		TargetSize:    c.TargetSize,
		IoUThreshold:  c.IoUThreshold,
		ConfThreshold: c.ConfThreshold,
		BatchSize:     c.BatchSize,
		BatchTimeout:  c.BatchTimeout,
		IFrameOnly:    c.IFrameOnly,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Folder == "" {
		return fmt.Errorf("folder is required")
	}

	if c.ModelPath == "" {
		return fmt.Errorf("model path is required")
	}

	if c.TargetSize < 32 {
		return fmt.Errorf("imgsz must be at least 32, got %d", c.TargetSize)
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("batch must be at least 1, got %d", c.BatchSize)
	}

	if c.BatchTimeout <= 0 {
		return fmt.Errorf("batch timeout must be positive, got %s", c.BatchTimeout)
	}

	if len(c.Devices) == 0 {
		return fmt.Errorf("at least one device group is required")
	}
	for _, g := range c.Devices {
		if g.Workers < 1 {
			return fmt.Errorf("workers must be at least 1 for device %s, got %d", g.Device, g.Workers)
		}
	}

	if c.IoUThreshold <= 0 || c.IoUThreshold > 1 {
		return fmt.Errorf("iou must be in (0, 1], got %g", c.IoUThreshold)
	}
	if c.ConfThreshold < 0 || c.ConfThreshold > 1 {
		return fmt.Errorf("conf must be in [0, 1], got %g", c.ConfThreshold)
	}

	if c.CheckpointInterval < 1 {
		return fmt.Errorf("checkpoint must be greater than 0, got %d", c.CheckpointInterval)
	}

	if c.ResultQueueSize < 1 {
		return fmt.Errorf("buffer-size must be at least 1, got %d", c.ResultQueueSize)
	}

	if c.MaxFrames < 0 {
		return fmt.Errorf("max-frames must be non-negative, got %d", c.MaxFrames)
	}

	if c.Format != ExportJSON && c.Format != ExportCSV {
		return fmt.Errorf("invalid export format %q", c.Format)
	}

	return nil
}
