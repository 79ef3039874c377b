// Package main provides the CLI entry point for trailscan.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/trailscan/trailscan/internal/config"
	"github.com/trailscan/trailscan/internal/export"
	"github.com/trailscan/trailscan/internal/logging"
	"github.com/trailscan/trailscan/internal/organize"
	"github.com/trailscan/trailscan/internal/processing"
	"github.com/trailscan/trailscan/internal/reporter"
)

const (
	appName    = "trailscan"
	appVersion = "0.3.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "scan":
		if err := runScan(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "organize":
		if err := runOrganize(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("%s version %s\n", appName, appVersion)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - Wildlife camera media analysis

Usage:
  %s <command> [options]

Commands:
  scan      Detect animals, people and vehicles in a folder of camera media
  organize  Re-file scanned media into per-label folders by sequence
  version   Print version information
  help      Show this help message

Run '%s <command> --help' for command options.
`, appName, appName, appName)
}

// stringList collects repeated string flags.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint(*s) }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// intList collects repeated integer flags.
type intList []int

func (s *intList) String() string { return fmt.Sprint(*s) }
func (s *intList) Set(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*s = append(*s, n)
	return nil
}

// scanArgs holds the parsed arguments for the scan command.
type scanArgs struct {
	folder     string
	model      string
	devices    stringList
	workers    intList
	maxFrames  int
	iframeOnly bool
	imgsz      int
	batch      int
	iou        float64
	conf       float64
	format     string
	checkpoint int
	resumeFrom string
	bufferPath string
	bufferSize int
	logDir     string
	verbose    bool
	noLog      bool
}

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Detect animals, people and vehicles in camera media.

Usage:
  %s scan [options]

Required:
  --folder <PATH>        Folder of camera media to process

Detection:
  --model <PATH>         Detector model path. Default: %s
  --device <NAME>        Compute device (cpu, gpu, npu, or device id).
                         Repeatable; pair each with --workers.
  --workers <N>          Detector workers for the matching --device. Default: %d
  --imgsz <S>            Model input size. Default: %d
  --batch <B>            Inference batch size. Default: %d
  --iou <F>              NMS IoU threshold. Default: %.2f
  --conf <F>             Confidence threshold. Default: %.2f

Media:
  --max-frames <N>       Max sampled frames per video. Default: all
  --iframe-only          Decode only video key frames (default true)

Export:
  --export <FMT>         Artefact format: json or csv. Default: json
  --checkpoint <N>       Records between checkpoint writes. Default: %d
  --resume-from <PATH>   Resume from a prior result.json or result.csv
  --buffer-path <PATH>   Artefact path override. Default: <folder>/result.<fmt>
  --buffer-size <N>      Result queue capacity. Default: %d

Output:
  --log-dir <PATH>       Log directory (defaults to ~/.local/state/trailscan/logs)
  --verbose              Enable verbose output
  --no-log               Disable log file creation
`, appName, config.DefaultModelPath, config.DefaultDetectWorkers, config.DefaultTargetSize,
			config.DefaultBatchSize, config.DefaultIoUThreshold, config.DefaultConfThreshold,
			config.DefaultCheckpointInterval, config.DefaultResultQueueSize)
	}

	var sa scanArgs
	fs.StringVar(&sa.folder, "folder", "", "Folder to process")
	fs.StringVar(&sa.model, "model", config.DefaultModelPath, "Detector model path")
	fs.Var(&sa.devices, "device", "Compute device (repeatable)")
	fs.Var(&sa.workers, "workers", "Detector workers per device (repeatable)")
	fs.IntVar(&sa.maxFrames, "max-frames", 0, "Max sampled frames per video")
	fs.BoolVar(&sa.iframeOnly, "iframe-only", true, "Decode only key frames")
	fs.IntVar(&sa.imgsz, "imgsz", config.DefaultTargetSize, "Model input size")
	fs.IntVar(&sa.batch, "batch", config.DefaultBatchSize, "Inference batch size")
	fs.Float64Var(&sa.iou, "iou", float64(config.DefaultIoUThreshold), "NMS IoU threshold")
	fs.Float64Var(&sa.conf, "conf", float64(config.DefaultConfThreshold), "Confidence threshold")
	fs.StringVar(&sa.format, "export", "json", "Export format (json or csv)")
	fs.IntVar(&sa.checkpoint, "checkpoint", config.DefaultCheckpointInterval, "Checkpoint interval")
	fs.StringVar(&sa.resumeFrom, "resume-from", "", "Resume from checkpoint artefact")
	fs.StringVar(&sa.bufferPath, "buffer-path", "", "Artefact path override")
	fs.IntVar(&sa.bufferSize, "buffer-size", config.DefaultResultQueueSize, "Result queue capacity")
	fs.StringVar(&sa.logDir, "log-dir", "", "Log directory")
	fs.BoolVar(&sa.verbose, "verbose", false, "Enable verbose output")
	fs.BoolVar(&sa.noLog, "no-log", false, "Disable log file creation")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if sa.folder == "" {
		return fmt.Errorf("folder is required (--folder)")
	}

	return executeScan(sa)
}

func executeScan(sa scanArgs) error {
	folder, err := filepath.Abs(sa.folder)
	if err != nil {
		return fmt.Errorf("invalid folder path: %w", err)
	}

	cfg := config.NewConfig(folder)
	cfg.ModelPath = sa.model
	cfg.MaxFrames = sa.maxFrames
	cfg.IFrameOnly = sa.iframeOnly
	cfg.TargetSize = sa.imgsz
	cfg.BatchSize = sa.batch
	cfg.IoUThreshold = float32(sa.iou)
	cfg.ConfThreshold = float32(sa.conf)
	cfg.CheckpointInterval = sa.checkpoint
	cfg.ResumeFrom = sa.resumeFrom
	cfg.ResultPath = sa.bufferPath
	cfg.ResultQueueSize = sa.bufferSize
	cfg.Verbose = sa.verbose

	format, err := config.ParseExportFormat(sa.format)
	if err != nil {
		return err
	}
	cfg.Format = format

	if devices, err := pairDevices(sa.devices, sa.workers); err != nil {
		return err
	} else if len(devices) > 0 {
		cfg.Devices = devices
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logDir := sa.logDir
	if logDir == "" {
		logDir = logging.DefaultLogDir()
	}
	logger, err := logging.Setup(logDir, sa.verbose, sa.noLog, os.Args)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer func() { _ = logger.Close() }()

	rep := buildReporter(logger, sa.verbose)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	_, err = processing.Run(ctx, cfg, processing.OnnxSessions(logger), rep, logger)
	return err
}

// pairDevices zips repeated --device and --workers flags into device
// groups. A missing worker count falls back to the default.
func pairDevices(devices stringList, workers intList) ([]config.DeviceGroup, error) {
	if len(workers) > len(devices) {
		return nil, fmt.Errorf("more --workers than --device flags")
	}
	groups := make([]config.DeviceGroup, len(devices))
	for i, d := range devices {
		w := config.DefaultDetectWorkers
		if i < len(workers) {
			w = workers[i]
		}
		groups[i] = config.DeviceGroup{Device: d, Workers: w}
	}
	return groups, nil
}

func buildReporter(logger *logging.Logger, verbose bool) reporter.Reporter {
	term := reporter.NewTerminalReporterVerbose(verbose)
	if logger == nil {
		return term
	}
	return reporter.NewCompositeReporter(term, reporter.NewLogReporter(logger.Writer()))
}

// organizeArgs holds the parsed arguments for the organize command.
type organizeArgs struct {
	result string
	gap    int
	dryRun bool
}

func runOrganize(args []string) error {
	fs := flag.NewFlagSet("organize", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Re-file scanned media into per-label folders by capture sequence.

Usage:
  %s organize [options]

Required:
  --result <PATH>   Exported artefact (result.json or result.csv)

Options:
  --gap <SECONDS>   Max shoot-time gap within one sequence. Default: %d
  --dry-run         Print planned moves without renaming files
`, appName, int(organize.DefaultGap.Seconds()))
	}

	var oa organizeArgs
	fs.StringVar(&oa.result, "result", "", "Exported artefact path")
	fs.IntVar(&oa.gap, "gap", int(organize.DefaultGap.Seconds()), "Sequence gap in seconds")
	fs.BoolVar(&oa.dryRun, "dry-run", false, "Plan only")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if oa.result == "" {
		return fmt.Errorf("artefact path is required (--result)")
	}

	data, err := os.ReadFile(oa.result)
	if err != nil {
		return fmt.Errorf("cannot read artefact: %w", err)
	}

	var frames []export.Frame
	switch filepath.Ext(oa.result) {
	case ".json":
		frames, err = export.DecodeJSON(data)
	case ".csv":
		frames, err = export.DecodeCSV(data)
	default:
		return fmt.Errorf("unknown artefact extension: %s", oa.result)
	}
	if err != nil {
		return err
	}

	org := &organize.Organizer{
		Gap:    time.Duration(oa.gap) * time.Second,
		DryRun: oa.dryRun,
		Warn: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
		},
	}
	moves, err := org.Run(frames)
	if err != nil {
		return err
	}

	for _, m := range moves {
		status := "moved"
		if oa.dryRun {
			status = "plan"
		} else if !m.Moved {
			status = "failed"
		}
		fmt.Printf("%-6s seq %3d  %-8s %s -> %s\n", status, m.SeqID, m.Label, m.Source, m.Dest)
	}
	fmt.Printf("%d files in %s\n", len(moves), oa.result)
	return nil
}
