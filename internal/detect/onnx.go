package detect

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/trailscan/trailscan/internal/config"
)

// Model input/output names for the supported detector family.
const (
	modelInputName  = "images"
	modelOutputName = "output0"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initRuntime initialises the shared ONNX Runtime environment once per
// process. Session construction and ownership stay per-worker.
func initRuntime() error {
	ortInitOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// OnnxSession runs the detector through ONNX Runtime on one device.
type OnnxSession struct {
	session    *ort.DynamicAdvancedSession
	targetSize int
	provider   string
}

// NewOnnxSession loads the model and binds it to the configured device,
// probing execution providers in priority order with CPU as the fallback.
func NewOnnxSession(cfg config.DetectConfig, logf func(format string, args ...any)) (*OnnxSession, error) {
	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("failed to initialise onnxruntime: %w", err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() { _ = opts.Destroy() }()

	provider := appendProvider(opts, cfg.Device, logf)

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{modelInputName},
		[]string{modelOutputName},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", cfg.ModelPath, err)
	}

	if logf != nil {
		logf("detector session ready: device=%s provider=%s model=%s", cfg.Device, provider, cfg.ModelPath)
	}

	return &OnnxSession{
		session:    session,
		targetSize: cfg.TargetSize,
		provider:   provider,
	}, nil
}

// appendProvider configures the requested execution provider, falling back
// to the default CPU provider when the accelerator is unavailable.
func appendProvider(opts *ort.SessionOptions, device string, logf func(format string, args ...any)) string {
	warn := func(name string, err error) {
		if logf != nil {
			logf("%s execution provider unavailable, falling back to CPU: %v", name, err)
		}
	}

	switch strings.ToLower(device) {
	case "", "cpu":
		return "cpu"
	case "gpu":
		return appendCUDA(opts, 0, warn)
	case "npu":
		if err := opts.AppendExecutionProviderOpenVINO(map[string]string{"device_type": "NPU"}); err != nil {
			warn("openvino", err)
			return "cpu"
		}
		return "openvino"
	default:
		if id, err := strconv.Atoi(device); err == nil {
			return appendCUDA(opts, id, warn)
		}
		if logf != nil {
			logf("unknown device %q, using CPU", device)
		}
		return "cpu"
	}
}

func appendCUDA(opts *ort.SessionOptions, deviceID int, warn func(string, error)) string {
	cudaOpts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		warn("cuda", err)
		return "cpu"
	}
	defer func() { _ = cudaOpts.Destroy() }()

	if err := cudaOpts.Update(map[string]string{"device_id": strconv.Itoa(deviceID)}); err != nil {
		warn("cuda", err)
		return "cpu"
	}
	if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
		warn("cuda", err)
		return "cpu"
	}
	return "cuda"
}

// Provider returns the execution provider the session actually bound.
func (s *OnnxSession) Provider() string {
	return s.provider
}

// Run performs dynamic-batch inference and normalises the backend's
// (N, P, 6) output to the (6, P, N) layout the post-processor expects.
func (s *OnnxSession) Run(input []float32, n int) (*Output, error) {
	inShape := ort.NewShape(int64(n), 3, int64(s.targetSize), int64(s.targetSize))
	inTensor, err := ort.NewTensor(inShape, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() { _ = inTensor.Destroy() }()

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{inTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}
	defer func() { _ = out.Destroy() }()

	shape := out.GetShape()
	if len(shape) != 3 || int(shape[0]) != n {
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}
	p := int(shape[1])
	rows := int(shape[2])
	if rows != 6 {
		return nil, fmt.Errorf("unexpected detection row width %d", rows)
	}

	raw := out.GetData()
	data := make([]float32, len(raw))
	for slot := 0; slot < n; slot++ {
		for det := 0; det < p; det++ {
			base := (slot*p + det) * 6
			for row := 0; row < 6; row++ {
				data[(row*p+det)*n+slot] = raw[base+row]
			}
		}
	}

	return &Output{Data: data, P: p, N: n}, nil
}

// Close releases the backend session.
func (s *OnnxSession) Close() error {
	return s.session.Destroy()
}
