package detect

import (
	"sync"
	"testing"
	"time"

	"github.com/trailscan/trailscan/internal/config"
	"github.com/trailscan/trailscan/internal/index"
	"github.com/trailscan/trailscan/internal/media"
)

// fakeSession records batch sizes and returns canned detections for every
// slot.
type fakeSession struct {
	mu      sync.Mutex
	batches []int
	rows    [][6]float32 // Raw candidate rows returned for every slot
	closed  bool
}

func (s *fakeSession) Run(input []float32, n int) (*Output, error) {
	s.mu.Lock()
	s.batches = append(s.batches, n)
	s.mu.Unlock()

	p := len(s.rows)
	if p == 0 {
		p = 1 // A single below-threshold candidate
		s.rows = [][6]float32{{0, 0, 0, 0, 0, 0}}
	}

	out := &Output{Data: make([]float32, 6*p*n), P: p, N: n}
	for slot := 0; slot < n; slot++ {
		for det, row := range s.rows {
			for r := 0; r < 6; r++ {
				out.Data[(r*p+det)*n+slot] = row[r]
			}
		}
	}
	return out, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) batchSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int{}, s.batches...)
}

func testConfig() config.DetectConfig {
	return config.DetectConfig{
		Device:        "cpu",
		TargetSize:    128,
		IoUThreshold:  0.45,
		ConfThreshold: 0.2,
		BatchSize:     4,
		BatchTimeout:  50 * time.Millisecond,
	}
}

func testFrame(id uint) *media.Frame {
	// 640x480 source letterboxed to 128: ratio 5, resized 128x96, pads (0, 16).
	return &media.Frame{
		File:        index.FileItem{FileID: id, FilePath: "/cam/a.jpg"},
		Width:       640,
		Height:      480,
		PadX:        0,
		PadY:        16,
		Ratio:       5,
		FrameIndex:  0,
		TotalFrames: 1,
	}
}

func runWorker(t *testing.T, session Session, in chan media.Item) (<-chan Result, <-chan error) {
	t.Helper()
	out := make(chan Result, 64)
	errCh := make(chan error, 1)
	w := &Worker{Config: testConfig(), Session: session}
	go func() {
		err := w.Run(in, out)
		close(out)
		errCh <- err
	}()
	return out, errCh
}

func TestWorkerFlushesPartialBatchOnIdle(t *testing.T) {
	session := &fakeSession{}
	in := make(chan media.Item)
	out, errCh := runWorker(t, session, in)

	in <- media.Item{Frame: testFrame(0)}
	in <- media.Item{Frame: testFrame(1)}

	// Well past the 50ms wait deadline: the partial batch must flush.
	time.Sleep(150 * time.Millisecond)

	batches := session.batchSizes()
	total := 0
	for _, b := range batches {
		total += b
	}
	if len(batches) == 0 || total != 2 {
		t.Fatalf("batches after idle = %v, want both frames flushed by the deadline", batches)
	}

	close(in)
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var results []Result
	for r := range out {
		results = append(results, r)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
	if again := session.batchSizes(); len(again) != len(batches) {
		t.Errorf("close triggered extra inference on an empty batch: %v", again)
	}
}

func TestWorkerFlushesFullBatchImmediately(t *testing.T) {
	session := &fakeSession{}
	in := make(chan media.Item)
	out, errCh := runWorker(t, session, in)

	for i := 0; i < 4; i++ {
		in <- media.Item{Frame: testFrame(uint(i))}
	}
	close(in)
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	count := 0
	for range out {
		count++
	}
	if count != 4 {
		t.Errorf("got %d results, want 4", count)
	}

	batches := session.batchSizes()
	total := 0
	for _, b := range batches {
		total += b
	}
	if total != 4 {
		t.Errorf("inference covered %d frames across %v, want 4", total, batches)
	}
}

func TestWorkerFlushesResidualOnClose(t *testing.T) {
	session := &fakeSession{}
	in := make(chan media.Item)
	out, errCh := runWorker(t, session, in)

	in <- media.Item{Frame: testFrame(0)}
	close(in)

	if err := <-errCh; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	count := 0
	for range out {
		count++
	}
	if count != 1 {
		t.Errorf("got %d results, want 1 (no frames dropped at shutdown)", count)
	}
}

func TestWorkerPassesThroughFileErrors(t *testing.T) {
	session := &fakeSession{}
	in := make(chan media.Item)
	out, errCh := runWorker(t, session, in)

	fe := &media.FileError{
		File:    index.FileItem{FileID: 3, FilePath: "/cam/bad.mp4"},
		Message: "transcode: broken",
	}
	in <- media.Item{Err: fe}
	close(in)

	if err := <-errCh; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	r, ok := <-out
	if !ok {
		t.Fatal("no result for file error")
	}
	if r.Err == nil || r.Err.Message != "transcode: broken" {
		t.Errorf("error result = %+v, want passed-through file error", r)
	}
	if len(session.batchSizes()) != 0 {
		t.Errorf("file errors must not trigger inference, got %v", session.batchSizes())
	}
}

func TestWorkerPostprocess(t *testing.T) {
	// Candidates in model coordinates for the 640x480 frame: one person
	// above threshold, one animal above threshold, one animal suppressed by
	// the first animal, one below confidence.
	session := &fakeSession{rows: [][6]float32{
		{10, 30, 40, 70, 0.9, 1},
		{60, 30, 90, 70, 0.8, 0},
		{62, 32, 92, 72, 0.75, 0},
		{5, 5, 6, 6, 0.1, 2},
	}}
	in := make(chan media.Item)
	out, errCh := runWorker(t, session, in)

	in <- media.Item{Frame: testFrame(0)}
	close(in)
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	r := <-out
	if r.Frame == nil {
		t.Fatal("expected frame result")
	}
	if len(r.Bboxes) != 2 {
		t.Fatalf("got %d boxes, want 2 after confidence filter and NMS", len(r.Bboxes))
	}
	if r.Label != LabelAnimal {
		t.Errorf("label = %q, want %q", r.Label, LabelAnimal)
	}

	// First box: (10-0)*5, (30-16)*5, (40-0)*5, (70-16)*5.
	b := r.Bboxes[0]
	if b.X1 != 50 || b.Y1 != 70 || b.X2 != 200 || b.Y2 != 270 {
		t.Errorf("rescaled box = %+v, want (50, 70, 200, 270)", b)
	}

	for i, b := range r.Bboxes {
		if b.X1 < 0 || b.X2 > 640 || b.Y1 < 0 || b.Y2 > 480 || b.X1 > b.X2 || b.Y1 > b.Y2 {
			t.Errorf("box %d out of bounds: %+v", i, b)
		}
	}
}

func TestWorkerClipsToSourceBounds(t *testing.T) {
	session := &fakeSession{rows: [][6]float32{
		{-20, -20, 1000, 1000, 0.9, 0},
	}}
	in := make(chan media.Item)
	out, errCh := runWorker(t, session, in)

	in <- media.Item{Frame: testFrame(0)}
	close(in)
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	r := <-out
	if len(r.Bboxes) != 1 {
		t.Fatalf("got %d boxes, want 1", len(r.Bboxes))
	}
	b := r.Bboxes[0]
	if b.X1 != 0 || b.Y1 != 0 || b.X2 != 640 || b.Y2 != 480 {
		t.Errorf("clipped box = %+v, want (0, 0, 640, 480)", b)
	}
}
