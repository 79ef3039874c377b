package media

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestLetterboxGeometry(t *testing.T) {
	tests := []struct {
		name          string
		w, h, size    int
		wantRW, wantRH int
		wantPX, wantPY int
		wantRatio     float32
	}{
		{"landscape", 640, 480, 128, 128, 96, 0, 16, 5},
		{"portrait", 480, 640, 128, 96, 128, 16, 0, 5},
		{"square", 256, 256, 128, 128, 128, 0, 0, 2},
		{"odd dims round up even", 639, 480, 128, 128, 96, 0, 16, 639.0 / 128.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rw, rh, px, py, ratio := letterboxGeometry(tt.w, tt.h, tt.size)
			if rw != tt.wantRW || rh != tt.wantRH {
				t.Errorf("resized = %dx%d, want %dx%d", rw, rh, tt.wantRW, tt.wantRH)
			}
			if px != tt.wantPX || py != tt.wantPY {
				t.Errorf("padding = (%d, %d), want (%d, %d)", px, py, tt.wantPX, tt.wantPY)
			}
			if math.Abs(float64(ratio-tt.wantRatio)) > 1e-5 {
				t.Errorf("ratio = %v, want %v", ratio, tt.wantRatio)
			}
			if rw%2 != 0 || rh%2 != 0 {
				t.Errorf("resized dims %dx%d not even", rw, rh)
			}
		})
	}
}

func TestLetterboxTensor(t *testing.T) {
	const size = 64

	// Pure white landscape image: the content area must be 1.0 and the
	// pad rows must hold the neutral grey fill.
	src := image.NewRGBA(image.Rect(0, 0, 128, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 128; x++ {
			src.Set(x, y, color.RGBA{255, 255, 255, 255})
		}
	}

	data, padX, padY, ratio := Letterbox(src, size)
	if len(data) != 3*size*size {
		t.Fatalf("tensor length = %d, want %d", len(data), 3*size*size)
	}
	if padX != 0 || padY != 16 {
		t.Fatalf("padding = (%d, %d), want (0, 16)", padX, padY)
	}
	if ratio != 2 {
		t.Fatalf("ratio = %v, want 2", ratio)
	}

	plane := size * size
	for c := 0; c < 3; c++ {
		// Top pad row stays grey, centre row is white content.
		if got := data[c*plane+0*size+10]; got != letterboxFill {
			t.Errorf("channel %d pad pixel = %v, want %v", c, got, letterboxFill)
		}
		if got := data[c*plane+(size/2)*size+10]; got != 1.0 {
			t.Errorf("channel %d content pixel = %v, want 1.0", c, got)
		}
	}
}

func TestLetterboxInverseMapping(t *testing.T) {
	// A model-space coordinate at the content edge maps back to the source
	// edge: (pad + extent - pad) * ratio = source extent.
	w, h, size := 640, 480, 128
	_, rh, _, padY, ratio := letterboxGeometry(w, h, size)

	top := (float32(padY) - float32(padY)) * ratio
	bottom := (float32(padY+rh) - float32(padY)) * ratio
	if top != 0 {
		t.Errorf("top edge maps to %v, want 0", top)
	}
	if bottom != float32(h) {
		t.Errorf("bottom edge maps to %v, want %v", bottom, float32(h))
	}
}
