package detect

import (
	"math"
	"testing"
)

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b Bbox
		want float32
	}{
		{
			name: "identical",
			a:    Bbox{X1: 0, Y1: 0, X2: 10, Y2: 10},
			b:    Bbox{X1: 0, Y1: 0, X2: 10, Y2: 10},
			want: 1,
		},
		{
			name: "disjoint",
			a:    Bbox{X1: 0, Y1: 0, X2: 10, Y2: 10},
			b:    Bbox{X1: 20, Y1: 20, X2: 30, Y2: 30},
			want: 0,
		},
		{
			name: "half overlap",
			a:    Bbox{X1: 0, Y1: 0, X2: 10, Y2: 10},
			b:    Bbox{X1: 5, Y1: 0, X2: 15, Y2: 10},
			want: 50.0 / 150.0,
		},
		{
			name: "zero union",
			a:    Bbox{X1: 5, Y1: 5, X2: 5, Y2: 5},
			b:    Bbox{X1: 5, Y1: 5, X2: 5, Y2: 5},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IoU(tt.a, tt.b)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("IoU() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNMSAgnostic(t *testing.T) {
	// The third box overlaps the second above threshold and is suppressed;
	// the first two overlap each other below threshold and both survive.
	boxes := []Bbox{
		{X1: 100, Y1: 100, X2: 200, Y2: 200, Score: 0.9, Class: 1},
		{X1: 300, Y1: 300, X2: 400, Y2: 400, Score: 0.8, Class: 0},
		{X1: 310, Y1: 310, X2: 410, Y2: 410, Score: 0.75, Class: 0},
	}

	got := NMS(boxes, true, 100, 0.45)
	if len(got) != 2 {
		t.Fatalf("NMS() kept %d boxes, want 2", len(got))
	}
	if got[0].Score != 0.9 || got[1].Score != 0.8 {
		t.Errorf("NMS() order = %v, %v; want descending by score", got[0].Score, got[1].Score)
	}

	if label := LabelForBoxes(got); label != LabelAnimal {
		t.Errorf("LabelForBoxes() = %q, want %q", label, LabelAnimal)
	}
}

func TestNMSMonotonicity(t *testing.T) {
	boxes := []Bbox{
		{X1: 0, Y1: 0, X2: 100, Y2: 100, Score: 0.9, Class: 0},
		{X1: 10, Y1: 10, X2: 110, Y2: 110, Score: 0.85, Class: 1},
		{X1: 20, Y1: 20, X2: 120, Y2: 120, Score: 0.8, Class: 0},
		{X1: 500, Y1: 500, X2: 600, Y2: 600, Score: 0.7, Class: 2},
		{X1: 505, Y1: 505, X2: 605, Y2: 605, Score: 0.6, Class: 2},
	}
	const iouThres = 0.45

	got := NMS(boxes, true, 100, iouThres)
	for i := range got {
		for j := i + 1; j < len(got); j++ {
			if iou := IoU(got[i], got[j]); iou >= iouThres {
				t.Errorf("surviving boxes %d and %d have IoU %v >= %v", i, j, iou, iouThres)
			}
		}
	}
}

func TestNMSTopK(t *testing.T) {
	var boxes []Bbox
	for i := 0; i < 10; i++ {
		off := float32(i * 200)
		boxes = append(boxes, Bbox{
			X1: off, Y1: off, X2: off + 100, Y2: off + 100,
			Score: 1 - float32(i)*0.05, Class: 0,
		})
	}

	got := NMS(boxes, true, 3, 0.45)
	if len(got) != 3 {
		t.Errorf("NMS() with topk=3 kept %d boxes", len(got))
	}
}

func TestNMSClassSpecific(t *testing.T) {
	// Heavily overlapping boxes of different classes both survive in
	// class-specific mode.
	boxes := []Bbox{
		{X1: 0, Y1: 0, X2: 100, Y2: 100, Score: 0.9, Class: 0},
		{X1: 5, Y1: 5, X2: 105, Y2: 105, Score: 0.8, Class: 1},
		{X1: 10, Y1: 10, X2: 110, Y2: 110, Score: 0.7, Class: 0},
	}

	got := NMS(boxes, false, 100, 0.45)
	if len(got) != 2 {
		t.Fatalf("NMS() kept %d boxes, want 2", len(got))
	}

	classes := map[int]int{}
	for _, b := range got {
		classes[b.Class]++
	}
	if classes[0] != 1 || classes[1] != 1 {
		t.Errorf("NMS() class distribution = %v, want one box per class", classes)
	}
}

func TestLabelForBoxes(t *testing.T) {
	tests := []struct {
		name  string
		boxes []Bbox
		want  string
	}{
		{"empty is blank", nil, LabelBlank},
		{"animal wins", []Bbox{{Class: 1}, {Class: 0}, {Class: 2}}, LabelAnimal},
		{"person beats vehicle", []Bbox{{Class: 2}, {Class: 1}}, LabelPerson},
		{"vehicle only", []Bbox{{Class: 2}}, LabelVehicle},
		{"unknown class is blank", []Bbox{{Class: 7}}, LabelBlank},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LabelForBoxes(tt.boxes); got != tt.want {
				t.Errorf("LabelForBoxes() = %q, want %q", got, tt.want)
			}
		})
	}
}
