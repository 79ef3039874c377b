// Package detect turns model-ready frames into detection records through
// deadline-batched inference, post-processing and non-maximum suppression.
package detect

import "sort"

// Bbox is an axis-aligned detection box in source image coordinates.
type Bbox struct {
	X1    float32 `json:"x1"`
	Y1    float32 `json:"y1"`
	X2    float32 `json:"x2"`
	Y2    float32 `json:"y2"`
	Score float32 `json:"score"`
	Class int     `json:"class"`
}

// Area returns the box area.
func (b Bbox) Area() float32 {
	return (b.X2 - b.X1) * (b.Y2 - b.Y1)
}

// IoU computes intersection-over-union between two boxes. A zero union
// yields 0.
func IoU(a, b Bbox) float32 {
	x1 := max(a.X1, b.X1)
	y1 := max(a.Y1, b.Y1)
	x2 := min(a.X2, b.X2)
	y2 := min(a.Y2, b.Y2)

	inter := max(x2-x1, 0) * max(y2-y1, 0)
	union := a.Area() + b.Area() - inter
	if union == 0 {
		return 0
	}
	return inter / union
}

// NMS greedily suppresses overlapping boxes, preserving descending score
// order. In agnostic mode suppression runs across classes with a global
// topk; otherwise boxes are partitioned by class and topk applies per
// class.
func NMS(boxes []Bbox, agnostic bool, topk int, iouThreshold float32) []Bbox {
	sorted := make([]Bbox, len(boxes))
	copy(sorted, boxes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	if agnostic {
		return suppress(sorted, topk, iouThreshold)
	}

	byClass := make(map[int][]Bbox)
	classOrder := []int{}
	for _, b := range sorted {
		if _, ok := byClass[b.Class]; !ok {
			classOrder = append(classOrder, b.Class)
		}
		byClass[b.Class] = append(byClass[b.Class], b)
	}

	var result []Bbox
	for _, c := range classOrder {
		result = append(result, suppress(byClass[c], topk, iouThreshold)...)
	}
	return result
}

// suppress runs the greedy pass over score-sorted boxes.
func suppress(boxes []Bbox, topk int, iouThreshold float32) []Bbox {
	var result []Bbox
	for len(boxes) > 0 {
		best := boxes[0]
		boxes = boxes[1:]
		result = append(result, best)
		if len(result) >= topk {
			break
		}

		kept := boxes[:0]
		for _, b := range boxes {
			if IoU(best, b) < iouThreshold {
				kept = append(kept, b)
			}
		}
		boxes = kept
	}
	return result
}
