package media

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// letterboxFill is the neutral grey the model was trained against. It is
// part of the wire contract with the detector; do not change it.
const letterboxFill float32 = 0.44

// letterboxGeometry computes the resized dimensions and per-side pads for
// placing a w x h image on an S x S canvas. Resized dimensions are rounded
// up to even.
func letterboxGeometry(w, h, size int) (rw, rh, padX, padY int, ratio float32) {
	longest := max(w, h)
	ratio = float32(longest) / float32(size)

	rw = roundUpEven(int(float32(w) / ratio))
	rh = roundUpEven(int(float32(h) / ratio))
	rw = min(rw, size)
	rh = min(rh, size)

	padX = (size - rw) / 2
	padY = (size - rh) / 2
	return rw, rh, padX, padY, ratio
}

func roundUpEven(v int) int {
	if v%2 != 0 {
		v++
	}
	if v < 2 {
		v = 2
	}
	return v
}

// Letterbox resizes img onto an S x S canvas pre-filled with neutral grey,
// centred, and returns the CHW tensor plus the pad and ratio needed to map
// model coordinates back to the source.
func Letterbox(img image.Image, size int) (data []float32, padX, padY int, ratio float32) {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	rw, rh, padX, padY, ratio := letterboxGeometry(w, h, size)

	resized := image.NewRGBA(image.Rect(0, 0, rw, rh))
	xdraw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, xdraw.Src, nil)

	plane := size * size
	data = make([]float32, 3*plane)
	for i := range data {
		data[i] = letterboxFill
	}

	for y := 0; y < rh; y++ {
		row := resized.Pix[y*resized.Stride:]
		base := (padY + y) * size
		for x := 0; x < rw; x++ {
			px := row[x*4:]
			pos := base + padX + x
			data[pos] = float32(px[0]) / 255.0
			data[plane+pos] = float32(px[1]) / 255.0
			data[2*plane+pos] = float32(px[2]) / 255.0
		}
	}

	return data, padX, padY, ratio
}
