package preprocess

import (
	"errors"
	"image"
	"math"
)

const (
	nlmStrength   = 10.0 // filter strength h
	nlmPatchSize  = 7    // template window
	nlmSearchSize = 21   // search window
)

// denoise applies a non-local-means spatial filter with fixed parameters.
// Each pixel is replaced by a weighted average of pixels whose surrounding
// patches look similar, which removes scanner grain while keeping strokes.
func denoise(src *image.Gray) (*image.Gray, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < nlmPatchSize || h < nlmPatchSize {
		return nil, errors.New("image smaller than denoise template window")
	}

	pr := nlmPatchSize / 2
	sr := nlmSearchSize / 2
	h2 := nlmStrength * nlmStrength

	at := func(x, y int) float64 {
		if x < 0 {
			x = 0
		} else if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		} else if y >= h {
			y = h - 1
		}
		return float64(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
	}

	patchDist := func(x1, y1, x2, y2 int) float64 {
		var sum float64
		for dy := -pr; dy <= pr; dy++ {
			for dx := -pr; dx <= pr; dx++ {
				d := at(x1+dx, y1+dy) - at(x2+dx, y2+dy)
				sum += d * d
			}
		}
		return sum / float64(nlmPatchSize*nlmPatchSize)
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var wsum, vsum float64
			for sy := y - sr; sy <= y+sr; sy++ {
				for sx := x - sr; sx <= x+sr; sx++ {
					d2 := patchDist(x, y, sx, sy)
					wgt := math.Exp(-d2 / h2)
					wsum += wgt
					vsum += wgt * at(sx, sy)
				}
			}
			v := vsum / wsum
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			dst.Pix[y*dst.Stride+x] = uint8(v + 0.5)
		}
	}
	return dst, nil
}
