package preprocess

import (
	"errors"
	"image"
	"math"
)

const (
	binarizeBlockSize = 11  // local threshold window, must be odd
	binarizeC         = 2.0 // constant subtracted from the weighted mean
)

// binarize converts the page to black/white using an adaptive threshold:
// each pixel is compared against a Gaussian-weighted mean of its
// neighborhood minus a small constant.
func binarize(src *image.Gray) (*image.Gray, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < binarizeBlockSize || h < binarizeBlockSize {
		return nil, errors.New("image smaller than binarize block")
	}

	radius := binarizeBlockSize / 2
	kernel := gaussianKernel(binarizeBlockSize)

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

	// Separable Gaussian blur: horizontal pass then vertical pass.
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				sum += kernel[k+radius] * at(x+k, y)
			}
			tmp[y*w+x] = sum
		}
	}
	tmpAt := func(x, y int) float64 {
		if y < 0 {
			y = 0
		} else if y >= h {
			y = h - 1
		}
		return tmp[y*w+x]
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var mean float64
			for k := -radius; k <= radius; k++ {
				mean += kernel[k+radius] * tmpAt(x, y+k)
			}
			v := uint8(0)
			if at(x, y) > mean-binarizeC {
				v = 255
			}
			dst.Pix[y*dst.Stride+x] = v
		}
	}
	return dst, nil
}

// gaussianKernel builds a normalized 1-D kernel of the given odd size with
// sigma derived from the size the way OpenCV's getGaussianKernel does.
func gaussianKernel(size int) []float64 {
	sigma := 0.3*(float64(size-1)/2-1) + 0.8
	k := make([]float64, size)
	var sum float64
	for i := range k {
		d := float64(i - size/2)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}
