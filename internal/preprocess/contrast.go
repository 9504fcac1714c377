package preprocess

import (
	"errors"
	"image"
)

const (
	claheClipLimit = 2.0
	claheTileGrid  = 8
)

// clahe performs contrast-limited adaptive histogram equalization over an
// 8x8 tile grid. The clip limit redistributes histogram mass so that flat
// regions do not get their noise amplified. Pixel values are remapped by
// bilinear interpolation between the four surrounding tile mappings.
func clahe(src *image.Gray) (*image.Gray, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < claheTileGrid || h < claheTileGrid {
		return nil, errors.New("image smaller than contrast tile grid")
	}

	tw := (w + claheTileGrid - 1) / claheTileGrid
	th := (h + claheTileGrid - 1) / claheTileGrid

	// Build one clipped, equalized lookup table per tile.
	luts := make([][256]uint8, claheTileGrid*claheTileGrid)
	for ty := 0; ty < claheTileGrid; ty++ {
		for tx := 0; tx < claheTileGrid; tx++ {
			x0, y0 := tx*tw, ty*th
			x1, y1 := min(x0+tw, w), min(y0+th, h)

			var hist [256]int
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[src.GrayAt(b.Min.X+x, b.Min.Y+y).Y]++
				}
			}

			area := (x1 - x0) * (y1 - y0)
			clip := int(claheClipLimit * float64(area) / 256)
			if clip < 1 {
				clip = 1
			}

			// Clip histogram peaks and spread the excess evenly.
			excess := 0
			for i := range hist {
				if hist[i] > clip {
					excess += hist[i] - clip
					hist[i] = clip
				}
			}
			bonus := excess / 256
			for i := range hist {
				hist[i] += bonus
			}

			var cdf, cdfMin int
			lut := &luts[ty*claheTileGrid+tx]
			for i := range hist {
				cdf += hist[i]
				if cdfMin == 0 && cdf > 0 {
					cdfMin = cdf
				}
				denom := area - cdfMin
				if denom <= 0 {
					lut[i] = uint8(i)
					continue
				}
				v := (cdf - cdfMin) * 255 / denom
				if v > 255 {
					v = 255
				}
				lut[i] = uint8(v)
			}
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		// Position relative to tile centers for interpolation.
		fy := (float64(y) - float64(th)/2) / float64(th)
		ty0 := int(fy)
		if fy < 0 {
			ty0 = -1
		}
		ty1 := ty0 + 1
		wy := fy - float64(ty0)
		ty0c, ty1c := clampTile(ty0), clampTile(ty1)

		for x := 0; x < w; x++ {
			fx := (float64(x) - float64(tw)/2) / float64(tw)
			tx0 := int(fx)
			if fx < 0 {
				tx0 = -1
			}
			tx1 := tx0 + 1
			wx := fx - float64(tx0)
			tx0c, tx1c := clampTile(tx0), clampTile(tx1)

			v := src.GrayAt(b.Min.X+x, b.Min.Y+y).Y
			v00 := float64(luts[ty0c*claheTileGrid+tx0c][v])
			v01 := float64(luts[ty0c*claheTileGrid+tx1c][v])
			v10 := float64(luts[ty1c*claheTileGrid+tx0c][v])
			v11 := float64(luts[ty1c*claheTileGrid+tx1c][v])

			top := v00*(1-wx) + v01*wx
			bot := v10*(1-wx) + v11*wx
			dst.Pix[y*dst.Stride+x] = uint8(top*(1-wy) + bot*wy + 0.5)
		}
	}
	return dst, nil
}

func clampTile(t int) int {
	if t < 0 {
		return 0
	}
	if t >= claheTileGrid {
		return claheTileGrid - 1
	}
	return t
}
