package preprocess

import (
	"errors"
	"image"
	"math"
	"sort"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const (
	// Line detector parameters, tuned for 300 DPI document scans.
	houghThreshold = 100
	minLineLength  = 100
	maxLineGap     = 10
	edgeThreshold  = 128

	// Angles below this are treated as already level.
	negligibleAngleDeg = 0.5
)

// deskew estimates the dominant text-line angle and rotates the page to
// level it. Pages with no detectable lines, or a negligible median angle,
// are returned unchanged.
func deskew(src *image.Gray) (*image.Gray, error) {
	b := src.Bounds()
	if b.Dx() < minLineLength || b.Dy() < 2 {
		return nil, errors.New("image too small for deskew")
	}

	edges := sobelEdges(src)
	segments := houghSegments(edges, b.Dx(), b.Dy())

	// Keep only near-horizontal candidates; vertical structure (column
	// rules, table borders) would bias the estimate.
	var angles []float64
	for _, s := range segments {
		a := math.Atan2(float64(s.y2-s.y1), float64(s.x2-s.x1)) * 180 / math.Pi
		if math.Abs(a) < 45 {
			angles = append(angles, a)
		}
	}
	if len(angles) == 0 {
		return src, nil
	}

	median := medianOf(angles)
	if math.Abs(median) < negligibleAngleDeg {
		return src, nil
	}
	return rotateGray(src, -median), nil
}

func medianOf(v []float64) float64 {
	sort.Float64s(v)
	n := len(v)
	if n%2 == 1 {
		return v[n/2]
	}
	return (v[n/2-1] + v[n/2]) / 2
}

// sobelEdges returns a binary edge map from thresholded Sobel gradients.
func sobelEdges(src *image.Gray) []bool {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	edges := make([]bool, w*h)
	at := func(x, y int) int {
		return int(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1) +
				at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			if math.Hypot(float64(gx), float64(gy)) >= edgeThreshold {
				edges[y*w+x] = true
			}
		}
	}
	return edges
}

type segment struct {
	x1, y1, x2, y2 int
}

// houghSegments runs a Hough line transform over the edge map and extracts
// contiguous segments (up to maxLineGap holes) of at least minLineLength
// along every accumulator cell that clears houghThreshold.
func houghSegments(edges []bool, w, h int) []segment {
	diag := int(math.Ceil(math.Hypot(float64(w), float64(h))))
	// theta in [0, 180) degrees, rho in [-diag, diag].
	acc := make([]int32, 180*(2*diag+1))
	sin := make([]float64, 180)
	cos := make([]float64, 180)
	for t := 0; t < 180; t++ {
		rad := float64(t) * math.Pi / 180
		sin[t] = math.Sin(rad)
		cos[t] = math.Cos(rad)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !edges[y*w+x] {
				continue
			}
			for t := 0; t < 180; t++ {
				rho := int(math.Round(float64(x)*cos[t] + float64(y)*sin[t]))
				acc[t*(2*diag+1)+rho+diag]++
			}
		}
	}

	var segs []segment
	for t := 0; t < 180; t++ {
		for r := -diag; r <= diag; r++ {
			if acc[t*(2*diag+1)+r+diag] < houghThreshold {
				continue
			}
			segs = append(segs, walkLine(edges, w, h, float64(r), cos[t], sin[t])...)
		}
	}
	return segs
}

// walkLine traces the image-crossing line x*cos+y*sin=rho and collects runs
// of edge pixels, tolerating gaps up to maxLineGap.
func walkLine(edges []bool, w, h int, rho, cosT, sinT float64) []segment {
	// Parametrize along the line direction (-sin, cos).
	px, py := rho*cosT, rho*sinT
	limit := int(math.Hypot(float64(w), float64(h)))

	var segs []segment
	runStart, gap, lastX, lastY := -1, 0, 0, 0
	var startX, startY int

	flush := func() {
		if runStart < 0 {
			return
		}
		dx, dy := lastX-startX, lastY-startY
		if math.Hypot(float64(dx), float64(dy)) >= minLineLength {
			segs = append(segs, segment{startX, startY, lastX, lastY})
		}
		runStart = -1
	}

	for step := -limit; step <= limit; step++ {
		x := int(math.Round(px - float64(step)*sinT))
		y := int(math.Round(py + float64(step)*cosT))
		on := x >= 0 && x < w && y >= 0 && y < h && edges[y*w+x]
		switch {
		case on:
			if runStart < 0 {
				runStart, startX, startY = step, x, y
			}
			lastX, lastY = x, y
			gap = 0
		case runStart >= 0:
			gap++
			if gap > maxLineGap {
				flush()
				gap = 0
			}
		}
	}
	flush()
	return segs
}

// rotateGray rotates the page by angleDeg about its center using a
// Catmull-Rom resampler. The source is first padded with replicated border
// pixels so that samples falling outside the original stay document-colored
// instead of black.
func rotateGray(src *image.Gray, angleDeg float64) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	phi := angleDeg * math.Pi / 180

	// Worst-case displacement of any pixel under rotation about the center.
	r := math.Hypot(float64(w), float64(h)) / 2
	pad := int(math.Ceil(r*2*math.Abs(math.Sin(phi/2)))) + 2

	padded := replicatePad(src, pad)

	cx, cy := float64(w)/2, float64(h)/2
	cosP, sinP := math.Cos(phi), math.Sin(phi)
	fp := float64(pad)
	s2d := f64.Aff3{
		cosP, -sinP, -cosP*(fp+cx) + sinP*(fp+cy) + cx,
		sinP, cosP, -sinP*(fp+cx) - cosP*(fp+cy) + cy,
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Transform(dst, s2d, padded, padded.Bounds(), draw.Src, nil)
	return dst
}

func replicatePad(src *image.Gray, pad int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w+2*pad, h+2*pad))
	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	for y := 0; y < h+2*pad; y++ {
		sy := b.Min.Y + clamp(y-pad, 0, h-1)
		for x := 0; x < w+2*pad; x++ {
			sx := b.Min.X + clamp(x-pad, 0, w-1)
			out.SetGray(x, y, src.GrayAt(sx, sy))
		}
	}
	return out
}
