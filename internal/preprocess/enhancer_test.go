package preprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmercier/docextract/internal/config"
)

func grayPage(w, h int, bg uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = bg
	}
	return img
}

// drawHLine paints a thick dark horizontal line.
func drawHLine(img *image.Gray, y, x0, x1 int) {
	for yy := y; yy < y+3; yy++ {
		for x := x0; x < x1; x++ {
			img.SetGray(x, yy, color.Gray{Y: 0})
		}
	}
}

func TestEnhanceBatchPreservesOrderAndLength(t *testing.T) {
	e := NewEnhancer(config.PreprocessConfig{Binarize: true}, nil)

	pages := []image.Image{
		grayPage(32, 32, 10),
		grayPage(32, 32, 200),
		grayPage(32, 32, 90),
	}
	out := e.EnhanceBatch(pages)
	require.Len(t, out, len(pages))
	for _, img := range out {
		assert.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())
	}
}

func TestEnhanceStageFailureIsSkippedNotFatal(t *testing.T) {
	// 4x4 is below every stage's minimum size: all stages must skip and the
	// input must pass through unmodified.
	e := NewEnhancer(config.PreprocessConfig{
		Deskew:          true,
		Denoise:         true,
		EnhanceContrast: true,
		Binarize:        true,
	}, nil)

	src := grayPage(4, 4, 123)
	out := e.Enhance(src)
	g, ok := out.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, src.Pix, g.Pix)
}

func TestEnhanceConvertsToGrayscale(t *testing.T) {
	e := NewEnhancer(config.PreprocessConfig{}, nil)
	rgba := image.NewRGBA(image.Rect(0, 0, 16, 16))
	out := e.Enhance(rgba)
	_, ok := out.(*image.Gray)
	assert.True(t, ok)
}

func TestBinarizeProducesOnlyBlackAndWhite(t *testing.T) {
	src := grayPage(64, 64, 180)
	drawHLine(src, 30, 4, 60)

	out, err := binarize(src)
	require.NoError(t, err)
	for _, p := range out.Pix {
		assert.Contains(t, []uint8{0, 255}, p)
	}
}

func TestDeskewNoEdgesIsNoOp(t *testing.T) {
	src := grayPage(200, 200, 255)
	out, err := deskew(src)
	require.NoError(t, err)
	assert.Same(t, src, out)
}

func TestDeskewLevelLineIsNoOp(t *testing.T) {
	// A perfectly horizontal line has a 0 degree median angle, which is
	// below the negligible-angle cutoff.
	src := grayPage(200, 200, 255)
	drawHLine(src, 100, 20, 180)

	out, err := deskew(src)
	require.NoError(t, err)
	assert.Same(t, src, out)
}

func TestCLAHEKeepsBounds(t *testing.T) {
	src := grayPage(64, 64, 128)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			src.SetGray(x, y, color.Gray{Y: uint8(120 + (x+y)%16)})
		}
	}
	out, err := clahe(src)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), out.Bounds())
}

func TestDenoiseFlattensIsolatedSpeckle(t *testing.T) {
	src := grayPage(24, 24, 200)
	src.SetGray(12, 12, color.Gray{Y: 0})

	out, err := denoise(src)
	require.NoError(t, err)
	// The lone dark pixel should move toward the background value.
	assert.Greater(t, out.GrayAt(12, 12).Y, uint8(0))
}
