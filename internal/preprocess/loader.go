package preprocess

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/tiff"

	"github.com/lmercier/docextract/internal/common"
)

// LoadImage reads and decodes a page image from disk.
func LoadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError("INPUT_ERROR", fmt.Sprintf("read image %q", path), common.ErrInvalidInput)
	}
	return DecodeImage(data)
}

// DecodeImage decodes PNG or JPEG bytes into an image.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, common.NewAppError("INPUT_ERROR", "decode image", common.ErrInvalidInput)
	}
	return img, nil
}
