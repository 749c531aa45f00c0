package sampler

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ImageSource decodes still images in-process and scales them to the
// requested grid. It serves as the fallback when the external extraction
// utility cannot handle a still image; video input is out of its reach.
type ImageSource struct{}

// ExtractGrid implements FrameSource for still images. Only the first frame
// of an animated image is decoded, matching the sampling contract.
func (ImageSource) ExtractGrid(ctx context.Context, path string, width, height int, offsetSeconds float64) ([]byte, error) {
	if offsetSeconds > 0 {
		return nil, fmt.Errorf("image source cannot seek to %.3fs in %s", offsetSeconds, path)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}

	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	pixels := make([]byte, width*height)
	copy(pixels, dst.Pix)
	return pixels, nil
}
