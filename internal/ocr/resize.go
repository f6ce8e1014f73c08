package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"
	"image/png"

	"golang.org/x/image/draw"

	// Register the raster formats the service accepts.
	_ "image/gif"
	_ "image/jpeg"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// NormalizeForOCR shrinks an image whose longer side exceeds maxDimension,
// preserving aspect ratio, and flattens alpha/palette sources onto white RGB.
// Images already within bounds are returned unchanged.
func NormalizeForOCR(data []byte, maxDimension int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= maxDimension && height <= maxDimension {
		return data, nil
	}

	var newW, newH int
	if width > height {
		newW = maxDimension
		newH = height * maxDimension / width
	} else {
		newH = maxDimension
		newW = width * maxDimension / height
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	// White background so transparent regions don't turn black.
	stddraw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, stddraw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, dst); err != nil {
		return nil, fmt.Errorf("encode resized image: %w", err)
	}
	return out.Bytes(), nil
}
