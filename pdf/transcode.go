package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// Transcode downscales src by the pass divisor, flattens it onto white as
// 8 bit RGB and encodes it as JPEG at the pass quality.
func Transcode(src image.Image, p Pass) (EncodedImage, error) {
	if !p.Lossy() {
		return EncodedImage{}, fmt.Errorf("transcode: pass %s does not re-encode images", p)
	}

	b := src.Bounds()
	w, h := scaledSize(b.Dx(), p.Scale), scaledSize(b.Dy(), p.Scale)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.Quality}); err != nil {
		return EncodedImage{}, fmt.Errorf("transcode: %w", err)
	}

	return EncodedImage{Width: w, Height: h, Data: buf.Bytes()}, nil
}

// scaledSize divides a dimension, never going below one pixel.
func scaledSize(n, divisor int) int {
	if divisor <= 1 {
		return n
	}
	if n /= divisor; n < 1 {
		return 1
	}
	return n
}
