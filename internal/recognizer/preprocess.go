package recognizer

import (
	"image"

	"golang.org/x/image/draw"
)

// Upscale resizes an image so its height is at least minHeight,
// preserving the aspect ratio. Images already tall enough pass through
// untouched.
func Upscale(img image.Image, minHeight int) image.Image {
	bounds := img.Bounds()
	height := bounds.Dy()
	if height == 0 || height >= minHeight {
		return img
	}

	scale := (minHeight + height - 1) / height
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx()*scale, height*scale))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
