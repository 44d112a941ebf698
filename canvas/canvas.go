// Package canvas draws masks onto an offscreen surface of a target size.
package canvas

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// ErrNoContext is returned when a drawing surface cannot be created.
var ErrNoContext = errors.New("unable to get canvas context")

// Align draws mask scaled onto a width x height surface and returns the
// surface pixels. It runs even when the mask already has the target size,
// which normalizes the pixel format to 8-bit non-premultiplied RGBA.
// Fully transparent pixels come back as transparent black, as they do from
// a premultiplied surface, so they read as gray 0.
func Align(mask image.Image, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrNoContext, width, height)
	}
	if mask == nil || mask.Bounds().Empty() {
		return nil, errors.New("mask is empty")
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), mask, mask.Bounds(), draw.Src, nil)
	for i := 0; i < len(dst.Pix); i += 4 {
		if dst.Pix[i+3] == 0 {
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = 0, 0, 0
		}
	}
	return dst, nil
}
