package tensor

import (
	"fmt"
	"image"
	"math"
)

// FromPlanes concatenates per-channel planes of height*width samples into
// a [1, len(planes), height, width] tensor.
func FromPlanes(planes [][]byte, height, width int) (*Uint8, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrShape, width, height)
	}
	size := height * width
	data := make([]uint8, len(planes)*size)
	for c, plane := range planes {
		if len(plane) != size {
			return nil, fmt.Errorf("%w: plane %d has %d samples, expected %d",
				ErrShape, c, len(plane), size)
		}
		copy(data[c*size:(c+1)*size], plane)
	}
	return &Uint8{Shape: NewShape(len(planes), height, width), Data: data}, nil
}

// FromInterleaved splits an interleaved buffer of the given channel count
// into its first keep planes. Samples are copied unchanged.
func FromInterleaved(pix []byte, height, width, channels, keep int) (*Uint8, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrShape, width, height)
	}
	if keep <= 0 || keep > channels {
		return nil, fmt.Errorf("%w: cannot keep %d of %d channels", ErrShape, keep, channels)
	}
	size := height * width
	if len(pix) != size*channels {
		return nil, fmt.Errorf("%w: %dx%dx%d needs %d samples, got %d",
			ErrShape, width, height, channels, size*channels, len(pix))
	}
	data := make([]uint8, keep*size)
	for i := 0; i < size; i++ {
		for c := 0; c < keep; c++ {
			data[c*size+i] = pix[i*channels+c]
		}
	}
	return &Uint8{Shape: NewShape(keep, height, width), Data: data}, nil
}

// Interleave is the inverse of FromPlanes: it returns the samples in
// height, width, channel order.
func Interleave(t *Uint8) ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	channels, height, width, err := t.Shape.Dims()
	if err != nil {
		return nil, err
	}
	size := height * width
	pix := make([]byte, len(t.Data))
	for c := 0; c < channels; c++ {
		for i := 0; i < size; i++ {
			pix[i*channels+c] = t.Data[c*size+i]
		}
	}
	return pix, nil
}

// MaskFromGray builds the [1,1,H,W] mask tensor. A gray sample of 0 marks
// a pixel to inpaint and becomes 255; every other sample becomes 0.
func MaskFromGray(gray []byte, height, width int) (*Uint8, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrShape, width, height)
	}
	if len(gray) != height*width {
		return nil, fmt.Errorf("%w: mask has %d samples, expected %d",
			ErrShape, len(gray), height*width)
	}
	data := make([]uint8, len(gray))
	for i, v := range gray {
		if v == 0 {
			data[i] = 255
		}
	}
	return &Uint8{Shape: NewShape(1, height, width), Data: data}, nil
}

// ToImage converts a [1,C,H,W] model output (C >= 3) into an opaque image.
// Samples are clamped to [0, 255] and rounded half to even.
func ToImage(t *Float32) (*image.NRGBA, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	channels, height, width, err := t.Shape.Dims()
	if err != nil {
		return nil, err
	}
	if channels < 3 {
		return nil, fmt.Errorf("%w: output needs 3 channels, got %d", ErrShape, channels)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	size := height * width
	for h := 0; h < height; h++ {
		for w := 0; w < width; w++ {
			px := h*width + w
			off := h*img.Stride + w*4
			for c := 0; c < 3; c++ {
				img.Pix[off+c] = saturate(t.Data[c*size+px])
			}
			img.Pix[off+3] = 255
		}
	}
	return img, nil
}

func saturate(v float32) uint8 {
	switch {
	case math.IsNaN(float64(v)), v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.RoundToEven(float64(v)))
	}
}
