// Package tensor holds the planar (channel-major) buffers exchanged with the
// inference runtime and the layout conversions between them and images.
package tensor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrShape is returned when a buffer does not match its declared shape.
var ErrShape = errors.New("tensor shape mismatch")

// Shape describes a tensor as [batch, channels, height, width].
type Shape []int64

// NewShape returns the [1, c, h, w] shape used for single images.
func NewShape(channels, height, width int) Shape {
	return Shape{1, int64(channels), int64(height), int64(width)}
}

// Elements returns the number of samples a buffer of this shape holds.
func (s Shape) Elements() int64 {
	if len(s) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range s {
		n *= d
	}
	return n
}

// Dims returns channels, height and width of a 4-D shape.
func (s Shape) Dims() (c, h, w int, err error) {
	if len(s) != 4 || s[0] != 1 {
		return 0, 0, 0, fmt.Errorf("%w: expected [1,C,H,W], got %s", ErrShape, s)
	}
	return int(s[1]), int(s[2]), int(s[3]), nil
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = fmt.Sprint(d)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Uint8 is a planar 8-bit tensor.
type Uint8 struct {
	Shape Shape
	Data  []uint8
}

// Validate checks that Data holds exactly Shape.Elements() samples.
func (t *Uint8) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil tensor", ErrShape)
	}
	if int64(len(t.Data)) != t.Shape.Elements() {
		return fmt.Errorf("%w: shape %s needs %d samples, got %d",
			ErrShape, t.Shape, t.Shape.Elements(), len(t.Data))
	}
	return nil
}

// Float32 is a planar floating-point tensor, as produced by the model.
type Float32 struct {
	Shape Shape
	Data  []float32
}

// Validate checks that Data holds exactly Shape.Elements() samples.
func (t *Float32) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil tensor", ErrShape)
	}
	if int64(len(t.Data)) != t.Shape.Elements() {
		return fmt.Errorf("%w: shape %s needs %d samples, got %d",
			ErrShape, t.Shape, t.Shape.Elements(), len(t.Data))
	}
	return nil
}
