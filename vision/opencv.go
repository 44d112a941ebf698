// Package vision converts images to model tensors with OpenCV.
package vision

import (
	"fmt"
	"image"

	"github.com/gomithril/inpaint/tensor"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// OpenCV implements the image and mask conversions with gocv. Every Mat it
// allocates is closed before returning.
type OpenCV struct{}

// ImageTensor converts img to RGB and splits it into a [1,3,H,W] tensor.
func (OpenCV) ImageTensor(img image.Image) (*tensor.Uint8, error) {
	src, err := rgbaMat(img)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	rgb := gocv.NewMat()
	defer rgb.Close()
	if err := gocv.CvtColor(src, &rgb, gocv.ColorRGBAToRGB); err != nil {
		return nil, fmt.Errorf("failed to convert image to RGB: %w", err)
	}

	channels := gocv.Split(rgb)
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()

	planes := make([][]byte, len(channels))
	for i, ch := range channels {
		planes[i] = ch.ToBytes()
	}
	log.Debug().
		Int("width", rgb.Cols()).
		Int("height", rgb.Rows()).
		Int("channels", len(planes)).
		Msg("split image into planes")
	return tensor.FromPlanes(planes, rgb.Rows(), rgb.Cols())
}

// MaskTensor converts an aligned mask to gray and builds the [1,1,H,W]
// mask tensor.
func (OpenCV) MaskTensor(mask image.Image) (*tensor.Uint8, error) {
	src, err := rgbaMat(mask)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(src, &gray, gocv.ColorRGBAToGray); err != nil {
		return nil, fmt.Errorf("failed to convert mask to gray: %w", err)
	}
	return tensor.MaskFromGray(gray.ToBytes(), gray.Rows(), gray.Cols())
}

// rgbaMat copies img into a CV_8UC4 Mat in R, G, B, A order.
func rgbaMat(img image.Image) (gocv.Mat, error) {
	pix, w, h := tensor.NRGBA(img)
	if w <= 0 || h <= 0 {
		return gocv.Mat{}, fmt.Errorf("invalid image dimensions: %dx%d", w, h)
	}
	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to create image matrix: %w", err)
	}
	return mat, nil
}
