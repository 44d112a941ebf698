package tensor

import (
	"image"
	"image/draw"
)

// Converter produces image and mask tensors without OpenCV.
type Converter struct{}

// ImageTensor returns the [1,3,H,W] tensor of img with alpha dropped.
func (Converter) ImageTensor(img image.Image) (*Uint8, error) {
	pix, w, h := NRGBA(img)
	return FromInterleaved(pix, h, w, 4, 3)
}

// MaskTensor converts mask to gray and builds the [1,1,H,W] mask tensor.
func (Converter) MaskTensor(mask image.Image) (*Uint8, error) {
	pix, w, h := NRGBA(mask)
	gray := make([]byte, w*h)
	for i := range gray {
		gray[i] = Luma(pix[i*4], pix[i*4+1], pix[i*4+2])
	}
	return MaskFromGray(gray, h, w)
}

// Luma weights R, G and B as 0.299, 0.587 and 0.114, in the 14-bit fixed
// point OpenCV uses for RGB to gray. Alpha is ignored.
func Luma(r, g, b uint8) uint8 {
	return uint8((4899*uint32(r) + 9617*uint32(g) + 1868*uint32(b) + 1<<13) >> 14)
}

// NRGBA returns the tightly packed, non-premultiplied RGBA samples of img.
func NRGBA(img image.Image) (pix []byte, width, height int) {
	b := img.Bounds()
	width, height = b.Dx(), b.Dy()
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*width {
		return n.Pix[:4*width*height], width, height
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst.Pix, width, height
}
