// Package inpaint fills masked regions of images with an ONNX inpainting
// model. The pipeline lives in package inpainting; tensor, vision, canvas,
// codec and onnx hold its stages.
package inpaint

// Version of the library
const Version = "v0.1.0"
