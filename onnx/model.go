package onnx

import (
	"errors"

	ort "github.com/yalue/onnxruntime_go"
)

// ModelIO holds the input and output values of one run, in the order of
// the session's declared names. Nil outputs are allocated by onnxruntime.
type ModelIO struct {
	InputTensors  []ort.Value
	OutputTensors []ort.Value
}

// AddInput appends an input value.
func (io *ModelIO) AddInput(tensor ort.Value) {
	io.InputTensors = append(io.InputTensors, tensor)
}

// AddOutput appends an output slot; pass nil to let onnxruntime allocate it.
func (io *ModelIO) AddOutput(tensor ort.Value) {
	io.OutputTensors = append(io.OutputTensors, tensor)
}

// Destroy releases every non-nil value.
func (io *ModelIO) Destroy() error {
	var errs []error
	for _, tensor := range io.InputTensors {
		if tensor != nil {
			errs = append(errs, tensor.Destroy())
		}
	}
	for _, tensor := range io.OutputTensors {
		if tensor != nil {
			errs = append(errs, tensor.Destroy())
		}
	}
	return errors.Join(errs...)
}
