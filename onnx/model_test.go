package onnx

import "testing"

func TestModelIODestroySkipsUnallocatedOutputs(t *testing.T) {
	io := &ModelIO{}
	io.AddOutput(nil)
	io.AddOutput(nil)
	if len(io.OutputTensors) != 2 {
		t.Fatalf("expected 2 output slots, got %d", len(io.OutputTensors))
	}
	if err := io.Destroy(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}
