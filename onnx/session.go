// Package onnx wraps onnxruntime sessions that exchange planar tensors.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gomithril/inpaint/tensor"
	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
)

// Session is a loaded model. Runs on one Session are serialized.
type Session struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	inputs  []string
	outputs []string
}

// NewSession creates a session from the model bytes. Input and output names
// are read from the model. InitEnvironment must have succeeded.
func NewSession(modelData []byte, options Options) (*Session, error) {
	inputInfo, outputInfo, err := ort.GetInputOutputInfoWithONNXData(modelData)
	if err != nil {
		return nil, fmt.Errorf("failed to read model inputs and outputs: %w", err)
	}
	if len(outputInfo) == 0 {
		return nil, errors.New("model declares no outputs")
	}
	inputs := make([]string, len(inputInfo))
	for i, info := range inputInfo {
		inputs[i] = info.Name
	}
	outputs := make([]string, len(outputInfo))
	for i, info := range outputInfo {
		outputs[i] = info.Name
	}

	opts, err := options.sessionOptions()
	if err != nil {
		return nil, err
	}
	defer opts.Destroy()

	session, err := ort.NewDynamicAdvancedSessionWithONNXData(modelData, inputs, outputs, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic session: %w", err)
	}
	log.Info().
		Strs("inputs", inputs).
		Strs("outputs", outputs).
		Str("provider", options.ExecutionProvider).
		Msg("inference session created")

	return &Session{session: session, inputs: inputs, outputs: outputs}, nil
}

// InputNames returns the declared input names in model order.
func (s *Session) InputNames() []string { return append([]string(nil), s.inputs...) }

// OutputNames returns the declared output names in model order.
func (s *Session) OutputNames() []string { return append([]string(nil), s.outputs...) }

// prepareTensors orders feeds by the declared input names.
func (s *Session) prepareTensors(feeds map[string]*tensor.Uint8) (*ModelIO, error) {
	io := &ModelIO{}
	for _, name := range s.inputs {
		feed, ok := feeds[name]
		if !ok {
			io.Destroy()
			return nil, fmt.Errorf("missing feed for input %q", name)
		}
		if err := feed.Validate(); err != nil {
			io.Destroy()
			return nil, fmt.Errorf("input %q: %w", name, err)
		}
		value, err := ort.NewTensor(ort.NewShape(feed.Shape...), feed.Data)
		if err != nil {
			io.Destroy()
			return nil, fmt.Errorf("failed to create %s tensor: %w", name, err)
		}
		io.AddInput(value)
	}
	for range s.outputs {
		io.AddOutput(nil)
	}
	return io, nil
}

// Run binds feeds to inputs by name and returns the outputs by name. If
// ctx ends first Run returns ctx.Err(); the abandoned run keeps the session
// until onnxruntime returns, then its tensors are released.
func (s *Session) Run(ctx context.Context, feeds map[string]*tensor.Uint8) (map[string]*tensor.Float32, error) {
	io, err := s.prepareTensors(feeds)
	if err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.session == nil {
			done <- errors.New("session is closed")
			return
		}
		done <- s.session.Run(io.InputTensors, io.OutputTensors)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		go func() {
			<-done
			io.Destroy()
		}()
		return nil, ctx.Err()
	}
	defer io.Destroy()
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	results := make(map[string]*tensor.Float32, len(s.outputs))
	for i, name := range s.outputs {
		out, err := toFloat32(io.OutputTensors[i])
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", name, err)
		}
		results[name] = out
	}
	return results, nil
}

// toFloat32 copies an output value out of onnxruntime memory.
func toFloat32(value ort.Value) (*tensor.Float32, error) {
	switch t := value.(type) {
	case *ort.Tensor[float32]:
		data := append([]float32(nil), t.GetData()...)
		return &tensor.Float32{Shape: tensor.Shape(t.GetShape()), Data: data}, nil
	case *ort.Tensor[uint8]:
		src := t.GetData()
		data := make([]float32, len(src))
		for i, v := range src {
			data[i] = float32(v)
		}
		return &tensor.Float32{Shape: tensor.Shape(t.GetShape()), Data: data}, nil
	case nil:
		return nil, errors.New("no output from model")
	}
	return nil, fmt.Errorf("unsupported output tensor type %T", value)
}

// Close destroys the session after any in-flight run finishes.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return err
}
