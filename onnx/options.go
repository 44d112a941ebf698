package onnx

import (
	"fmt"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

// Execution providers.
const (
	ProviderCPU      = "cpu"
	ProviderCUDA     = "cuda"
	ProviderCoreML   = "coreml"
	ProviderDirectML = "directml"
)

// Options are passed through to the onnxruntime session.
type Options struct {
	// ExecutionProvider is one of cpu, cuda, coreml or directml.
	ExecutionProvider string
	// OptimizationLevel is one of disable, basic, extended or all.
	OptimizationLevel string
	// IntraOpThreads is the intra-op thread count; 0 leaves the runtime default.
	IntraOpThreads int
	// DeviceID selects the GPU for cuda and directml.
	DeviceID int
}

// DefaultOptions runs on the CPU with every graph optimization enabled.
func DefaultOptions() Options {
	return Options{
		ExecutionProvider: ProviderCPU,
		OptimizationLevel: "all",
	}
}

func parseOptimizationLevel(s string) (ort.GraphOptimizationLevel, error) {
	switch strings.ToLower(s) {
	case "disable", "none":
		return ort.GraphOptimizationLevelDisableAll, nil
	case "basic":
		return ort.GraphOptimizationLevelEnableBasic, nil
	case "extended":
		return ort.GraphOptimizationLevelEnableExtended, nil
	case "all", "":
		return ort.GraphOptimizationLevelEnableAll, nil
	}
	return 0, fmt.Errorf("unknown graph optimization level %q", s)
}

// Validate reports option values the runtime would not understand.
func (o Options) Validate() error {
	switch strings.ToLower(o.ExecutionProvider) {
	case "", ProviderCPU, ProviderCUDA, ProviderCoreML, ProviderDirectML:
	default:
		return fmt.Errorf("unknown execution provider %q", o.ExecutionProvider)
	}
	if _, err := parseOptimizationLevel(o.OptimizationLevel); err != nil {
		return err
	}
	if o.IntraOpThreads < 0 {
		return fmt.Errorf("intra-op threads must not be negative, got %d", o.IntraOpThreads)
	}
	return nil
}

// sessionOptions builds onnxruntime session options. The caller destroys them.
func (o Options) sessionOptions() (*ort.SessionOptions, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	level, _ := parseOptimizationLevel(o.OptimizationLevel)

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	if err := opts.SetGraphOptimizationLevel(level); err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("failed to set graph optimization level: %w", err)
	}
	if o.IntraOpThreads > 0 {
		if err := opts.SetIntraOpNumThreads(o.IntraOpThreads); err != nil {
			opts.Destroy()
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
	}
	if err := o.appendProvider(opts); err != nil {
		opts.Destroy()
		return nil, err
	}
	return opts, nil
}

func (o Options) appendProvider(opts *ort.SessionOptions) error {
	switch strings.ToLower(o.ExecutionProvider) {
	case ProviderCUDA:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return fmt.Errorf("failed to create CUDA options: %w", err)
		}
		defer cuda.Destroy()
		if err := cuda.Update(map[string]string{"device_id": fmt.Sprint(o.DeviceID)}); err != nil {
			return fmt.Errorf("failed to configure CUDA: %w", err)
		}
		if err := opts.AppendExecutionProviderCUDA(cuda); err != nil {
			return fmt.Errorf("failed to enable CUDA: %w", err)
		}
	case ProviderCoreML:
		if err := opts.AppendExecutionProviderCoreML(0); err != nil {
			return fmt.Errorf("failed to enable CoreML: %w", err)
		}
	case ProviderDirectML:
		if err := opts.AppendExecutionProviderDirectML(o.DeviceID); err != nil {
			return fmt.Errorf("failed to enable DirectML: %w", err)
		}
	}
	return nil
}
