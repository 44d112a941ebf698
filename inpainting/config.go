package inpainting

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gomithril/inpaint/onnx"
)

// Config holds inpainting service configuration
type Config struct {
	// ModelLocation is a file path or http(s) URL of the ONNX model.
	ModelLocation string
	// RuntimePath is the onnxruntime shared library; empty uses the
	// platform default name.
	RuntimePath string
	Session     onnx.Options
	// LoadTimeout bounds model fetch and session creation. Zero disables it.
	LoadTimeout time.Duration
	// InferenceTimeout bounds one model run. Zero disables it.
	InferenceTimeout time.Duration
	// RejectConcurrent makes Inpaint fail with ErrBusy instead of waiting
	// while another call holds the session.
	RejectConcurrent bool
}

// DefaultConfig returns default inpainting configuration
func DefaultConfig() *Config {
	return &Config{
		ModelLocation:    "models/inpaint.onnx",
		Session:          onnx.DefaultOptions(),
		LoadTimeout:      5 * time.Minute,
		InferenceTimeout: 2 * time.Minute,
	}
}

// ConfigFromEnv starts from DefaultConfig and applies MODEL_LOCATION,
// ONNX_RUNTIME, EXECUTION_PROVIDER, GRAPH_OPTIMIZATION, INTRA_OP_THREADS,
// DEVICE_ID, LOAD_TIMEOUT, INFERENCE_TIMEOUT and REJECT_CONCURRENT.
func ConfigFromEnv() (*Config, error) {
	config := DefaultConfig()
	if v := os.Getenv("MODEL_LOCATION"); v != "" {
		config.ModelLocation = v
	}
	config.RuntimePath = os.Getenv("ONNX_RUNTIME")
	if v := os.Getenv("EXECUTION_PROVIDER"); v != "" {
		config.Session.ExecutionProvider = v
	}
	if v := os.Getenv("GRAPH_OPTIMIZATION"); v != "" {
		config.Session.OptimizationLevel = v
	}

	var err error
	if config.Session.IntraOpThreads, err = envInt("INTRA_OP_THREADS", config.Session.IntraOpThreads); err != nil {
		return nil, err
	}
	if config.Session.DeviceID, err = envInt("DEVICE_ID", config.Session.DeviceID); err != nil {
		return nil, err
	}
	if config.LoadTimeout, err = envDuration("LOAD_TIMEOUT", config.LoadTimeout); err != nil {
		return nil, err
	}
	if config.InferenceTimeout, err = envDuration("INFERENCE_TIMEOUT", config.InferenceTimeout); err != nil {
		return nil, err
	}
	if v := os.Getenv("REJECT_CONCURRENT"); v != "" {
		if config.RejectConcurrent, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("invalid REJECT_CONCURRENT %q: %w", v, err)
		}
	}

	if err := config.Session.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
