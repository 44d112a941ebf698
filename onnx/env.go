package onnx

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	envOnce sync.Once
	envErr  error
)

// InitEnvironment loads the onnxruntime shared library and initializes the
// process-wide environment. Only the first call does any work; its outcome
// is returned to every later caller.
func InitEnvironment(libraryPath string) error {
	envOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			envErr = fmt.Errorf("failed to init ONNX env: %w", err)
			return
		}
		log.Debug().Str("library", libraryPath).Msg("ONNX runtime environment initialized")
	})
	return envErr
}

// DestroyEnvironment releases the environment. Call it once at exit.
func DestroyEnvironment() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}
