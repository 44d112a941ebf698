package inpainting

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by Inpaint before Init has been called.
	ErrNotInitialized = errors.New("inpaint session not initialized, call Init first")
	// ErrBusy is returned when RejectConcurrent is set and a call is running.
	ErrBusy = errors.New("inference is already running")
	// ErrClosed is returned to waiters of an initialization that Close abandoned.
	ErrClosed = errors.New("inpaint service closed")
)

// Pipeline stages reported in StageError.
const (
	StageDecode      = "decode"
	StageAlign       = "align"
	StageConvert     = "convert"
	StageInfer       = "infer"
	StagePostprocess = "postprocess"
	StageEncode      = "encode"
)

// StageError reports the pipeline stage, and the input if any, that failed.
type StageError struct {
	Stage  string
	Source string
	Err    error
}

func (e *StageError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("inpaint %s %s: %v", e.Stage, e.Source, e.Err)
	}
	return fmt.Sprintf("inpaint %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage, source string, err error) error {
	return &StageError{Stage: stage, Source: source, Err: err}
}
