package inpainting

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gomithril/inpaint/canvas"
	"github.com/gomithril/inpaint/codec"
	"github.com/gomithril/inpaint/onnx"
	"github.com/gomithril/inpaint/tensor"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Session runs the inpainting model. *onnx.Session implements it.
type Session interface {
	InputNames() []string
	OutputNames() []string
	Run(ctx context.Context, feeds map[string]*tensor.Uint8) (map[string]*tensor.Float32, error)
	Close() error
}

// Vision converts decoded images into model tensors. tensor.Converter and
// vision.OpenCV implement it.
type Vision interface {
	ImageTensor(img image.Image) (*tensor.Uint8, error)
	MaskTensor(mask image.Image) (*tensor.Uint8, error)
}

// Loader creates a session, reporting model download progress.
type Loader func(ctx context.Context, progress onnx.ProgressFunc) (Session, error)

// ONNXLoader fetches the configured model and opens it with onnxruntime.
func ONNXLoader(config *Config) Loader {
	return func(ctx context.Context, progress onnx.ProgressFunc) (Session, error) {
		if err := onnx.InitEnvironment(config.RuntimePath); err != nil {
			return nil, err
		}
		data, err := onnx.FetchModel(ctx, config.ModelLocation, progress)
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return onnx.NewSession(data, config.Session)
	}
}

type state int

const (
	stateUninitialized state = iota
	stateInitializing
	stateReady
	stateFailed
)

// initCall is one load attempt, shared by every caller that waits on it.
type initCall struct {
	done    chan struct{}
	session Session
	err     error
}

// Service handles inpainting operations
type Service struct {
	config *Config
	load   Loader
	vision Vision

	mu      sync.Mutex
	state   state
	call    *initCall
	session Session

	// gate admits one Inpaint call at a time.
	gate chan struct{}
}

// Option customizes a Service.
type Option func(*Service)

// WithLoader replaces the onnxruntime loader.
func WithLoader(l Loader) Option {
	return func(s *Service) { s.load = l }
}

// WithVision replaces the pure-Go tensor converter.
func WithVision(v Vision) Option {
	return func(s *Service) { s.vision = v }
}

// NewService creates a new inpainting service. No model is loaded until
// Init is called.
func NewService(config *Config, opts ...Option) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	s := &Service{
		config: config,
		vision: tensor.Converter{},
		gate:   make(chan struct{}, 1),
	}
	s.load = ONNXLoader(config)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init loads the model once. Callers arriving while a load is in flight
// wait for that load and share its outcome. After a failure Init starts a
// new attempt; nothing else retries. The load runs under LoadTimeout and
// is not cancelled by ctx, which only bounds this caller's wait.
func (s *Service) Init(ctx context.Context, progress onnx.ProgressFunc) error {
	s.mu.Lock()
	switch s.state {
	case stateReady:
		s.mu.Unlock()
		return nil
	case stateInitializing:
		call := s.call
		s.mu.Unlock()
		return wait(ctx, call)
	}

	call := &initCall{done: make(chan struct{})}
	s.call = call
	s.state = stateInitializing
	s.mu.Unlock()

	go s.initialize(call, progress)
	return wait(ctx, call)
}

func (s *Service) initialize(call *initCall, progress onnx.ProgressFunc) {
	ctx := context.Background()
	if s.config.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.LoadTimeout)
		defer cancel()
	}

	start := time.Now()
	log.Info().Str("model", s.config.ModelLocation).Msg("loading inpaint model")
	session, err := s.load(ctx, progress)
	if err == nil && session == nil {
		err = errors.New("loader returned no session")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(call.done)

	if s.call != call {
		// Close ran while loading.
		if session != nil {
			session.Close()
		}
		call.err = ErrClosed
		return
	}
	if err != nil {
		call.err = fmt.Errorf("failed to initialize inpaint session: %w", err)
		s.state = stateFailed
		log.Error().Err(err).Str("model", s.config.ModelLocation).Msg("inpaint model failed to load")
		return
	}
	call.session = session
	s.session = session
	s.state = stateReady
	log.Info().
		Str("model", s.config.ModelLocation).
		Dur("elapsed", time.Since(start)).
		Msg("inpaint model ready")
}

func wait(ctx context.Context, call *initCall) error {
	select {
	case <-call.done:
		return call.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// acquire returns the ready session, waiting for an in-flight load.
func (s *Service) acquire(ctx context.Context) (Session, error) {
	for {
		s.mu.Lock()
		st, call, session := s.state, s.call, s.session
		s.mu.Unlock()

		switch st {
		case stateReady:
			return session, nil
		case stateFailed:
			return nil, call.err
		case stateUninitialized:
			return nil, ErrNotInitialized
		}
		if err := wait(ctx, call); err != nil {
			return nil, err
		}
	}
}

// Result is the output of one Inpaint call.
type Result struct {
	Image *image.NRGBA
	PNG   []byte
}

// DataURL returns the PNG as a data URL.
func (r *Result) DataURL() string {
	return codec.ToDataURL("image/png", r.PNG)
}

// Inpaint fills the region of img where mask is black. Init must have been
// called. Any failure aborts the call; no partial result is returned.
func (s *Service) Inpaint(ctx context.Context, img, mask codec.Source) (*Result, error) {
	session, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}

	if s.config.RejectConcurrent {
		select {
		case s.gate <- struct{}{}:
		default:
			return nil, ErrBusy
		}
	} else {
		select {
		case s.gate <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	defer func() { <-s.gate }()

	start := time.Now()
	original, marks, err := decodePair(ctx, img, mask)
	if err != nil {
		return nil, err
	}
	bounds := original.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	log.Debug().Int("width", width).Int("height", height).Msg("decoded image and mask")

	aligned, err := canvas.Align(marks, width, height)
	if err != nil {
		return nil, stageErr(StageAlign, mask.String(), err)
	}

	imageTensor, err := s.vision.ImageTensor(original)
	if err != nil {
		return nil, stageErr(StageConvert, img.String(), err)
	}
	maskTensor, err := s.vision.MaskTensor(aligned)
	if err != nil {
		return nil, stageErr(StageConvert, mask.String(), err)
	}

	output, err := s.infer(ctx, session, imageTensor, maskTensor)
	if err != nil {
		return nil, stageErr(StageInfer, "", err)
	}

	if err := output.Validate(); err != nil {
		return nil, stageErr(StagePostprocess, "", err)
	}
	if _, h, w, err := output.Shape.Dims(); err != nil || h != height || w != width {
		if err == nil {
			err = fmt.Errorf("%w: output %s does not match image %dx%d", tensor.ErrShape, output.Shape, width, height)
		}
		return nil, stageErr(StagePostprocess, "", err)
	}
	result, err := tensor.ToImage(output)
	if err != nil {
		return nil, stageErr(StagePostprocess, "", err)
	}

	encoded, err := codec.EncodePNG(result)
	if err != nil {
		return nil, stageErr(StageEncode, "", err)
	}
	log.Info().
		Int("width", width).
		Int("height", height).
		Dur("elapsed", time.Since(start)).
		Msg("inpaint completed")
	return &Result{Image: result, PNG: encoded}, nil
}

// decodePair decodes the image and the mask concurrently. The first failure
// cancels the other decode.
func decodePair(ctx context.Context, img, mask codec.Source) (image.Image, image.Image, error) {
	var original, marks image.Image
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if original, err = img.Decode(gctx); err != nil {
			return stageErr(StageDecode, img.String(), err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if marks, err = mask.Decode(gctx); err != nil {
			return stageErr(StageDecode, mask.String(), err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return original, marks, nil
}

// infer feeds the image to the first declared input and the mask to the
// second, and returns the first declared output.
func (s *Service) infer(ctx context.Context, session Session, img, mask *tensor.Uint8) (*tensor.Float32, error) {
	inputs := session.InputNames()
	outputs := session.OutputNames()
	if len(inputs) < 2 {
		return nil, fmt.Errorf("model declares %d inputs, expected image and mask", len(inputs))
	}
	if len(outputs) == 0 {
		return nil, errors.New("model declares no outputs")
	}

	if s.config.InferenceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.InferenceTimeout)
		defer cancel()
	}

	start := time.Now()
	results, err := session.Run(ctx, map[string]*tensor.Uint8{
		inputs[0]: img,
		inputs[1]: mask,
	})
	if err != nil {
		return nil, err
	}
	out, ok := results[outputs[0]]
	if !ok || out == nil {
		return nil, fmt.Errorf("model returned no %q output", outputs[0])
	}
	log.Debug().Str("output", outputs[0]).Str("shape", out.Shape.String()).
		Dur("elapsed", time.Since(start)).Msg("inference finished")
	return out, nil
}

// Close destroys the session and returns the service to its uninitialized
// state. Waiters of an in-flight load receive ErrClosed.
func (s *Service) Close() error {
	s.mu.Lock()
	session := s.session
	s.session = nil
	s.call = nil
	s.state = stateUninitialized
	s.mu.Unlock()

	if session != nil {
		return session.Close()
	}
	return nil
}
