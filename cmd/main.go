package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"

	"github.com/gomithril/inpaint"
	"github.com/gomithril/inpaint/codec"
	"github.com/gomithril/inpaint/inpainting"
	ilog "github.com/gomithril/inpaint/internal/log"
	"github.com/gomithril/inpaint/onnx"
	"github.com/gomithril/inpaint/tensor"
	"github.com/gomithril/inpaint/vision"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		os.Exit(1)
	}
	ilog.Init()

	imageRef := flag.String("image", "", "image to inpaint (path, URL or data URL)")
	maskRef := flag.String("mask", "", "mask, black where the image should be filled")
	out := flag.String("out", "out.png", "output PNG path")
	dataURL := flag.Bool("data-url", false, "print the result as a data URL instead of writing -out")
	model := flag.String("model", "", "model path or URL, overrides MODEL_LOCATION")
	backend := flag.String("vision", "opencv", "tensor conversion backend: opencv or go")
	flag.Parse()

	if *imageRef == "" || *maskRef == "" {
		flag.Usage()
		os.Exit(2)
	}

	config, err := inpainting.ConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if *model != "" {
		config.ModelLocation = *model
	}

	var converter inpainting.Vision
	switch *backend {
	case "opencv":
		converter = vision.OpenCV{}
	case "go":
		converter = tensor.Converter{}
	default:
		log.Fatal().Str("vision", *backend).Msg("Unknown vision backend")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	log.Info().Str("version", inpaint.Version).Str("vision", *backend).Msg("Starting inpaint")
	svc := inpainting.NewService(config, inpainting.WithVision(converter))
	err = run(ctx, svc, *imageRef, *maskRef, *out, *dataURL)
	stop()
	if cerr := svc.Close(); cerr != nil {
		log.Warn().Err(cerr).Msg("Failed to close inpaint session")
	}
	if derr := onnx.DestroyEnvironment(); derr != nil {
		log.Warn().Err(derr).Msg("Failed to destroy onnxruntime environment")
	}
	if err != nil {
		log.Error().Err(err).Msg("Inpaint failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, svc *inpainting.Service, imageRef, maskRef, out string, dataURL bool) error {
	last := -10.0
	err := svc.Init(ctx, func(p float64) {
		if p-last >= 10 || p == 100 {
			last = p
			log.Info().Float64("percent", p).Msg("Downloading model")
		}
	})
	if err != nil {
		return err
	}

	res, err := svc.Inpaint(ctx, codec.Parse(imageRef), codec.Parse(maskRef))
	if err != nil {
		return err
	}

	if dataURL {
		fmt.Println(res.DataURL())
		return nil
	}
	if err := os.WriteFile(out, res.PNG, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	log.Info().Str("path", out).Msg("Wrote inpainted image")
	return nil
}
