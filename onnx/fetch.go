package onnx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// ProgressFunc receives the percentage of the model received so far.
type ProgressFunc func(percent float64)

// FetchModel reads a model from a file path or an http(s) URL. For URLs,
// progress is reported as bytes arrive when the server sends a
// Content-Length; without one the model still loads, silently.
func FetchModel(ctx context.Context, location string, progress ProgressFunc) ([]byte, error) {
	if location == "" {
		return nil, fmt.Errorf("model location is empty")
	}
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("failed to read model %s: %w", location, err)
		}
		if progress != nil {
			progress(100)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch %s: %s", location, resp.Status)
	}

	var body io.Reader = resp.Body
	if progress != nil {
		if resp.ContentLength > 0 {
			body = &progressReader{r: resp.Body, total: resp.ContentLength, report: progress}
		} else {
			log.Warn().Str("model", location).Msg("Content-Length header not found, progress will not be available")
		}
	}

	var buf bytes.Buffer
	if resp.ContentLength > 0 {
		buf.Grow(int(resp.ContentLength))
	}
	if _, err := buf.ReadFrom(body); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
	}
	return buf.Bytes(), nil
}

type progressReader struct {
	r      io.Reader
	loaded int64
	total  int64
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		pct := float64(p.loaded) / float64(p.total) * 100
		if pct > 100 {
			pct = 100
		}
		p.report(pct)
	}
	return n, err
}
