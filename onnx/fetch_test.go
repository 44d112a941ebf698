package onnx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestFetchModelReportsProgress(t *testing.T) {
	payload := []byte(strings.Repeat("m", 64*1024))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		for i := 0; i < len(payload); i += 8 * 1024 {
			_, _ = w.Write(payload[i : i+8*1024])
			w.(http.Flusher).Flush()
		}
	}))
	defer srv.Close()

	var reports []float64
	data, err := FetchModel(context.Background(), srv.URL+"/inpaint.onnx", func(p float64) {
		reports = append(reports, p)
	})
	if err != nil {
		t.Fatalf("FetchModel: %v", err)
	}
	if len(data) != len(payload) {
		t.Fatalf("expected %d bytes, got %d", len(payload), len(data))
	}
	if len(reports) == 0 {
		t.Fatal("expected progress reports")
	}
	prev := 0.0
	for _, p := range reports {
		if p < prev || p < 0 || p > 100 {
			t.Fatalf("progress out of order or range: %v", reports)
		}
		prev = p
	}
	if last := reports[len(reports)-1]; last != 100 {
		t.Errorf("expected final progress 100, got %v", last)
	}
}

func TestFetchModelWithoutContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Flushing before the body is complete forces chunked encoding.
		_, _ = w.Write([]byte("part one "))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("part two"))
	}))
	defer srv.Close()

	called := false
	data, err := FetchModel(context.Background(), srv.URL, func(float64) { called = true })
	if err != nil {
		t.Fatalf("FetchModel: %v", err)
	}
	if string(data) != "part one part two" {
		t.Errorf("unexpected body %q", data)
	}
	if called {
		t.Error("expected no progress without Content-Length")
	}
}

func TestFetchModelHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := FetchModel(context.Background(), srv.URL+"/inpaint.onnx", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "/inpaint.onnx") || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected error naming URL and status, got %v", err)
	}
}

func TestFetchModelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.onnx")
	if err := os.WriteFile(path, []byte("onnx"), 0o644); err != nil {
		t.Fatal(err)
	}
	var last float64
	data, err := FetchModel(context.Background(), path, func(p float64) { last = p })
	if err != nil {
		t.Fatalf("FetchModel: %v", err)
	}
	if string(data) != "onnx" || last != 100 {
		t.Errorf("expected model bytes and 100%%, got %q and %v", data, last)
	}

	if _, err := FetchModel(context.Background(), "", nil); err == nil {
		t.Error("expected error for empty location")
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		opts    Options
		wantErr bool
	}{
		{DefaultOptions(), false},
		{Options{ExecutionProvider: "CUDA", OptimizationLevel: "basic"}, false},
		{Options{ExecutionProvider: "tpu"}, true},
		{Options{OptimizationLevel: "max"}, true},
		{Options{IntraOpThreads: -1}, true},
	}
	for _, tc := range tests {
		err := tc.opts.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%+v: expected error=%v, got %v", tc.opts, tc.wantErr, err)
		}
	}
}
