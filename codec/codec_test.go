package codec

import (
	"context"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func checker(t *testing.T) (image.Image, []byte) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	img.SetNRGBA(2, 1, color.NRGBA{0, 0, 255, 255})
	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	return img, data
}

func TestParse(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"data:image/png;base64,AAAA", "codec.DataURL"},
		{"https://example.com/a.png", "codec.URL"},
		{"http://example.com/a.png", "codec.URL"},
		{"mask.png", "codec.File"},
	}
	for _, tc := range tests {
		got := typeName(Parse(tc.ref))
		if got != tc.want {
			t.Errorf("Parse(%q): expected %s, got %s", tc.ref, tc.want, got)
		}
	}
}

func typeName(s Source) string {
	switch s.(type) {
	case DataURL:
		return "codec.DataURL"
	case URL:
		return "codec.URL"
	case File:
		return "codec.File"
	}
	return "unknown"
}

func TestDataURLRoundTrip(t *testing.T) {
	_, data := checker(t)
	src := DataURL(ToDataURL("image/png", data))

	img, err := src.Decode(context.Background())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("expected 3x2, got %v", img.Bounds())
	}
	r, _, _, _ := img.At(0, 0).RGBA()
	if r>>8 != 255 {
		t.Errorf("expected red at origin, got r=%d", r>>8)
	}
}

func TestDataURLErrors(t *testing.T) {
	cases := []DataURL{
		"image/png;base64,AAAA",
		"data:image/png;base64",
		"data:image/png;base64,!!!",
		"data:image/png;base64,AAAA",
	}
	for _, c := range cases {
		if _, err := c.Decode(context.Background()); err == nil {
			t.Errorf("expected error for %q", c)
		}
	}
}

func TestFileDecode(t *testing.T) {
	_, data := checker(t)
	path := filepath.Join(t.TempDir(), "img.png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	img, err := File(path).Decode(context.Background())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 3 {
		t.Errorf("expected width 3, got %d", img.Bounds().Dx())
	}

	_, err = File(filepath.Join(t.TempDir(), "missing.png")).Decode(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing.png") {
		t.Errorf("expected error naming the file, got %v", err)
	}
}

func TestURLDecode(t *testing.T) {
	_, data := checker(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	img, err := URL(srv.URL + "/img.png").Decode(context.Background())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dy() != 2 {
		t.Errorf("expected height 2, got %d", img.Bounds().Dy())
	}

	_, err = URL(srv.URL + "/missing.png").Decode(context.Background())
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected 404 error, got %v", err)
	}
}

func TestBytesRejectsGarbage(t *testing.T) {
	if _, err := Bytes("not an image").Decode(context.Background()); err == nil {
		t.Error("expected error for garbage bytes")
	}
}

func TestDecodedNil(t *testing.T) {
	if _, err := Decoded(nil).Decode(context.Background()); err == nil {
		t.Error("expected error for nil image")
	}
}
