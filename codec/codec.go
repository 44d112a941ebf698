// Package codec decodes image sources and encodes pipeline output.
package codec

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Source is an image reference that can be decoded.
type Source interface {
	Decode(ctx context.Context) (image.Image, error)
	String() string
}

// Parse picks a Source for ref: data URLs, http(s) URLs, otherwise a file
// path.
func Parse(ref string) Source {
	switch {
	case strings.HasPrefix(ref, "data:"):
		return DataURL(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return URL(ref)
	default:
		return File(ref)
	}
}

// File is an image file on disk.
type File string

func (f File) Decode(ctx context.Context) (image.Image, error) {
	if f == "" {
		return nil, errors.New("image path is empty")
	}
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, fmt.Errorf("failed to load image from %s: %w", f, err)
	}
	return decode(data, f.String())
}

func (f File) String() string { return string(f) }

// Bytes is an encoded image held in memory.
type Bytes []byte

func (b Bytes) Decode(ctx context.Context) (image.Image, error) {
	return decode(b, b.String())
}

func (b Bytes) String() string { return fmt.Sprintf("<%d bytes>", len(b)) }

// DataURL is a base64 data URL such as canvas.toDataURL() produces.
type DataURL string

func (d DataURL) Decode(ctx context.Context) (image.Image, error) {
	data, err := d.Bytes()
	if err != nil {
		return nil, err
	}
	return decode(data, d.String())
}

// Bytes returns the payload of the data URL.
func (d DataURL) Bytes() ([]byte, error) {
	s := string(d)
	if !strings.HasPrefix(s, "data:") {
		return nil, fmt.Errorf("failed to load image from %s: not a data URL", d)
	}
	meta, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return nil, fmt.Errorf("failed to load image from %s: missing payload", d)
	}
	if !strings.HasSuffix(meta, ";base64") {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to load image from %s: %w", d, err)
		}
		return []byte(unescaped), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to load image from %s: %w", d, err)
	}
	return data, nil
}

func (d DataURL) String() string {
	s := string(d)
	if len(s) > 48 {
		return s[:48] + "..."
	}
	return s
}

// URL is an image fetched over HTTP.
type URL string

func (u URL) Decode(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, string(u), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load image from %s: %w", u, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to load image from %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to load image from %s: %s", u, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to load image from %s: %w", u, err)
	}
	return decode(data, u.String())
}

func (u URL) String() string { return string(u) }

// Decoded wraps an image that is already decoded.
func Decoded(img image.Image) Source { return decoded{img} }

type decoded struct{ img image.Image }

func (d decoded) Decode(ctx context.Context) (image.Image, error) {
	if d.img == nil {
		return nil, errors.New("decoded image is nil")
	}
	return d.img, nil
}

func (d decoded) String() string {
	if d.img == nil {
		return "<nil image>"
	}
	return fmt.Sprintf("<image %v>", d.img.Bounds().Size())
}

func decode(data []byte, name string) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to load image from %s: %w", name, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("failed to load image from %s: empty image", name)
	}
	return img, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// ToDataURL returns data as a base64 data URL of the given MIME type.
func ToDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
