// Package imaging validates and shrinks uploaded tongue photos before they are
// sent to a vision model.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	MB           = 1024 * 1024
	MaxImageSize = 10 * MB
)

var (
	ErrNotImage = errors.New("Please select a valid image file (JPG, PNG, etc.)")
	ErrTooLarge = errors.New("Image size should be less than 10MB")
)

// Options controls Compress. Quality is in (0,1].
type Options struct {
	MaxWidth  int
	MaxHeight int
	Quality   float64
}

var DefaultOptions = Options{MaxWidth: 1200, MaxHeight: 1200, Quality: 0.85}

// OptimalOptions picks compression by input size: bigger files are squeezed harder.
func OptimalOptions(size int64) Options {
	sizeMB := float64(size) / MB
	switch {
	case sizeMB > 5:
		return Options{MaxWidth: 1024, MaxHeight: 1024, Quality: 0.75}
	case sizeMB > 2:
		return Options{MaxWidth: 1200, MaxHeight: 1200, Quality: 0.8}
	default:
		return Options{MaxWidth: 1400, MaxHeight: 1400, Quality: 0.9}
	}
}

// OptionsForConnection overrides OptimalOptions on slow mobile links.
func OptionsForConnection(size int64, connection string) Options {
	switch connection {
	case "2g", "slow-2g":
		return Options{MaxWidth: 800, MaxHeight: 800, Quality: 0.7}
	case "3g":
		return Options{MaxWidth: 1024, MaxHeight: 1024, Quality: 0.8}
	}
	return OptimalOptions(size)
}

// NeedsCompression reports size > maxMB megabytes.
func NeedsCompression(size int64, maxMB float64) bool {
	return float64(size) > maxMB*MB
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders bytes as e.g. "1.5 MB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := float64(bytes) / math.Pow(1024, float64(i))
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + " " + sizeUnits[i]
}

// Validate checks the declared mime type and the byte size.
func Validate(mime string, size int64) error {
	if !strings.HasPrefix(mime, "image/") {
		return ErrNotImage
	}
	if size > MaxImageSize {
		return ErrTooLarge
	}
	return nil
}

// StripDataURLPrefix removes a leading "data:<mime>;base64," if present.
func StripDataURLPrefix(s string) string {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}

// DecodeDataURL accepts a data URL or bare base64 and returns the bytes and
// the declared mime type. A bare payload reports "image/jpeg".
func DecodeDataURL(s string) ([]byte, string, error) {
	mime := "image/jpeg"
	if strings.HasPrefix(s, "data:") {
		head, _, ok := strings.Cut(s[len("data:"):], ",")
		if !ok {
			return nil, "", errors.New("malformed data URL")
		}
		if m, _, _ := strings.Cut(head, ";"); m != "" {
			mime = m
		}
	}
	payload := StripDataURLPrefix(s)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// some clients drop the padding
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", fmt.Errorf("decode base64 image: %w", err)
		}
	}
	return data, mime, nil
}

// EncodeDataURL is the inverse of DecodeDataURL.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Result is the output of Compress.
type Result struct {
	Data           []byte
	Width          int
	Height         int
	OriginalSize   int
	CompressedSize int
}

// Fit scales w x h down to fit inside maxW x maxH, keeping the aspect ratio.
// Images already inside the box are returned unchanged.
func Fit(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	ratio := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := int(math.Round(float64(w) * ratio))
	nh := int(math.Round(float64(h) * ratio))
	return max(nw, 1), max(nh, 1)
}

// Compress decodes data (JPEG, PNG, GIF or WebP), resizes it to fit opts and
// re-encodes it as JPEG over a white background.
func Compress(data []byte, opts Options) (*Result, error) {
	if opts.MaxWidth <= 0 || opts.MaxHeight <= 0 {
		opts.MaxWidth, opts.MaxHeight = DefaultOptions.MaxWidth, DefaultOptions.MaxHeight
	}
	if opts.Quality <= 0 || opts.Quality > 1 {
		opts.Quality = DefaultOptions.Quality
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	w, h := Fit(b.Dx(), b.Dy(), opts.MaxWidth, opts.MaxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	q := int(math.Round(opts.Quality * 100))
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: q}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return &Result{
		Data:           buf.Bytes(),
		Width:          w,
		Height:         h,
		OriginalSize:   len(data),
		CompressedSize: buf.Len(),
	}, nil
}
