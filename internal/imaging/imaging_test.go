package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int, transparent bool) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	c := color.NRGBA{R: 200, G: 80, B: 90, A: 255}
	if transparent {
		c.A = 0
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestOptimalOptions(t *testing.T) {
	require.Equal(t, Options{1024, 1024, 0.75}, OptimalOptions(6*MB))
	require.Equal(t, Options{1200, 1200, 0.8}, OptimalOptions(3*MB))
	require.Equal(t, Options{1400, 1400, 0.9}, OptimalOptions(2*MB))
	require.Equal(t, Options{1400, 1400, 0.9}, OptimalOptions(100))
}

func TestOptionsForConnection(t *testing.T) {
	require.Equal(t, Options{800, 800, 0.7}, OptionsForConnection(100, "2g"))
	require.Equal(t, Options{800, 800, 0.7}, OptionsForConnection(100, "slow-2g"))
	require.Equal(t, Options{1024, 1024, 0.8}, OptionsForConnection(100, "3g"))
	require.Equal(t, OptimalOptions(6*MB), OptionsForConnection(6*MB, "4g"))
}

func TestNeedsCompression(t *testing.T) {
	require.False(t, NeedsCompression(MB, 1))
	require.True(t, NeedsCompression(MB+1, 1))
	require.True(t, NeedsCompression(600*1024, 0.5))
}

func TestFormatFileSize(t *testing.T) {
	cases := map[int64]string{
		0:                    "0 Bytes",
		500:                  "500 Bytes",
		1024:                 "1 KB",
		1536:                 "1.5 KB",
		MB + MB/2:            "1.5 MB",
		3 * 1024 * MB:        "3 GB",
		1234567:              "1.18 MB",
		5 * 1024 * 1024 * MB: "5120 GB",
	}
	for in, want := range cases {
		require.Equal(t, want, FormatFileSize(in), in)
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate("image/png", 1024))
	require.NoError(t, Validate("image/jpeg", MaxImageSize))
	require.EqualError(t, Validate("application/pdf", 10), "Please select a valid image file (JPG, PNG, etc.)")
	require.EqualError(t, Validate("image/jpeg", MaxImageSize+1), "Image size should be less than 10MB")
}

func TestDecodeDataURL(t *testing.T) {
	raw := []byte("hello tongue")
	url := EncodeDataURL("image/png", raw)

	data, mime, err := DecodeDataURL(url)
	require.NoError(t, err)
	require.Equal(t, raw, data)
	require.Equal(t, "image/png", mime)

	data, mime, err = DecodeDataURL(StripDataURLPrefix(url))
	require.NoError(t, err)
	require.Equal(t, raw, data)
	require.Equal(t, "image/jpeg", mime)

	// unpadded payloads are accepted
	data, _, err = DecodeDataURL("aGk")
	require.NoError(t, err)
	require.Equal(t, []byte("hi"), data)

	_, _, err = DecodeDataURL("data:image/png;base64,!!!")
	require.Error(t, err)
	_, _, err = DecodeDataURL("data:image/png")
	require.Error(t, err)
}

func TestFit(t *testing.T) {
	w, h := Fit(4000, 3000, 1200, 1200)
	require.Equal(t, 1200, w)
	require.Equal(t, 900, h)

	w, h = Fit(800, 600, 1200, 1200)
	require.Equal(t, 800, w)
	require.Equal(t, 600, h)

	w, h = Fit(10000, 1, 100, 100)
	require.Equal(t, 100, w)
	require.Equal(t, 1, h)
}

func TestCompress_ResizesToJPEG(t *testing.T) {
	res, err := Compress(pngBytes(t, 300, 150, false), Options{MaxWidth: 100, MaxHeight: 100, Quality: 0.8})
	require.NoError(t, err)
	require.Equal(t, 100, res.Width)
	require.Equal(t, 50, res.Height)
	require.Equal(t, len(res.Data), res.CompressedSize)

	img, err := jpeg.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	require.Equal(t, 100, img.Bounds().Dx())
}

func TestCompress_TransparentBecomesWhite(t *testing.T) {
	res, err := Compress(pngBytes(t, 20, 20, true), Options{})
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	r, g, b, _ := img.At(10, 10).RGBA()
	require.Greater(t, r>>8, uint32(240))
	require.Greater(t, g>>8, uint32(240))
	require.Greater(t, b>>8, uint32(240))
}

func TestCompress_RejectsGarbage(t *testing.T) {
	_, err := Compress([]byte("not an image"), DefaultOptions)
	require.Error(t, err)
}
