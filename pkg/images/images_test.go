package images

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tankobooks/tanko/internal/testgen"
)

func TestGetPagePassthrough(t *testing.T) {
	raw := testgen.GenerateImage(t, "png", 100, 100, color.RGBA{200, 30, 30, 255})

	out, mime, ok := GetPage(raw, "001.png", Options{})
	assert.True(t, ok)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, raw, out)
}

func TestGetPageGrayscale(t *testing.T) {
	raw := testgen.GenerateImage(t, "png", 100, 100, color.RGBA{200, 30, 30, 255})

	out, mime, ok := GetPage(raw, "001.png", Options{Grayscale: true})
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", mime)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	// JPEG chroma subsampling can shift channels by a hair, so allow a
	// small delta instead of exact equality.
	r, g, b, _ := img.At(50, 50).RGBA()
	assert.InDelta(t, float64(r), float64(g), 1024)
	assert.InDelta(t, float64(g), float64(b), 1024)
}

func TestGetPageSharpen(t *testing.T) {
	raw := testgen.GenerateImage(t, "jpeg", 100, 100, color.RGBA{30, 30, 200, 255})

	out, mime, ok := GetPage(raw, "001.jpg", Options{Sharpen: true})
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", mime)
	assert.NotEqual(t, raw, out)
}

func TestGetPageTranscodeSmallImage(t *testing.T) {
	raw := testgen.GenerateImage(t, "png", 100, 100, color.RGBA{30, 30, 200, 255})

	// Within the size and dimension bounds, so nothing to do.
	out, mime, ok := GetPage(raw, "001.png", Options{TranscodeIfLarge: true})
	assert.True(t, ok)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, raw, out)
}

func TestGetPageTranscodeOversizedImage(t *testing.T) {
	raw := testgen.GenerateImage(t, "png", maxDimension+200, 100, color.RGBA{30, 30, 200, 255})

	out, mime, ok := GetPage(raw, "001.png", Options{TranscodeIfLarge: true})
	require.True(t, ok)
	assert.Equal(t, "image/webp", mime)

	img, err := webp.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.LessOrEqual(t, img.Bounds().Dx(), maxDimension)
}

func TestGetPageWebPSourceNotReencoded(t *testing.T) {
	img := imaging.New(100, 100, color.RGBA{30, 200, 30, 255})
	var buf bytes.Buffer
	require.NoError(t, webp.Encode(&buf, img, &webp.Options{Quality: 90}))
	raw := buf.Bytes()

	out, mime, ok := GetPage(raw, "001.webp", Options{TranscodeIfLarge: true})
	assert.True(t, ok)
	assert.Equal(t, "image/webp", mime)
	assert.Equal(t, raw, out)
}

func TestGetPageWebPSourceStaysWebP(t *testing.T) {
	img := imaging.New(100, 100, color.RGBA{200, 30, 30, 255})
	var buf bytes.Buffer
	require.NoError(t, webp.Encode(&buf, img, &webp.Options{Quality: 90}))

	out, mime, ok := GetPage(buf.Bytes(), "001.webp", Options{Grayscale: true})
	require.True(t, ok)
	assert.Equal(t, "image/webp", mime)
	assert.NotEqual(t, buf.Bytes(), out)
}

func TestGetPageUndecodableBytes(t *testing.T) {
	raw := []byte("not an image at all")

	out, mime, ok := GetPage(raw, "001.png", Options{Grayscale: true})
	assert.False(t, ok)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, raw, out)
}

func TestEncodeThumbnail(t *testing.T) {
	img := imaging.New(1200, 1800, color.RGBA{120, 40, 180, 255})

	out, err := EncodeThumbnail(img)
	require.NoError(t, err)

	thumb, err := webp.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.LessOrEqual(t, thumb.Bounds().Dx(), 400)
	assert.LessOrEqual(t, thumb.Bounds().Dy(), 600)
}

func TestEncodeThumbnailNoUpscale(t *testing.T) {
	img := imaging.New(200, 300, color.RGBA{120, 40, 180, 255})

	out, err := EncodeThumbnail(img)
	require.NoError(t, err)

	thumb, err := webp.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 200, thumb.Bounds().Dx())
	assert.Equal(t, 300, thumb.Bounds().Dy())
}

func TestMimeFromName(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"a.jpg", "image/jpeg"},
		{"a.JPEG", "image/jpeg"},
		{"a.png", "image/png"},
		{"a.webp", "image/webp"},
		{"a.gif", "image/gif"},
		{"a.bmp", "image/bmp"},
		{"a.tiff", "image/tiff"},
		{"a.bin", "image/jpeg"},
		{"noextension", "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MimeFromName(tt.name))
		})
	}
}
