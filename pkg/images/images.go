// Package images transforms page images for serving and derives cover
// thumbnails.
package images

import (
	"bytes"
	"image"
	"path"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	// Register decoders for formats imaging doesn't cover. WebP is
	// decode-only upstream; encoding goes through chai2010/webp.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// maxDimension is the longest edge served after a transcode. Pages
	// larger than this get fitted down before re-encoding.
	maxDimension = 2560

	// transcodeByteThreshold is the size at which a page counts as "large"
	// for TranscodeIfLarge even when its dimensions are within bounds.
	transcodeByteThreshold = 2 * 1024 * 1024

	webpQuality = 75
	jpegQuality = 85

	thumbnailWidth   = 400
	thumbnailHeight  = 600
	thumbnailQuality = 85
)

// Options selects the transformations applied to a page before serving.
type Options struct {
	Sharpen          bool
	Grayscale        bool
	TranscodeIfLarge bool
}

func (o Options) any() bool {
	return o.Sharpen || o.Grayscale || o.TranscodeIfLarge
}

// GetPage returns the bytes to serve for a page, their mime type, and
// whether the requested transformation was applied. With no options set the
// raw bytes pass through untouched. On decode or encode failure the original
// bytes come back with ok=false so the caller can still serve the page but
// skip long-lived caching.
func GetPage(raw []byte, name string, opts Options) ([]byte, string, bool) {
	mime := MimeFromName(name)

	if !opts.any() {
		return raw, mime, true
	}

	sourceWebP := mime == "image/webp"

	// A WebP source is never re-encoded just for size: it's already in the
	// target format, so a bare TranscodeIfLarge is a no-op for it.
	if sourceWebP && !opts.Sharpen && !opts.Grayscale {
		return raw, mime, true
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return raw, mime, false
	}

	transcode := false
	if opts.TranscodeIfLarge {
		bounds := img.Bounds()
		oversized := bounds.Dx() > maxDimension || bounds.Dy() > maxDimension
		transcode = oversized || len(raw) > transcodeByteThreshold
		if !transcode && !opts.Sharpen && !opts.Grayscale {
			return raw, mime, true
		}
		if oversized {
			img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
		}
	}

	if opts.Grayscale {
		img = imaging.Grayscale(img)
	}
	if opts.Sharpen {
		// Sigma 2 approximates an unsharp mask with a 2px radius.
		img = imaging.Sharpen(img, 2.0)
	}

	var buf bytes.Buffer
	if transcode || sourceWebP {
		err = webp.Encode(&buf, img, &webp.Options{Quality: webpQuality})
		if err != nil {
			return raw, mime, false
		}
		return buf.Bytes(), "image/webp", true
	}

	err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	if err != nil {
		return raw, mime, false
	}
	return buf.Bytes(), "image/jpeg", true
}

// DecodeCover decodes raw page bytes into an image for palette extraction.
func DecodeCover(raw []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return img, nil
}

// EncodeThumbnail scales a cover down to fit the thumbnail box and encodes
// it as WebP. Images already within the box are encoded as-is, never
// upscaled.
func EncodeThumbnail(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	if bounds.Dx() > thumbnailWidth || bounds.Dy() > thumbnailHeight {
		img = imaging.Fit(img, thumbnailWidth, thumbnailHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	err := webp.Encode(&buf, img, &webp.Options{Quality: thumbnailQuality})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}

// MimeFromName maps a page entry's extension to its mime type.
func MimeFromName(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tiff":
		return "image/tiff"
	default:
		// Anything else is assumed to be JPEG, the overwhelmingly common
		// page format.
		return "image/jpeg"
	}
}
