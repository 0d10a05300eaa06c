// Package testgen generates comic archive fixtures with configurable page
// lists and images for tests.
package testgen

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// TempDir creates a temporary directory for testing and registers cleanup.
// The directory is automatically removed when the test completes.
func TempDir(t *testing.T, pattern string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}

// TempLibraryDir creates a temporary library directory structure for testing.
// Returns the library path that should be used when creating a library.
func TempLibraryDir(t *testing.T) string {
	t.Helper()
	return TempDir(t, "testgen-library-*")
}

// WriteFile creates a file with the given content in the specified directory.
// Returns the full path to the created file.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadFile reads and returns the contents of a file.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	return data
}

// StringPtr is a helper to create a pointer to a string.
func StringPtr(s string) *string {
	return &s
}

// GenerateImage encodes a near-solid image in the given format ("png" or
// "jpeg"). The fill gets a small deterministic jitter per pixel: palettes
// extracted from it are still dominated by the fill color, but the color
// clusterer sees more unique colors than clusters, which it needs to behave.
func GenerateImage(t *testing.T, format string, width, height int, fill color.RGBA) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			j := uint8((x + y) % 8)
			img.Set(x, y, color.RGBA{fill.R + j, fill.G + j, fill.B + j, fill.A})
		}
	}

	var buf bytes.Buffer
	switch format {
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			t.Fatalf("failed to encode JPEG: %v", err)
		}
	default:
		if err := png.Encode(&buf, img); err != nil {
			t.Fatalf("failed to encode PNG: %v", err)
		}
	}

	return buf.Bytes()
}
