package testgen

import (
	"archive/zip"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

// CBZOptions configures the generated CBZ file.
type CBZOptions struct {
	PageNames    []string          // explicit entry names; overrides PageCount
	PageCount    int               // defaults to 3, named 001.png, 002.png, ...
	ImageFormat  string            // "png" or "jpeg", defaults to "png"
	ImageWidth   int               // defaults to 100
	ImageHeight  int               // defaults to 100
	PageFill     *color.RGBA       // fill color for every page, defaults to blue
	HasComicInfo bool              // whether to include ComicInfo.xml
	Title        string            // ComicInfo <Title>, requires HasComicInfo
	ExtraFiles   map[string][]byte // extra entries written verbatim (junk, sidecars)
}

// GenerateCBZ creates a valid CBZ file at the specified path with the given
// options. Every page entry holds a real encoded image, so the archive can
// be fed through the full decode path.
func GenerateCBZ(t *testing.T, dir, filename string, opts CBZOptions) string {
	t.Helper()

	path := filepath.Join(dir, filename)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create CBZ file: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	format := opts.ImageFormat
	if format == "" {
		format = "png"
	}
	width := opts.ImageWidth
	if width <= 0 {
		width = 100
	}
	height := opts.ImageHeight
	if height <= 0 {
		height = 100
	}
	fill := color.RGBA{0, 100, 200, 255}
	if opts.PageFill != nil {
		fill = *opts.PageFill
	}

	names := opts.PageNames
	if len(names) == 0 {
		count := opts.PageCount
		if count <= 0 {
			count = 3
		}
		ext := "png"
		if format == "jpeg" || format == "jpg" {
			ext = "jpg"
		}
		for i := 1; i <= count; i++ {
			names = append(names, fmt.Sprintf("%03d.%s", i, ext))
		}
	}

	if opts.HasComicInfo {
		comicInfo := fmt.Sprintf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<ComicInfo>\n  <Title>%s</Title>\n  <PageCount>%d</PageCount>\n</ComicInfo>", opts.Title, len(names))
		if err := writeZipFile(zw, "ComicInfo.xml", []byte(comicInfo)); err != nil {
			t.Fatalf("failed to write ComicInfo.xml: %v", err)
		}
	}

	img := GenerateImage(t, format, width, height, fill)
	for _, name := range names {
		if err := writeZipFile(zw, name, img); err != nil {
			t.Fatalf("failed to write page %s: %v", name, err)
		}
	}

	for name, data := range opts.ExtraFiles {
		if err := writeZipFile(zw, name, data); err != nil {
			t.Fatalf("failed to write extra file %s: %v", name, err)
		}
	}

	return path
}

// GenerateCorruptCBZ writes a file that carries the zip magic bytes but no
// parseable structure, so it passes the container signature check and then
// fails to open.
func GenerateCorruptCBZ(t *testing.T, dir, filename string) string {
	t.Helper()

	data := append([]byte("PK\x03\x04"), []byte("this is not a real archive body")...)
	return WriteFile(t, dir, filename, data)
}

func writeZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
