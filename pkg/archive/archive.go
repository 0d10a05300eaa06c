// Package archive provides uniform read access over comic archive containers
// (CBZ, CBR, CB7), with deterministic page ordering.
package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/bodgit/sevenzip"
	"github.com/gabriel-vasile/mimetype"
	"github.com/nwaples/rardecode/v2"
	"github.com/pkg/errors"
	"github.com/tankobooks/tanko/pkg/errcodes"
)

const (
	FormatCBZ = "cbz"
	FormatCBR = "cbr"
	FormatCB7 = "cb7"
)

// maxPageSize is the maximum size for a single page image (100 MB). This
// prevents decompression bombs from consuming excessive memory.
const maxPageSize = 100 * 1024 * 1024

var formatByExtension = map[string]string{
	".cbz": FormatCBZ,
	".cbr": FormatCBR,
	".cb7": FormatCB7,
}

// Files can have any extension, so the container signature is checked against
// the mime type we expect for the format before handing it to a codec.
var formatMimeTypes = map[string]string{
	FormatCBZ: "application/zip",
	FormatCBR: "application/x-rar-compressed",
	FormatCB7: "application/x-7z-compressed",
}

var sevenZipEnabled atomic.Bool

func init() {
	sevenZipEnabled.Store(true)
}

// SetSevenZipSupport toggles CB7 support for the process. It's resolved once
// at startup from config; when disabled, Open fails fast with
// UnsupportedFormat instead of surfacing a codec error mid-scan.
func SetSevenZipSupport(enabled bool) {
	sevenZipEnabled.Store(enabled)
}

// codec is the common read interface each container format implements.
type codec interface {
	list() []string
	read(name string) ([]byte, error)
	close() error
}

// Page is an ordinal position plus the archive-internal entry name.
type Page struct {
	Index int
	Name  string
}

// Archive owns an open container. It is exclusively owned by the caller that
// opened it and must not be shared across goroutines; Close is idempotent.
type Archive struct {
	path   string
	format string
	c      codec
	names  []string
	pages  []Page
	closed bool
}

func Open(path string) (*Archive, error) {
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := formatByExtension[ext]
	if !ok {
		return nil, errcodes.UnsupportedFormat(ext)
	}
	if format == FormatCB7 && !sevenZipEnabled.Load() {
		return nil, errcodes.UnsupportedFormat(ext)
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errcodes.MissingSourceFile(path)
		}
		return nil, errors.WithStack(err)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !mtype.Is(formatMimeTypes[format]) {
		return nil, errcodes.UnsupportedFormat(ext)
	}

	var c codec
	switch format {
	case FormatCBZ:
		c, err = openZip(path)
	case FormatCBR:
		c, err = openRar(path)
	case FormatCB7:
		c, err = openSevenZip(path)
	}
	if err != nil {
		return nil, errcodes.CorruptArchive(path)
	}

	a := &Archive{
		path:   path,
		format: format,
		c:      c,
		names:  c.list(),
	}

	ordered := sortPages(a.names)
	a.pages = make([]Page, len(ordered))
	for i, name := range ordered {
		a.pages[i] = Page{Index: i, Name: name}
	}

	return a, nil
}

func (a *Archive) Path() string {
	return a.path
}

func (a *Archive) Format() string {
	return a.format
}

// Pages returns the filtered, ordered page list. The ordering is computed
// once per open and is deterministic for the entry list seen at open time.
func (a *Archive) Pages() []Page {
	return a.pages
}

func (a *Archive) PageCount() int {
	return len(a.pages)
}

// ReadPage returns the raw bytes of a page.
func (a *Archive) ReadPage(p Page) ([]byte, error) {
	if a.closed {
		return nil, errors.New("archive is closed")
	}
	return a.c.read(p.Name)
}

// ComicInfo returns the raw ComicInfo.xml contents if the archive has one.
func (a *Archive) ComicInfo() ([]byte, bool, error) {
	if a.closed {
		return nil, false, errors.New("archive is closed")
	}
	for _, name := range a.names {
		if strings.ToLower(name) == "comicinfo.xml" {
			b, err := a.c.read(name)
			if err != nil {
				return nil, false, errors.WithStack(err)
			}
			return b, true, nil
		}
	}
	return nil, false, nil
}

// Close releases the underlying container. Safe to call multiple times.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	return a.c.close()
}

type zipCodec struct {
	rc    *zip.ReadCloser
	files map[string]*zip.File
	names []string
}

func openZip(path string) (*zipCodec, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	files := make(map[string]*zip.File, len(rc.File))
	names := make([]string, 0, len(rc.File))
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		files[f.Name] = f
		names = append(names, f.Name)
	}

	return &zipCodec{rc: rc, files: files, names: names}, nil
}

func (z *zipCodec) list() []string {
	return z.names
}

func (z *zipCodec) read(name string) ([]byte, error) {
	f, ok := z.files[name]
	if !ok {
		return nil, errcodes.PageNotFound(name)
	}

	r, err := f.Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer r.Close()

	b, err := io.ReadAll(io.LimitReader(r, maxPageSize))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return b, nil
}

func (z *zipCodec) close() error {
	return errors.WithStack(z.rc.Close())
}

// rarCodec holds the entry list from a single pass over the archive. RAR has
// no randomly accessible central directory through this decoder, so reads
// re-open the file and scan to the requested entry.
type rarCodec struct {
	path  string
	names []string
}

func openRar(path string) (*rarCodec, error) {
	rc, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rc.Close()

	names := make([]string, 0, 64)
	for {
		hdr, err := rc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if hdr.IsDir {
			continue
		}
		names = append(names, hdr.Name)
	}

	return &rarCodec{path: path, names: names}, nil
}

func (r *rarCodec) list() []string {
	return r.names
}

func (r *rarCodec) read(name string) ([]byte, error) {
	rc, err := rardecode.OpenReader(r.path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rc.Close()

	for {
		hdr, err := rc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if hdr.IsDir || hdr.Name != name {
			continue
		}

		b, err := io.ReadAll(io.LimitReader(rc, maxPageSize))
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return b, nil
	}

	return nil, errcodes.PageNotFound(name)
}

func (r *rarCodec) close() error {
	return nil
}

type sevenZipCodec struct {
	rc    *sevenzip.ReadCloser
	files map[string]*sevenzip.File
	names []string
}

func openSevenZip(path string) (*sevenZipCodec, error) {
	rc, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	files := make(map[string]*sevenzip.File, len(rc.File))
	names := make([]string, 0, len(rc.File))
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		files[f.Name] = f
		names = append(names, f.Name)
	}

	return &sevenZipCodec{rc: rc, files: files, names: names}, nil
}

func (s *sevenZipCodec) list() []string {
	return s.names
}

func (s *sevenZipCodec) read(name string) ([]byte, error) {
	f, ok := s.files[name]
	if !ok {
		return nil, errcodes.PageNotFound(name)
	}

	r, err := f.Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer r.Close()

	b, err := io.ReadAll(io.LimitReader(r, maxPageSize))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return b, nil
}

func (s *sevenZipCodec) close() error {
	return errors.WithStack(s.rc.Close())
}
