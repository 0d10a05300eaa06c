package comics

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tankobooks/tanko/internal/testgen"
	"github.com/tankobooks/tanko/pkg/binder"
	"github.com/tankobooks/tanko/pkg/errcodes"
	"github.com/tankobooks/tanko/pkg/models"
)

func newComicsEchoContext(t *testing.T, path string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr), rr
}

func (tc *testContext) createComicWithArchive(t *testing.T, opts testgen.CBZOptions) *models.Comic {
	t.Helper()

	dir := testgen.TempLibraryDir(t)
	path := testgen.GenerateCBZ(t, dir, "test.cbz", opts)
	return tc.createComic("Test Comic", path)
}

func TestHandlerGetPage(t *testing.T) {
	tc := newTestContext(t)
	comic := tc.createComicWithArchive(t, testgen.CBZOptions{
		PageNames: []string{"002.png", "001.png"},
	})
	h := &handler{comicService: tc.svc}

	c, rr := newComicsEchoContext(t, "/comics/"+strconv.Itoa(comic.ID)+"/pages/0")
	c.SetPath("/comics/:id/pages/:index")
	c.SetParamNames("id", "index")
	c.SetParamValues(strconv.Itoa(comic.ID), "0")

	require.NoError(t, h.getPage(c))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "public, max-age=31536000, immutable", rr.Header().Get(echo.HeaderCacheControl))
	assert.NotEmpty(t, rr.Body.Bytes())
}

func TestHandlerGetPageGrayscale(t *testing.T) {
	tc := newTestContext(t)
	comic := tc.createComicWithArchive(t, testgen.CBZOptions{PageCount: 1})
	h := &handler{comicService: tc.svc}

	c, rr := newComicsEchoContext(t, "/comics/"+strconv.Itoa(comic.ID)+"/pages/0?grayscale=true")
	c.SetPath("/comics/:id/pages/:index")
	c.SetParamNames("id", "index")
	c.SetParamValues(strconv.Itoa(comic.ID), "0")

	require.NoError(t, h.getPage(c))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/jpeg", rr.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "public, max-age=31536000, immutable", rr.Header().Get(echo.HeaderCacheControl))
}

func TestHandlerGetPageUndecodable(t *testing.T) {
	tc := newTestContext(t)
	junk := []byte("not an image at all")
	comic := tc.createComicWithArchive(t, testgen.CBZOptions{
		PageNames:  []string{"001.png"},
		ExtraFiles: map[string][]byte{"000.png": junk},
	})
	h := &handler{comicService: tc.svc}

	c, rr := newComicsEchoContext(t, "/comics/"+strconv.Itoa(comic.ID)+"/pages/0?grayscale=true")
	c.SetPath("/comics/:id/pages/:index")
	c.SetParamNames("id", "index")
	c.SetParamValues(strconv.Itoa(comic.ID), "0")

	// The transform can't decode the page, so the original bytes are served
	// without long-lived caching.
	require.NoError(t, h.getPage(c))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "no-store", rr.Header().Get(echo.HeaderCacheControl))
	assert.Equal(t, junk, rr.Body.Bytes())
}

func TestHandlerGetPageIndexOutOfRange(t *testing.T) {
	tc := newTestContext(t)
	comic := tc.createComicWithArchive(t, testgen.CBZOptions{PageCount: 2})
	h := &handler{comicService: tc.svc}

	c, _ := newComicsEchoContext(t, "/comics/"+strconv.Itoa(comic.ID)+"/pages/7")
	c.SetPath("/comics/:id/pages/:index")
	c.SetParamNames("id", "index")
	c.SetParamValues(strconv.Itoa(comic.ID), "7")

	err := h.getPage(c)
	require.Error(t, err)

	var ec *errcodes.Error
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, "index_out_of_range", ec.Code)
}

func TestHandlerGetPageMissingSource(t *testing.T) {
	tc := newTestContext(t)
	comic := tc.createComic("Gone", "/tmp/comics/does-not-exist.cbz")
	h := &handler{comicService: tc.svc}

	c, _ := newComicsEchoContext(t, "/comics/"+strconv.Itoa(comic.ID)+"/pages/0")
	c.SetPath("/comics/:id/pages/:index")
	c.SetParamNames("id", "index")
	c.SetParamValues(strconv.Itoa(comic.ID), "0")

	err := h.getPage(c)
	require.Error(t, err)

	var ec *errcodes.Error
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, "missing_source_file", ec.Code)
}

func TestHandlerGetThumbnail(t *testing.T) {
	tc := newTestContext(t)
	comic := tc.createComic("One", "/tmp/comics/one.cbz")
	h := &handler{comicService: tc.svc}

	dir := testgen.TempDir(t, "thumb-test-*")
	thumbPath := testgen.WriteFile(t, dir, "comic_1.webp", []byte("webp bytes"))

	comic.ThumbnailPath = &thumbPath
	require.NoError(t, tc.svc.UpdateComic(tc.ctx, comic, UpdateComicOptions{
		Columns: []string{"thumbnail_path"},
	}))

	c, rr := newComicsEchoContext(t, "/comics/"+strconv.Itoa(comic.ID)+"/thumbnail")
	c.SetPath("/comics/:id/thumbnail")
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(comic.ID))

	require.NoError(t, h.getThumbnail(c))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/webp", rr.Header().Get(echo.HeaderContentType))
	assert.Equal(t, []byte("webp bytes"), rr.Body.Bytes())
}

func TestHandlerGetThumbnailMissing(t *testing.T) {
	tc := newTestContext(t)
	comic := tc.createComic("One", "/tmp/comics/one.cbz")
	h := &handler{comicService: tc.svc}

	c, _ := newComicsEchoContext(t, "/comics/"+strconv.Itoa(comic.ID)+"/thumbnail")
	c.SetPath("/comics/:id/thumbnail")
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(comic.ID))

	err := h.getThumbnail(c)
	require.Error(t, err)

	var ec *errcodes.Error
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, "not_found", ec.Code)
}
