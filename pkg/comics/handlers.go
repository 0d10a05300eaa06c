package comics

import (
	"net/http"
	"os"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/tankobooks/tanko/pkg/archive"
	"github.com/tankobooks/tanko/pkg/errcodes"
	"github.com/tankobooks/tanko/pkg/images"
	"github.com/tankobooks/tanko/pkg/models"
)

// Pages are immutable for a given archive, so successful transforms can be
// cached forever. Failed transforms serve the original bytes uncached so a
// fixed decoder can retry later.
const (
	cacheForever = "public, max-age=31536000, immutable"
	cacheNever   = "no-store"

	thumbnailCache = "public, max-age=86400"
)

type handler struct {
	comicService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Comic")
	}

	comic, err := h.comicService.RetrieveComic(ctx, RetrieveComicOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, comic))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListComicsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	comics, total, err := h.comicService.ListComicsWithTotal(ctx, ListComicsOptions{
		LibraryID: params.LibraryID,
		Limit:     &params.Limit,
		Offset:    &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Comics []*models.Comic `json:"comics"`
		Total  int             `json:"total"`
	}{comics, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) getPage(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Comic")
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return errcodes.NotFound("Page")
	}

	// Bind params.
	params := PageQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	comic, err := h.comicService.RetrieveComic(ctx, RetrieveComicOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	a, err := archive.Open(comic.Filepath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer a.Close()

	pages := a.Pages()
	if index < 0 || index >= len(pages) {
		return errcodes.IndexOutOfRange(index, len(pages))
	}

	raw, err := a.ReadPage(pages[index])
	if err != nil {
		return errors.WithStack(err)
	}

	data, mime, ok := images.GetPage(raw, pages[index].Name, images.Options{
		Sharpen:          params.Sharpen,
		Grayscale:        params.Grayscale,
		TranscodeIfLarge: params.Webp,
	})

	cache := cacheForever
	if !ok {
		cache = cacheNever
	}
	c.Response().Header().Set(echo.HeaderCacheControl, cache)

	return errors.WithStack(c.Blob(http.StatusOK, mime, data))
}

func (h *handler) getThumbnail(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Comic")
	}

	comic, err := h.comicService.RetrieveComic(ctx, RetrieveComicOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if comic.ThumbnailPath == nil {
		return errcodes.NotFound("Thumbnail")
	}

	data, err := os.ReadFile(*comic.ThumbnailPath)
	if err != nil {
		if os.IsNotExist(err) {
			return errcodes.NotFound("Thumbnail")
		}
		return errors.WithStack(err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, thumbnailCache)

	return errors.WithStack(c.Blob(http.StatusOK, "image/webp", data))
}
