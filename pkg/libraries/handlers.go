package libraries

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/tankobooks/tanko/pkg/errcodes"
	"github.com/tankobooks/tanko/pkg/models"
	"github.com/tankobooks/tanko/pkg/scanqueue"
	"github.com/tankobooks/tanko/pkg/thumbnails"
)

type handler struct {
	libraryService   *Service
	thumbnailService *thumbnails.Service
	queue            *scanqueue.Queue
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CreateLibraryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	library := &models.Library{
		Name:     params.Name,
		Filepath: params.Filepath,
	}

	err := h.libraryService.CreateLibrary(ctx, library)
	if err != nil {
		return errors.WithStack(err)
	}

	// A new library starts scanning right away.
	h.queue.Enqueue(scanqueue.Request{LibraryID: library.ID})

	return errors.WithStack(c.JSON(http.StatusOK, library))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	library, err := h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, library))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListLibrariesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	libraries, total, err := h.libraryService.ListLibrariesWithTotal(ctx, ListLibrariesOptions{
		Limit:          &params.Limit,
		Offset:         &params.Offset,
		IncludeDeleted: params.Deleted,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Libraries []*models.Library `json:"libraries"`
		Total     int               `json:"total"`
	}{libraries, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	// Bind params.
	params := UpdateLibraryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Fetch the library.
	library, err := h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateLibraryOptions{Columns: []string{}}

	if params.Name != nil && *params.Name != library.Name {
		library.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.Filepath != nil && *params.Filepath != library.Filepath {
		library.Filepath = *params.Filepath
		opts.Columns = append(opts.Columns, "filepath")
	}
	if params.Deleted != nil && (*params.Deleted && library.DeletedAt == nil || !*params.Deleted && library.DeletedAt != nil) {
		if *params.Deleted {
			library.DeletedAt = pointerutil.Time(time.Now())
		} else {
			library.DeletedAt = nil
		}
		opts.Columns = append(opts.Columns, "deleted_at")
	}

	// Update the model.
	err = h.libraryService.UpdateLibrary(ctx, library, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	// Reload the model.
	library, err = h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, library))
}

func (h *handler) scan(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	force := c.QueryParam("force") == "true"

	// Make sure the library exists before queueing anything for it.
	library, err := h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	res := h.queue.Enqueue(scanqueue.Request{
		LibraryID: library.ID,
		Force:     force,
	})

	return errors.WithStack(c.JSON(http.StatusAccepted, res))
}

func (h *handler) scanStatus(c echo.Context) error {
	return errors.WithStack(c.JSON(http.StatusOK, h.queue.Status()))
}

func (h *handler) generateThumbnails(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	// Bind params. An empty body means "defaults".
	c.Set("disallow_empty_body", false)
	params := GenerateThumbnailsPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	library, err := h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	stats, err := h.thumbnailService.Process(ctx, thumbnails.ProcessOptions{
		LibraryID: &library.ID,
		Force:     params.Force,
		Parallel:  params.Parallel,
		Workers:   params.Workers,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, stats))
}
