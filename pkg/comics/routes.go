package comics

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB) {
	comicService := NewService(db)

	h := &handler{
		comicService: comicService,
	}

	e.GET("/comics", h.list)
	e.GET("/comics/:id", h.retrieve)
	e.GET("/comics/:id/pages/:index", h.getPage)
	e.GET("/comics/:id/thumbnail", h.getThumbnail)
}
