package libraries

import (
	"github.com/labstack/echo/v4"
	"github.com/tankobooks/tanko/pkg/scanqueue"
	"github.com/tankobooks/tanko/pkg/thumbnails"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB, queue *scanqueue.Queue, thumbnailService *thumbnails.Service) {
	libraryService := NewService(db)

	h := &handler{
		libraryService:   libraryService,
		thumbnailService: thumbnailService,
		queue:            queue,
	}

	e.POST("/libraries", h.create)
	e.GET("/libraries", h.list)
	// Registered before /libraries/:id so "scan" isn't parsed as an id.
	e.GET("/libraries/scan/status", h.scanStatus)
	e.GET("/libraries/:id", h.retrieve)
	e.POST("/libraries/:id", h.update)
	e.POST("/libraries/:id/scan", h.scan)
	e.POST("/libraries/:id/thumbnails", h.generateThumbnails)
}
