package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
	"github.com/tankobooks/tanko/pkg/archive"
	"github.com/tankobooks/tanko/pkg/comics"
	"github.com/tankobooks/tanko/pkg/config"
	"github.com/tankobooks/tanko/pkg/database"
	"github.com/tankobooks/tanko/pkg/libraries"
	"github.com/tankobooks/tanko/pkg/migrations"
	"github.com/tankobooks/tanko/pkg/scanqueue"
	"github.com/tankobooks/tanko/pkg/server"
	"github.com/tankobooks/tanko/pkg/thumbnails"
	"github.com/tankobooks/tanko/pkg/version"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting tanko", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	archive.SetSevenZipSupport(cfg.SevenZipEnabled)

	if err := initThumbnailDir(cfg.ThumbnailDir); err != nil {
		log.Err(err).Fatal("thumbnail directory error")
	}
	log.Info("thumbnail directory initialized", logger.Data{"path": cfg.ThumbnailDir})

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	comicService := comics.NewService(db)
	libraryService := libraries.NewService(db)
	thumbnailService := thumbnails.NewService(comicService, cfg)

	queue := scanqueue.New(thumbnailService, libraryService)

	srv, err := server.New(cfg, db, queue, thumbnailService)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}

		actualPort := listener.Addr().(*net.TCPAddr).Port
		log.Info("server started", logger.Data{"port": actualPort})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	queue.Start()
	log.Info("scan queue started")

	<-graceful
	log.Info("starting graceful shutdown")

	// Stop taking requests first so nothing new lands on the queue, then let
	// the queue finish its in-flight scan, then close the database.
	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	queue.Shutdown()
	log.Info("scan queue shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}

// initThumbnailDir creates the thumbnail directory and verifies write
// permissions, since the pipeline writes every generated cover into it.
func initThumbnailDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create thumbnail directory: %s", dir)
	}

	testFile := filepath.Join(dir, ".write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return errors.Wrapf(err, "thumbnail directory is not writable: %s", dir)
	}
	f.Close()

	if err := os.Remove(testFile); err != nil {
		return errors.Wrapf(err, "failed to clean up write test file: %s", testFile)
	}

	return nil
}
