// Package thumbnails generates cover thumbnails and color palettes for
// comics, fanning the image work out across workers while keeping all
// database writes on a single goroutine.
package thumbnails

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/tankobooks/tanko/pkg/archive"
	"github.com/tankobooks/tanko/pkg/comics"
	"github.com/tankobooks/tanko/pkg/config"
	"github.com/tankobooks/tanko/pkg/images"
	"github.com/tankobooks/tanko/pkg/models"
	"github.com/tankobooks/tanko/pkg/palette"
)

// writeBatchSize is how many pipeline results the writer folds into one
// transaction.
const writeBatchSize = 100

type Service struct {
	comicService *comics.Service
	thumbnailDir string
	workers      int
}

func NewService(comicService *comics.Service, cfg *config.Config) *Service {
	return &Service{
		comicService: comicService,
		thumbnailDir: cfg.ThumbnailDir,
		workers:      cfg.ArtworkWorkers(),
	}
}

type ProcessOptions struct {
	LibraryID *int

	// Force regenerates artwork even for comics that already have it.
	Force bool

	// Parallel fans the image work out across the configured worker count.
	// Without it everything runs on one worker.
	Parallel bool

	// Workers overrides the configured worker count when > 0. Still capped
	// at the machine's core count.
	Workers int
}

// Stats reports what one pipeline run did. Every candidate comic lands in
// exactly one bucket.
type Stats struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
	Skipped   int `json:"skipped"`
}

type workResult struct {
	comicID int
	update  *comics.ArtworkUpdate
	err     error
}

// Process generates thumbnails and palettes for the selected comics. Failed
// comics are counted and logged but never written, so a bad archive can't
// corrupt the artwork columns of a good one.
func (svc *Service) Process(ctx context.Context, opts ProcessOptions) (Stats, error) {
	log := logger.FromContext(ctx)

	// Non-force runs select the artwork backlog in SQL, so comics that
	// already have artwork never leave the database.
	listOpts := comics.ListComicsOptions{LibraryID: opts.LibraryID}
	if !opts.Force {
		listOpts.NeedsArtwork = true
	}

	work, err := svc.comicService.ListComics(ctx, listOpts)
	if err != nil {
		return Stats{}, errors.WithStack(err)
	}

	stats := Stats{}
	if !opts.Force {
		total, err := svc.comicService.CountComics(ctx, comics.ListComicsOptions{
			LibraryID: opts.LibraryID,
		})
		if err != nil {
			return Stats{}, errors.WithStack(err)
		}
		stats.Skipped = total - len(work)
	}

	if len(work) == 0 {
		return stats, nil
	}

	workers := 1
	if opts.Parallel {
		workers = svc.workers
		if opts.Workers > 0 {
			workers = opts.Workers
			if cores := runtime.NumCPU(); workers > cores {
				workers = cores
			}
		}
	}

	jobs := make(chan *models.Comic)
	results := make(chan workResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for comic := range jobs {
				update, err := svc.processComic(comic)
				results <- workResult{comicID: comic.ID, update: update, err: err}
			}
		}()
	}

	// Closing results once the last worker exits is the writer's completion
	// sentinel.
	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer close(jobs)
		for _, comic := range work {
			select {
			case jobs <- comic:
			case <-ctx.Done():
				// Results already in flight still get written; comics not
				// yet dispatched are silently left for the next run.
				return
			}
		}
	}()

	// Single writer. Workers never touch the database; batching here keeps
	// SQLite's one-writer model honest.
	batch := make([]comics.ArtworkUpdate, 0, writeBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := svc.comicService.ApplyArtworkUpdates(ctx, batch)
		if err != nil {
			return errors.WithStack(err)
		}
		stats.Processed += len(batch)
		batch = batch[:0]
		return nil
	}

	for res := range results {
		if res.err != nil {
			log.Err(res.err).Error("thumbnail processing error", logger.Data{"comic_id": res.comicID})
			stats.Errors++
			continue
		}

		batch = append(batch, *res.update)
		if len(batch) >= writeBatchSize {
			err := flush()
			if err != nil {
				// Unblock the workers before bailing out.
				for range results {
				}
				return stats, err
			}
		}
	}

	err = flush()
	if err != nil {
		return stats, err
	}

	return stats, nil
}

// processComic derives one comic's artwork: first page out of the archive,
// palette from the decoded cover, thumbnail onto disk. The update it returns
// is handed to the writer; nothing here touches the database.
func (svc *Service) processComic(comic *models.Comic) (update *comics.ArtworkUpdate, err error) {
	// Image decoders can panic on malformed input. Contain it to this comic.
	defer func() {
		if r := recover(); r != nil {
			update = nil
			err = errors.Errorf("artwork processing panicked: %v", r)
		}
	}()

	a, err := archive.Open(comic.Filepath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer a.Close()

	pages := a.Pages()
	if len(pages) == 0 {
		return nil, errors.Errorf("archive has no pages: %s", comic.Filepath)
	}

	raw, err := a.ReadPage(pages[0])
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cover, err := images.DecodeCover(raw)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	pal, err := palette.Extract(cover)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	thumb, err := images.EncodeThumbnail(cover)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	path := filepath.Join(svc.thumbnailDir, fmt.Sprintf("comic_%d.webp", comic.ID))
	err = os.WriteFile(path, thumb, 0600)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &comics.ArtworkUpdate{
		ComicID:       comic.ID,
		ThumbnailPath: &path,
		Palette:       pal,
	}, nil
}

// Scan refreshes page counts for a library's comics and regenerates their
// artwork. It satisfies the scan queue's Scanner interface.
func (svc *Service) Scan(ctx context.Context, libraryID int, force bool) error {
	log := logger.FromContext(ctx)

	all, err := svc.comicService.ListComics(ctx, comics.ListComicsOptions{
		LibraryID: &libraryID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	for _, comic := range all {
		a, err := archive.Open(comic.Filepath)
		if err != nil {
			log.Err(err).Error("archive open error", logger.Data{"comic_id": comic.ID, "filepath": comic.Filepath})
			continue
		}
		count := a.PageCount()
		a.Close()

		if count == comic.PageCount {
			continue
		}

		comic.PageCount = count
		err = svc.comicService.UpdateComic(ctx, comic, comics.UpdateComicOptions{
			Columns: []string{"page_count"},
		})
		if err != nil {
			return errors.WithStack(err)
		}
	}

	stats, err := svc.Process(ctx, ProcessOptions{
		LibraryID: &libraryID,
		Force:     force,
		Parallel:  true,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	log.Info("artwork pipeline finished", logger.Data{
		"library_id": libraryID,
		"processed":  stats.Processed,
		"errors":     stats.Errors,
		"skipped":    stats.Skipped,
	})

	return nil
}
