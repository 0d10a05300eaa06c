package comics

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/tankobooks/tanko/pkg/errcodes"
	"github.com/tankobooks/tanko/pkg/models"
	"github.com/tankobooks/tanko/pkg/palette"
	"github.com/uptrace/bun"
)

type RetrieveComicOptions struct {
	ID *int
}

type ListComicsOptions struct {
	LibraryID *int
	Limit     *int
	Offset    *int

	// NeedsArtwork filters down to comics still missing a thumbnail or
	// palette, i.e. the artwork backlog.
	NeedsArtwork bool

	includeTotal bool
}

type UpdateComicOptions struct {
	Columns []string
}

// ArtworkUpdate carries the artwork produced by the thumbnail pipeline for
// one comic.
type ArtworkUpdate struct {
	ComicID       int
	ThumbnailPath *string
	Palette       *palette.Palette
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateComic(ctx context.Context, comic *models.Comic) error {
	now := time.Now()
	if comic.CreatedAt.IsZero() {
		comic.CreatedAt = now
	}
	comic.UpdatedAt = comic.CreatedAt

	err := comic.MarshalPalette()
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = svc.db.
		NewInsert().
		Model(comic).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveComic(ctx context.Context, opts RetrieveComicOptions) (*models.Comic, error) {
	comic := &models.Comic{}

	q := svc.db.
		NewSelect().
		Model(comic).
		Column("c.*").
		Relation("Library")

	if opts.ID != nil {
		q = q.Where("c.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Comic")
		}
		return nil, errors.WithStack(err)
	}

	err = comic.UnmarshalPalette()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return comic, nil
}

func (svc *Service) ListComics(ctx context.Context, opts ListComicsOptions) ([]*models.Comic, error) {
	c, _, err := svc.listComicsWithTotal(ctx, opts)
	return c, errors.WithStack(err)
}

func (svc *Service) ListComicsWithTotal(ctx context.Context, opts ListComicsOptions) ([]*models.Comic, int, error) {
	opts.includeTotal = true
	return svc.listComicsWithTotal(ctx, opts)
}

func (svc *Service) listComicsWithTotal(ctx context.Context, opts ListComicsOptions) ([]*models.Comic, int, error) {
	comics := []*models.Comic{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&comics).
		Column("c.*").
		Order("c.title ASC").
		Order("c.id ASC")

	if opts.LibraryID != nil {
		q = q.Where("c.library_id = ?", *opts.LibraryID)
	}
	if opts.NeedsArtwork {
		q = q.Where("(c.thumbnail_path IS NULL OR c.color_primary IS NULL)")
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	for _, comic := range comics {
		err = comic.UnmarshalPalette()
		if err != nil {
			return nil, 0, errors.WithStack(err)
		}
	}

	return comics, total, nil
}

// CountComics returns how many comics match the filter options, without
// loading rows.
func (svc *Service) CountComics(ctx context.Context, opts ListComicsOptions) (int, error) {
	q := svc.db.
		NewSelect().
		Model((*models.Comic)(nil))

	if opts.LibraryID != nil {
		q = q.Where("c.library_id = ?", *opts.LibraryID)
	}
	if opts.NeedsArtwork {
		q = q.Where("(c.thumbnail_path IS NULL OR c.color_primary IS NULL)")
	}

	count, err := q.Count(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return count, nil
}

func (svc *Service) UpdateComic(ctx context.Context, comic *models.Comic, opts UpdateComicOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	// Update updated_at.
	comic.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	err := comic.MarshalPalette()
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = svc.db.
		NewUpdate().
		Model(comic).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Comic")
		}
		return errors.WithStack(err)
	}

	return nil
}

// ApplyArtworkUpdates persists a batch of pipeline results in one
// transaction. The thumbnail pipeline is the only writer of these columns,
// so batches never contend with each other.
func (svc *Service) ApplyArtworkUpdates(ctx context.Context, updates []ArtworkUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	now := time.Now()

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, u := range updates {
			comic := &models.Comic{
				ID:            u.ComicID,
				ThumbnailPath: u.ThumbnailPath,
				PaletteParsed: u.Palette,
				UpdatedAt:     now,
			}
			if u.Palette != nil {
				comic.ColorPrimary = u.Palette.Primary
				comic.ColorSecondary = u.Palette.Secondary
			}

			err := comic.MarshalPalette()
			if err != nil {
				return errors.WithStack(err)
			}

			_, err = tx.
				NewUpdate().
				Model(comic).
				Column("thumbnail_path", "color_primary", "color_secondary", "palette", "updated_at").
				WherePK().
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}
