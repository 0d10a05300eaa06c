package libraries

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/tankobooks/tanko/pkg/errcodes"
	"github.com/tankobooks/tanko/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveLibraryOptions struct {
	ID *int
}

type ListLibrariesOptions struct {
	Limit          *int
	Offset         *int
	IncludeDeleted bool

	includeTotal bool
}

type UpdateLibraryOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateLibrary(ctx context.Context, library *models.Library) error {
	now := time.Now()
	if library.CreatedAt.IsZero() {
		library.CreatedAt = now
	}
	library.UpdatedAt = library.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(library).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveLibrary(ctx context.Context, opts RetrieveLibraryOptions) (*models.Library, error) {
	library := &models.Library{}

	q := svc.db.
		NewSelect().
		Model(library).
		Column("l.*")

	if opts.ID != nil {
		q = q.Where("l.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Library")
		}
		return nil, errors.WithStack(err)
	}

	return library, nil
}

func (svc *Service) ListLibraries(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, error) {
	l, _, err := svc.listLibrariesWithTotal(ctx, opts)
	return l, errors.WithStack(err)
}

func (svc *Service) ListLibrariesWithTotal(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, int, error) {
	opts.includeTotal = true
	return svc.listLibrariesWithTotal(ctx, opts)
}

func (svc *Service) listLibrariesWithTotal(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, int, error) {
	libraries := []*models.Library{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&libraries).
		Column("l.*").
		Order("l.name ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if !opts.IncludeDeleted {
		q = q.Where("deleted_at IS NULL")
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return libraries, total, nil
}

func (svc *Service) UpdateLibrary(ctx context.Context, library *models.Library, opts UpdateLibraryOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	// Update updated_at.
	library.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(library).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Library")
		}
		return errors.WithStack(err)
	}

	return nil
}

// SetScanning flips the library's is_scanning flag. The scan queue calls
// this around every scan so clients can see scan progress per library.
func (svc *Service) SetScanning(ctx context.Context, libraryID int, scanning bool) error {
	_, err := svc.db.
		NewUpdate().
		Model((*models.Library)(nil)).
		Set("is_scanning = ?", scanning).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", libraryID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}
