package thumbnails

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/robinjoseph08/golib/logger"
	"github.com/tankobooks/tanko/internal/testgen"
	"github.com/tankobooks/tanko/pkg/comics"
	"github.com/tankobooks/tanko/pkg/config"
	"github.com/tankobooks/tanko/pkg/libraries"
	"github.com/tankobooks/tanko/pkg/migrations"
	"github.com/tankobooks/tanko/pkg/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// testContext holds all the dependencies needed for testing the pipeline.
type testContext struct {
	t              *testing.T
	ctx            context.Context
	db             *bun.DB
	svc            *Service
	comicService   *comics.Service
	libraryService *libraries.Service
	library        *models.Library
	libraryDir     string
	thumbnailDir   string
}

// newTestContext creates a test context with an in-memory SQLite database, a
// temporary library directory, and one library to hang comics off of.
func newTestContext(t *testing.T) *testContext {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}

	// Every pool connection gets its own :memory: database, so pin the pool
	// to one connection to keep the migrated schema visible everywhere.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	comicService := comics.NewService(db)
	libraryService := libraries.NewService(db)

	libraryDir := testgen.TempLibraryDir(t)
	thumbnailDir := testgen.TempDir(t, "testgen-cover-*")

	cfg := &config.Config{
		ThumbnailDir:    thumbnailDir,
		WorkerProcesses: 2,
	}
	svc := NewService(comicService, cfg)

	ctx := logger.New().WithContext(context.Background())

	library := &models.Library{
		Name:     "Test Library",
		Filepath: libraryDir,
	}
	err = libraryService.CreateLibrary(ctx, library)
	if err != nil {
		t.Fatalf("failed to create library: %v", err)
	}

	tc := &testContext{
		t:              t,
		ctx:            ctx,
		db:             db,
		svc:            svc,
		comicService:   comicService,
		libraryService: libraryService,
		library:        library,
		libraryDir:     libraryDir,
		thumbnailDir:   thumbnailDir,
	}

	t.Cleanup(func() {
		db.Close()
	})

	return tc
}

// createComic generates a CBZ in the library directory and registers it.
func (tc *testContext) createComic(filename string, opts testgen.CBZOptions) *models.Comic {
	tc.t.Helper()

	path := testgen.GenerateCBZ(tc.t, tc.libraryDir, filename, opts)
	return tc.registerComic(filename, path)
}

// createBrokenComic registers a comic whose archive can't be parsed.
func (tc *testContext) createBrokenComic(filename string) *models.Comic {
	tc.t.Helper()

	path := testgen.GenerateCorruptCBZ(tc.t, tc.libraryDir, filename)
	return tc.registerComic(filename, path)
}

func (tc *testContext) registerComic(filename, path string) *models.Comic {
	tc.t.Helper()

	comic := &models.Comic{
		LibraryID: tc.library.ID,
		Title:     strings.TrimSuffix(filename, ".cbz"),
		Filepath:  path,
		FileType:  models.FileTypeCBZ,
	}
	err := tc.comicService.CreateComic(tc.ctx, comic)
	if err != nil {
		tc.t.Fatalf("failed to create comic: %v", err)
	}
	return comic
}

// reload fetches the comic's current database row.
func (tc *testContext) reload(id int) *models.Comic {
	tc.t.Helper()

	comic, err := tc.comicService.RetrieveComic(tc.ctx, comics.RetrieveComicOptions{ID: &id})
	if err != nil {
		tc.t.Fatalf("failed to retrieve comic: %v", err)
	}
	return comic
}
