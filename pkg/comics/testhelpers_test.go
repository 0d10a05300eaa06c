package comics

import (
	"context"
	"database/sql"
	"testing"

	"github.com/robinjoseph08/golib/logger"
	"github.com/tankobooks/tanko/pkg/libraries"
	"github.com/tankobooks/tanko/pkg/migrations"
	"github.com/tankobooks/tanko/pkg/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type testContext struct {
	t       *testing.T
	ctx     context.Context
	db      *bun.DB
	svc     *Service
	library *models.Library
}

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

	ctx := logger.New().WithContext(context.Background())

	library := &models.Library{
		Name:     "Test Library",
		Filepath: "/tmp/comics",
	}
	err = libraries.NewService(db).CreateLibrary(ctx, library)
	if err != nil {
		t.Fatalf("failed to create library: %v", err)
	}

	tc := &testContext{
		t:       t,
		ctx:     ctx,
		db:      db,
		svc:     NewService(db),
		library: library,
	}

	t.Cleanup(func() {
		db.Close()
	})

	return tc
}

func (tc *testContext) createComic(title, filepath string) *models.Comic {
	tc.t.Helper()

	comic := &models.Comic{
		LibraryID: tc.library.ID,
		Title:     title,
		Filepath:  filepath,
		FileType:  models.FileTypeCBZ,
	}
	err := tc.svc.CreateComic(tc.ctx, comic)
	if err != nil {
		tc.t.Fatalf("failed to create comic: %v", err)
	}
	return comic
}
