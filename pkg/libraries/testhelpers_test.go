package libraries

import (
	"context"
	"database/sql"
	"testing"

	"github.com/robinjoseph08/golib/logger"
	"github.com/tankobooks/tanko/pkg/migrations"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestService(t *testing.T) (*Service, context.Context) {
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

	t.Cleanup(func() {
		db.Close()
	})

	ctx := logger.New().WithContext(context.Background())

	return NewService(db), ctx
}
