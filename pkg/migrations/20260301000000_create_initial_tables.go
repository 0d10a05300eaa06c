package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE libraries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				filepath TEXT NOT NULL,
				is_scanning BOOLEAN NOT NULL DEFAULT FALSE,
				deleted_at TIMESTAMPTZ
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE comics (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				library_id INTEGER REFERENCES libraries (id) NOT NULL,
				title TEXT NOT NULL,
				filepath TEXT NOT NULL,
				file_type TEXT NOT NULL,
				page_count INTEGER NOT NULL DEFAULT 0,
				thumbnail_path TEXT,
				color_primary TEXT,
				color_secondary TEXT,
				palette TEXT
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_comics_library_id ON comics (library_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_comics_filepath_library_id ON comics (filepath, library_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		// Partial index for the artwork backlog query: comics still missing a
		// thumbnail or color data.
		_, err = db.Exec(`CREATE INDEX ix_comics_artwork_backlog ON comics (library_id) WHERE thumbnail_path IS NULL OR color_primary IS NULL`)
		if err != nil {
			return errors.WithStack(err)
		}
		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`DROP TABLE comics`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`DROP TABLE libraries`)
		if err != nil {
			return errors.WithStack(err)
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
