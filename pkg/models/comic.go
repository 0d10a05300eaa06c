package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/tankobooks/tanko/pkg/palette"
	"github.com/uptrace/bun"
)

const (
	FileTypeCBZ = "cbz"
	FileTypeCBR = "cbr"
	FileTypeCB7 = "cb7"
)

type Comic struct {
	bun.BaseModel `bun:"table:comics,alias:c"`

	ID            int      `bun:",pk,nullzero" json:"id"`
	LibraryID     int      `bun:",nullzero" json:"library_id"`
	Library       *Library `bun:"rel:belongs-to" json:"library,omitempty"`
	Title         string   `bun:",nullzero" json:"title"`
	Filepath      string   `bun:",nullzero" json:"filepath"`
	FileType      string   `bun:",nullzero" json:"file_type"`
	PageCount     int      `json:"page_count"`
	ThumbnailPath *string  `json:"thumbnail_path"`

	// ColorPrimary and ColorSecondary are denormalized out of the palette so
	// that list queries can select them without parsing JSON.
	ColorPrimary   *string          `json:"color_primary"`
	ColorSecondary *string          `json:"color_secondary"`
	Palette        *string          `bun:"palette" json:"-"`
	PaletteParsed  *palette.Palette `bun:"-" json:"palette"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UnmarshalPalette parses the raw palette column into PaletteParsed.
func (c *Comic) UnmarshalPalette() error {
	if c.Palette == nil || *c.Palette == "" {
		c.PaletteParsed = nil
		return nil
	}

	c.PaletteParsed = &palette.Palette{}
	err := json.Unmarshal([]byte(*c.Palette), c.PaletteParsed)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// MarshalPalette serializes PaletteParsed into the raw palette column.
func (c *Comic) MarshalPalette() error {
	if c.PaletteParsed == nil {
		c.Palette = nil
		return nil
	}

	b, err := json.Marshal(c.PaletteParsed)
	if err != nil {
		return errors.WithStack(err)
	}

	s := string(b)
	c.Palette = &s
	return nil
}
