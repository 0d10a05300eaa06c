package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Library struct {
	bun.BaseModel `bun:"table:libraries,alias:l"`

	ID         int        `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Name       string     `bun:",nullzero" json:"name"`
	Filepath   string     `bun:",nullzero" json:"filepath"`
	IsScanning bool       `json:"is_scanning"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}
