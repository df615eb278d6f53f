// Package repository persists the normalized corpus and the player form table.
package repository

import (
	"context"

	"github.com/okian/chase/internal/domain/form"
	"github.com/okian/chase/internal/domain/model"
)

// Store provides read/write access to the corpus.
type Store interface {
	// SaveRows upserts per-ball rows keyed by (match, innings, ball).
	SaveRows(ctx context.Context, rows []model.Row) error
	// ReplaceRows drops every stored row and saves rows in their place.
	ReplaceRows(ctx context.Context, rows []model.Row) error
	// SaveForms replaces the stored form table.
	SaveForms(ctx context.Context, t *form.Table) error
	// LoadForms rebuilds the form table. Returns ErrNoForms when none is stored.
	LoadForms(ctx context.Context) (*form.Table, error)
	// CountRows returns the number of stored rows.
	CountRows(ctx context.Context) (int, error)
	Close() error
}
