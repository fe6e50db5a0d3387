// Package storage persists extracted question catalogs.
package storage

import (
	"context"
	"errors"

	"github.com/knowledge-engine/quizbank/internal/record"
)

// ErrNoCatalog is returned by Load when nothing has been saved yet.
var ErrNoCatalog = errors.New("no saved catalog")

// CatalogStorage defines the interface for saving extracted catalogs
type CatalogStorage interface {
	Save(ctx context.Context, c *record.Catalog) error
	Load(ctx context.Context) (*record.Catalog, error)
	Close() error
}
