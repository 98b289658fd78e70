package storage

import (
	"context"

	"calmkit/internal/model"
)

// Store persists encoded weight files and latent libraries, keyed by name.
type Store interface {
	Init(ctx context.Context) error
	SaveModel(ctx context.Context, record model.ModelRecord) error
	GetModel(ctx context.Context, name string) (model.ModelRecord, bool, error)
	ListModels(ctx context.Context) ([]model.ModelRecord, error)
	DeleteModel(ctx context.Context, name string) error
	SaveLibrary(ctx context.Context, record model.LibraryRecord) error
	GetLibrary(ctx context.Context, name string) (model.LibraryRecord, bool, error)
	ListLibraries(ctx context.Context) ([]string, error)
}
