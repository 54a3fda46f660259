package hydrotwin

import (
	"context"
	"errors"
)

// ErrModelNotFound is returned by a Store when no model is saved under the
// requested name.
var ErrModelNotFound = errors.New("model not found")

// Store persists models by name.
//
// Saving under an existing name replaces the previous model. Implementations
// must be safe for concurrent use.
type Store interface {
	SaveModel(ctx context.Context, name string, m *Model) error
	LoadModel(ctx context.Context, name string) (*Model, error)
	DeleteModel(ctx context.Context, name string) error
}
