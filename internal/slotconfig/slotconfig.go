// Package slotconfig loads and stores machine definitions.
package slotconfig

import (
	"context"
	"errors"

	"github.com/alexbotov/slotsrv/internal/game"
)

var ErrConfigNotFound = errors.New("slot configuration not found")

// Provider yields machine definitions by id.
type Provider interface {
	Definition(ctx context.Context, id int64) (*game.Definition, error)
	List(ctx context.Context) ([]game.Config, error)
}

// Saver stores a definition and returns its id.
type Saver interface {
	Save(ctx context.Context, def *game.Definition) (int64, error)
}

// Deactivator retires a definition so it can no longer be listed or played.
type Deactivator interface {
	Deactivate(ctx context.Context, id int64) error
}
