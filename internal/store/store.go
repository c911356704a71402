package store

import (
	"context"
	"errors"

	"github.com/l2laihub/portrait-prompt-engine/internal/template"
)

// ErrNotFound is returned when no template matches the query.
var ErrNotFound = errors.New("template not found")

// Store is the engine's template-definition source. The engine only reads;
// Put and Delete exist for the admin tooling that owns template lifecycle.
type Store interface {
	// Get returns the template with the given id.
	Get(ctx context.Context, id string) (*template.Definition, error)
	// GetDefault returns the default template for a portrait type.
	GetDefault(ctx context.Context, portraitType template.PortraitType) (*template.Definition, error)
	// List returns all templates, optionally filtered by portrait type.
	List(ctx context.Context, portraitType template.PortraitType) ([]*template.Definition, error)
	// Put inserts or replaces a template, bumping its version on replace.
	Put(ctx context.Context, def *template.Definition) error
	// Delete removes a template by id.
	Delete(ctx context.Context, id string) error
	// Close releases any underlying resources.
	Close() error
}
