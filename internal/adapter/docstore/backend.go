// Package docstore maps the relay's domain stores onto a schemaless
// document backend keyed by collection and document id.
package docstore

import "context"

// DecodeFunc decodes the current document into dst.
type DecodeFunc func(dst any) error

// Backend is a minimal document store. Get returns domain.ErrNotFound for
// absent documents and wraps decode failures with domain.ErrMalformed.
type Backend interface {
	Get(ctx context.Context, collection, id string, dst any) error
	Set(ctx context.Context, collection, id string, v any) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string, fn func(id string, decode DecodeFunc) error) error
	Close() error
}
