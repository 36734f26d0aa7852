// internal/catalog/service.go
package catalog

import (
	"context"
)

// Service defines the interface for the catalog service.
type Service interface {
	Register(ctx context.Context, book NewBook) (*Book, error)
	List(ctx context.Context) (*Listing, error)
	SearchByName(ctx context.Context, query string) ([]Book, error)
	Get(ctx context.Context, id int) (*Book, error)
	// Checkout marks an available book as loaned in one step.
	Checkout(ctx context.Context, id int) (*Book, error)
	SetLoaned(ctx context.Context, id int, loaned bool) error
}

// Journal records domain events.
type Journal interface {
	Record(ctx context.Context, aggregateType, aggregateID, eventType string, data any) error
}
