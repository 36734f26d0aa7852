// internal/membership/service.go
package membership

import (
	"context"
)

// Service defines the interface for the user registry.
//
// There are two creation paths on purpose: CreateUnvalidated accepts any JSON
// object, CreateValidated enforces the NewUser shape. Both reject duplicate
// ids with a BadRequest error.
type Service interface {
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id int) (Record, error)
	CreateUnvalidated(ctx context.Context, record Record) (Record, error)
	CreateValidated(ctx context.Context, user NewUser) (Record, error)
	Replace(ctx context.Context, id int, record Record) (Record, error)
	Patch(ctx context.Context, id int, fields Record) (Record, error)
	Delete(ctx context.Context, id int) (Record, error)
}

// Journal records domain events.
type Journal interface {
	Record(ctx context.Context, aggregateType, aggregateID, eventType string, data any) error
}
