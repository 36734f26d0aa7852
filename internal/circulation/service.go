// internal/circulation/service.go
package circulation

import (
	"context"

	"biblioteca/internal/catalog"
)

// Service defines the interface for the circulation service.
type Service interface {
	CreateLoan(ctx context.Context, bookID int, borrower Borrower) (*Loan, error)
	ReturnLoan(ctx context.Context, id int) (*Loan, error)
	DeleteLoan(ctx context.Context, id int) (*Loan, error)
	List(ctx context.Context) (*Listing, error)
}

// Catalog is the part of the catalog service that loans drive.
type Catalog interface {
	Checkout(ctx context.Context, id int) (*catalog.Book, error)
	SetLoaned(ctx context.Context, id int, loaned bool) error
}

// Journal records domain events.
type Journal interface {
	Record(ctx context.Context, aggregateType, aggregateID, eventType string, data any) error
}
