// internal/circulation/implementation.go
package circulation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"biblioteca/internal/apperr"
	"biblioteca/internal/validation"
)

const aggregateType = "prestamo"

// service implements the Service interface. mu guards loans and nextID for
// the whole read-modify-write of every operation, including the calls into
// the catalog, so the book status always matches the active loans.
type service struct {
	mu     sync.Mutex
	loans  []Loan
	nextID int

	catalog   Catalog
	journal   Journal
	validator *validation.Validator
	now       func() time.Time
	logger    *slog.Logger
	tracer    trace.Tracer

	created  metric.Int64Counter
	returned metric.Int64Counter
	deleted  metric.Int64Counter
	active   metric.Int64UpDownCounter
}

// Option configures the circulation service.
type Option func(*service)

// WithClock sets the source of loan and return dates.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithLogger sets the logger used for compensating actions.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// NewService creates a new circulation service instance. Loan ids start at 1.
func NewService(catalog Catalog, journal Journal, validator *validation.Validator, opts ...Option) Service {
	s := &service{
		nextID:    1,
		catalog:   catalog,
		journal:   journal,
		validator: validator,
		now:       time.Now,
		logger:    slog.Default(),
		tracer:    otel.Tracer("biblioteca/circulation"),
	}
	for _, opt := range opts {
		opt(s)
	}

	meter := otel.Meter("biblioteca/circulation")
	var err error
	if s.created, err = meter.Int64Counter("circulation.loans.created"); err != nil {
		otel.Handle(err)
	}
	if s.returned, err = meter.Int64Counter("circulation.loans.returned"); err != nil {
		otel.Handle(err)
	}
	if s.deleted, err = meter.Int64Counter("circulation.loans.deleted"); err != nil {
		otel.Handle(err)
	}
	if s.active, err = meter.Int64UpDownCounter("circulation.loans.active",
		metric.WithDescription("Loans not yet returned")); err != nil {
		otel.Handle(err)
	}

	return s
}

// CreateLoan lends a book. The catalog flips the book to loaned first; if the
// loan cannot be recorded afterwards the book is released again.
func (s *service) CreateLoan(ctx context.Context, bookID int, borrower Borrower) (*Loan, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.create_loan",
		trace.WithAttributes(attribute.Int("book.id", bookID)))
	defer span.End()

	if err := s.validator.Struct(borrower); err != nil {
		return nil, fail(span, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Step 1: mark the book as loaned (NotFound / Conflict come from here)
	book, err := s.catalog.Checkout(ctx, bookID)
	if err != nil {
		return nil, fail(span, err)
	}

	compensation := func() {
		s.logger.WarnContext(ctx, "compensating for failed loan: releasing book", slog.Int("book_id", bookID))
		if err := s.catalog.SetLoaned(ctx, bookID, false); err != nil {
			s.logger.ErrorContext(ctx, "failed to compensate book availability",
				slog.Int("book_id", bookID), slog.Any("error", err))
		}
	}

	// Step 2: build and record the loan
	loan := Loan{
		ID:        s.nextID,
		BookID:    book.ID,
		BookName:  book.Name,
		UserName:  borrower.Name,
		UserEmail: borrower.Email,
		LoanDate:  s.today(),
	}

	event := LoanCreatedEvent{
		LoanID:    loan.ID,
		BookID:    loan.BookID,
		UserName:  loan.UserName,
		UserEmail: loan.UserEmail,
		LoanDate:  loan.LoanDate,
	}
	if err := s.journal.Record(ctx, aggregateType, strconv.Itoa(loan.ID), "LoanCreated", event); err != nil {
		compensation()
		return nil, fail(span, fmt.Errorf("failed to record event: %w", err))
	}

	// Step 3: store it; ids are never handed out twice
	s.loans = append(s.loans, loan)
	s.nextID++

	s.created.Add(ctx, 1)
	s.active.Add(ctx, 1)
	span.SetAttributes(attribute.Int("loan.id", loan.ID))
	return &loan, nil
}

// ReturnLoan marks a loan as returned and releases its book.
func (s *service) ReturnLoan(ctx context.Context, id int) (*Loan, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.return_loan",
		trace.WithAttributes(attribute.Int("loan.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, fail(span, apperr.NotFound("No existe un préstamo con id %d", id))
	}
	loan := &s.loans[idx]
	if loan.Returned {
		return nil, fail(span, apperr.Conflict("El préstamo con id %d ya fue marcado como devuelto anteriormente", id))
	}

	// Step 1: release the book as if the loan were already returned
	if err := s.syncBookStatus(ctx, loan.BookID, loan.ID); err != nil {
		return nil, fail(span, err)
	}

	// Step 2: record the return; on failure the loan is still active
	returnDate := s.today()
	event := LoanReturnedEvent{LoanID: loan.ID, BookID: loan.BookID, ReturnDate: returnDate}
	if err := s.journal.Record(ctx, aggregateType, strconv.Itoa(loan.ID), "LoanReturned", event); err != nil {
		s.restoreBookStatus(ctx, loan.BookID)
		return nil, fail(span, fmt.Errorf("failed to record event: %w", err))
	}

	// Step 3: apply it
	loan.Returned = true
	loan.ReturnDate = returnDate

	s.returned.Add(ctx, 1)
	s.active.Add(ctx, -1)
	updated := *loan
	return &updated, nil
}

// DeleteLoan removes a loan record. A missing loan is reported as a conflict
// rather than not found. Deleting an active loan releases its book.
func (s *service) DeleteLoan(ctx context.Context, id int) (*Loan, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.delete_loan",
		trace.WithAttributes(attribute.Int("loan.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, fail(span, apperr.Conflict("El registro del préstamo con id %d ya no existe", id))
	}
	deleted := s.loans[idx]

	if deleted.Active() {
		s.logger.WarnContext(ctx, "active loan deleted, releasing book",
			slog.Int("loan_id", deleted.ID), slog.Int("book_id", deleted.BookID))
		if err := s.syncBookStatus(ctx, deleted.BookID, deleted.ID); err != nil {
			return nil, fail(span, err)
		}
	}

	event := LoanDeletedEvent{LoanID: deleted.ID, BookID: deleted.BookID, WasActive: deleted.Active()}
	if err := s.journal.Record(ctx, aggregateType, strconv.Itoa(deleted.ID), "LoanDeleted", event); err != nil {
		if deleted.Active() {
			s.restoreBookStatus(ctx, deleted.BookID)
		}
		return nil, fail(span, fmt.Errorf("failed to record event: %w", err))
	}

	s.loans = slices.Delete(s.loans, idx, idx+1)
	if deleted.Active() {
		s.active.Add(ctx, -1)
	}

	s.deleted.Add(ctx, 1, metric.WithAttributes(attribute.Bool("was_active", deleted.Active())))
	return &deleted, nil
}

// List returns every loan in creation order.
func (s *service) List(ctx context.Context) (*Listing, error) {
	_, span := s.tracer.Start(ctx, "circulation.list")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	listing := &Listing{
		Total: len(s.loans),
		Loans: slices.Clone(s.loans),
	}
	if listing.Loans == nil {
		listing.Loans = []Loan{}
	}
	for _, loan := range s.loans {
		if loan.Active() {
			listing.Active++
		}
	}
	return listing, nil
}

// syncBookStatus derives the availability of a book from the loans that are
// still active, ignoring loan skipID, instead of trusting its current flag.
// Loan ids start at 1, so a skipID of 0 ignores nothing. Requires s.mu.
func (s *service) syncBookStatus(ctx context.Context, bookID, skipID int) error {
	loaned := slices.ContainsFunc(s.loans, func(l Loan) bool {
		return l.ID != skipID && l.BookID == bookID && l.Active()
	})
	if err := s.catalog.SetLoaned(ctx, bookID, loaned); err != nil {
		return fmt.Errorf("failed to update book %d: %w", bookID, err)
	}
	return nil
}

// restoreBookStatus undoes an early release after a later step failed.
// Requires s.mu.
func (s *service) restoreBookStatus(ctx context.Context, bookID int) {
	s.logger.WarnContext(ctx, "compensating for failed loan update: restoring book", slog.Int("book_id", bookID))
	if err := s.syncBookStatus(ctx, bookID, 0); err != nil {
		s.logger.ErrorContext(ctx, "failed to compensate book availability",
			slog.Int("book_id", bookID), slog.Any("error", err))
	}
}

func (s *service) indexOf(id int) int {
	return slices.IndexFunc(s.loans, func(l Loan) bool { return l.ID == id })
}

func (s *service) today() string {
	return s.now().Format(DateLayout)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
