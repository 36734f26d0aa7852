// internal/catalog/implementation.go
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"biblioteca/internal/apperr"
	"biblioteca/internal/validation"
)

const aggregateType = "libro"

// minQueryLength applies to the trimmed search term.
const minQueryLength = 2

// service implements the Service interface.
type service struct {
	mu    sync.Mutex
	books []*Book
	byID  map[int]*Book

	journal   Journal
	validator *validation.Validator
	tracer    trace.Tracer

	registered    metric.Int64Counter
	statusChanges metric.Int64Counter
}

// NewService creates a new catalog service instance with an empty catalog.
func NewService(journal Journal, validator *validation.Validator) Service {
	meter := otel.Meter("biblioteca/catalog")
	registered, err := meter.Int64Counter("catalog.books.registered",
		metric.WithDescription("Books added to the catalog"))
	if err != nil {
		otel.Handle(err)
	}
	statusChanges, err := meter.Int64Counter("catalog.books.status_changes",
		metric.WithDescription("Availability transitions of books"))
	if err != nil {
		otel.Handle(err)
	}

	return &service{
		byID:          make(map[int]*Book),
		journal:       journal,
		validator:     validator,
		tracer:        otel.Tracer("biblioteca/catalog"),
		registered:    registered,
		statusChanges: statusChanges,
	}
}

// Register adds a book to the catalog. The stored status is always available.
func (s *service) Register(ctx context.Context, nb NewBook) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.register",
		trace.WithAttributes(attribute.Int("book.id", nb.ID)))
	defer span.End()

	if err := s.validator.Struct(nb); err != nil {
		return nil, fail(span, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[nb.ID]; exists {
		return nil, fail(span, apperr.Conflict("Ya existe un libro con el id %d", nb.ID))
	}

	book := &Book{
		ID:     nb.ID,
		Name:   strings.TrimSpace(nb.Name),
		Author: nb.Author,
		Year:   nb.Year,
		Pages:  nb.Pages,
		Status: StatusAvailable,
	}

	event := BookRegisteredEvent{
		ID:     book.ID,
		Name:   book.Name,
		Author: book.Author,
		Year:   book.Year,
		Pages:  book.Pages,
	}
	if err := s.journal.Record(ctx, aggregateType, strconv.Itoa(book.ID), "BookRegistered", event); err != nil {
		return nil, fail(span, fmt.Errorf("failed to record event: %w", err))
	}

	s.books = append(s.books, book)
	s.byID[book.ID] = book
	s.registered.Add(ctx, 1)

	stored := *book
	return &stored, nil
}

// List returns every book in registration order.
func (s *service) List(ctx context.Context) (*Listing, error) {
	_, span := s.tracer.Start(ctx, "catalog.list")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	listing := &Listing{Books: make([]Book, 0, len(s.books))}
	for _, book := range s.books {
		if book.Status == StatusAvailable {
			listing.Available++
		}
		listing.Books = append(listing.Books, *book)
	}
	listing.Total = len(listing.Books)

	span.SetAttributes(attribute.Int("books.total", listing.Total))
	return listing, nil
}

// SearchByName finds books whose name contains query, ignoring case. Only the
// length check trims the query; matching uses it as given.
func (s *service) SearchByName(ctx context.Context, query string) ([]Book, error) {
	_, span := s.tracer.Start(ctx, "catalog.search",
		trace.WithAttributes(attribute.String("search.query", query)))
	defer span.End()

	if utf8.RuneCountInString(strings.TrimSpace(query)) < minQueryLength {
		return nil, fail(span, apperr.BadRequest("El parámetro 'nombre' debe tener al menos %d caracteres", minQueryLength))
	}

	needle := strings.ToLower(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	matches := make([]Book, 0)
	for _, book := range s.books {
		if strings.Contains(strings.ToLower(book.Name), needle) {
			matches = append(matches, *book)
		}
	}

	if len(matches) == 0 {
		return nil, fail(span, apperr.NotFound("No se encontraron libros que contengan '%s'", query))
	}

	span.SetAttributes(attribute.Int("search.matches", len(matches)))
	return matches, nil
}

// Get retrieves a book by its ID.
func (s *service) Get(ctx context.Context, id int) (*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.byID[id]
	if !ok {
		return nil, apperr.NotFound("No existe un libro con id %d", id)
	}
	found := *book
	return &found, nil
}

// Checkout moves an available book to loaned and returns it.
func (s *service) Checkout(ctx context.Context, id int) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.checkout",
		trace.WithAttributes(attribute.Int("book.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.byID[id]
	if !ok {
		return nil, fail(span, apperr.NotFound("No existe un libro con id %d", id))
	}
	if book.Status == StatusLoaned {
		return nil, fail(span, apperr.Conflict("El libro '%s' ya está prestado", book.Name))
	}

	if err := s.setStatus(ctx, book, StatusLoaned); err != nil {
		return nil, fail(span, err)
	}

	loaned := *book
	return &loaned, nil
}

// SetLoaned forces the availability of a book. Setting the current status
// again is a no-op.
func (s *service) SetLoaned(ctx context.Context, id int, loaned bool) error {
	ctx, span := s.tracer.Start(ctx, "catalog.set_loaned",
		trace.WithAttributes(
			attribute.Int("book.id", id),
			attribute.Bool("book.loaned", loaned),
		))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.byID[id]
	if !ok {
		return fail(span, apperr.NotFound("No existe un libro con id %d", id))
	}

	status := StatusAvailable
	if loaned {
		status = StatusLoaned
	}
	if book.Status == status {
		return nil
	}
	return fail(span, s.setStatus(ctx, book, status))
}

// setStatus must be called with s.mu held.
func (s *service) setStatus(ctx context.Context, book *Book, status Status) error {
	event := BookStatusChangedEvent{ID: book.ID, Status: status}
	if err := s.journal.Record(ctx, aggregateType, strconv.Itoa(book.ID), "BookStatusChanged", event); err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	book.Status = status
	s.statusChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("estado", string(status))))
	return nil
}

func fail(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
