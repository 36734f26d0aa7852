// internal/membership/implementation.go
package membership

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"biblioteca/internal/apperr"
	"biblioteca/internal/validation"
)

const aggregateType = "usuario"

// service implements the Service interface.
type service struct {
	mu    sync.Mutex
	users []Record

	journal   Journal
	validator *validation.Validator
	tracer    trace.Tracer
	created   metric.Int64Counter
}

// Option configures the user registry.
type Option func(*service)

// WithSeed preloads the registry. Seeded users are not journaled.
func WithSeed(records ...Record) Option {
	return func(s *service) {
		for _, r := range records {
			s.users = append(s.users, maps.Clone(r))
		}
	}
}

// NewService creates a new user registry.
func NewService(journal Journal, validator *validation.Validator, opts ...Option) Service {
	s := &service{
		journal:   journal,
		validator: validator,
		tracer:    otel.Tracer("biblioteca/membership"),
	}
	for _, opt := range opts {
		opt(s)
	}

	created, err := otel.Meter("biblioteca/membership").Int64Counter("membership.users.created")
	if err != nil {
		otel.Handle(err)
	}
	s.created = created

	return s
}

// List returns every user in insertion order.
func (s *service) List(ctx context.Context) ([]Record, error) {
	_, span := s.tracer.Start(ctx, "membership.list")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]Record, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, maps.Clone(u))
	}
	return users, nil
}

// Get retrieves a user by id.
func (s *service) Get(ctx context.Context, id int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, errUserNotFound()
	}
	return maps.Clone(s.users[idx]), nil
}

// CreateUnvalidated stores record as given. Only the id is checked.
func (s *service) CreateUnvalidated(ctx context.Context, record Record) (Record, error) {
	ctx, span := s.tracer.Start(ctx, "membership.create_unvalidated")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.insert(ctx, maps.Clone(record), false)
	return created, fail(span, err)
}

// CreateValidated checks the NewUser constraints before storing it.
func (s *service) CreateValidated(ctx context.Context, user NewUser) (Record, error) {
	ctx, span := s.tracer.Start(ctx, "membership.create_validated",
		trace.WithAttributes(attribute.Int("user.id", user.ID)))
	defer span.End()

	if err := s.validator.Struct(user); err != nil {
		return nil, fail(span, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.insert(ctx, user.record(), true)
	return created, fail(span, err)
}

// insert requires s.mu.
func (s *service) insert(ctx context.Context, record Record, validated bool) (Record, error) {
	if record == nil {
		record = Record{}
	}

	id := record["id"]
	if slices.ContainsFunc(s.users, func(u Record) bool { return sameID(u["id"], id) }) {
		return nil, apperr.BadRequest("El id ya existe")
	}

	event := UserCreatedEvent{User: record, Validated: validated}
	if err := s.journal.Record(ctx, aggregateType, aggregateIDOf(id), "UserCreated", event); err != nil {
		return nil, fmt.Errorf("failed to record event: %w", err)
	}

	s.users = append(s.users, record)
	s.created.Add(ctx, 1, metric.WithAttributes(attribute.Bool("validated", validated)))
	return maps.Clone(record), nil
}

// Replace swaps every field but the id.
func (s *service) Replace(ctx context.Context, id int, record Record) (Record, error) {
	ctx, span := s.tracer.Start(ctx, "membership.replace",
		trace.WithAttributes(attribute.Int("user.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, fail(span, errUserNotFound())
	}

	fields := withoutID(record)
	event := UserUpdatedEvent{ID: id, Fields: fields}
	if err := s.journal.Record(ctx, aggregateType, strconv.Itoa(id), "UserReplaced", event); err != nil {
		return nil, fail(span, fmt.Errorf("failed to record event: %w", err))
	}

	replaced := Record{"id": id}
	maps.Copy(replaced, fields)
	s.users[idx] = replaced
	return maps.Clone(replaced), nil
}

// Patch merges fields, except the id, into the stored user.
func (s *service) Patch(ctx context.Context, id int, fields Record) (Record, error) {
	ctx, span := s.tracer.Start(ctx, "membership.patch",
		trace.WithAttributes(attribute.Int("user.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, fail(span, errUserNotFound())
	}

	changes := withoutID(fields)
	event := UserUpdatedEvent{ID: id, Fields: changes, Partial: true}
	if err := s.journal.Record(ctx, aggregateType, strconv.Itoa(id), "UserPatched", event); err != nil {
		return nil, fail(span, fmt.Errorf("failed to record event: %w", err))
	}

	maps.Copy(s.users[idx], changes)
	return maps.Clone(s.users[idx]), nil
}

// Delete removes a user and returns it.
func (s *service) Delete(ctx context.Context, id int) (Record, error) {
	ctx, span := s.tracer.Start(ctx, "membership.delete",
		trace.WithAttributes(attribute.Int("user.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, fail(span, errUserNotFound())
	}

	if err := s.journal.Record(ctx, aggregateType, strconv.Itoa(id), "UserDeleted", UserDeletedEvent{ID: id}); err != nil {
		return nil, fail(span, fmt.Errorf("failed to record event: %w", err))
	}

	deleted := s.users[idx]
	s.users = slices.Delete(s.users, idx, idx+1)
	return deleted, nil
}

func (s *service) indexOf(id int) int {
	return slices.IndexFunc(s.users, func(u Record) bool { return sameID(u["id"], id) })
}

func errUserNotFound() error {
	return apperr.NotFound("Usuario no encontrado")
}

func aggregateIDOf(id any) string {
	if id == nil {
		return "sin-id"
	}
	return fmt.Sprint(id)
}

func fail(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
