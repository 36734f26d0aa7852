// Package eventstore keeps an in-memory, append-only journal of domain events.
// Every mutation of the catalog, loan and user stores is recorded here so the
// history of a process can be inspected through the API.
package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
)

// Event represents a domain event with full metadata
type Event struct {
	ID            uuid.UUID         `json:"id"`
	Position      int64             `json:"posicion"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	EventType     string            `json:"event_type"`
	EventData     json.RawMessage   `json:"event_data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Version       int               `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
}

type aggregateKey struct {
	typ string
	id  string
}

// EventStore is safe for concurrent use.
type EventStore struct {
	mu       sync.RWMutex
	events   []Event
	versions map[aggregateKey]int
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures an EventStore.
type Option func(*EventStore)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(es *EventStore) {
		es.now = now
	}
}

func NewEventStore(opts ...Option) *EventStore {
	es := &EventStore{
		versions: make(map[aggregateKey]int),
		tracer:   otel.Tracer("biblioteca/eventstore"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(es)
	}
	return es
}

// AppendEvents atomically appends events with optimistic concurrency control
func (es *EventStore) AppendEvents(ctx context.Context, aggregateType, aggregateID string, expectedVersion int, events []Event) error {
	_, span := es.tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID),
			attribute.String("aggregate.type", aggregateType),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	if expectedVersion < 0 {
		return ErrInvalidVersion
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	key := aggregateKey{typ: aggregateType, id: aggregateID}
	currentVersion := es.versions[key]
	if currentVersion != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", currentVersion),
			attribute.Bool("conflict.detected", true),
		)
		return ErrConcurrencyConflict
	}

	requestID := middleware.GetReqID(ctx)
	for i, event := range events {
		event.ID = uuid.New()
		event.Position = int64(len(es.events)) + 1
		event.AggregateID = aggregateID
		event.AggregateType = aggregateType
		event.Version = expectedVersion + i + 1
		event.CreatedAt = es.now().UTC()
		if requestID != "" {
			if event.Metadata == nil {
				event.Metadata = make(map[string]string, 1)
			}
			event.Metadata["request_id"] = requestID
		}
		es.events = append(es.events, event)

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int64("event.position", event.Position),
			attribute.Int("event.version", event.Version),
			attribute.String("event.type", event.EventType),
		))
	}
	es.versions[key] = expectedVersion + len(events)

	span.SetAttributes(attribute.Bool("append.success", true))
	return nil
}

// Record marshals data and appends it as the next event of the aggregate.
func (es *EventStore) Record(ctx context.Context, aggregateType, aggregateID, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	version, err := es.GetCurrentVersion(ctx, aggregateType, aggregateID)
	if err != nil {
		return err
	}

	event := Event{EventType: eventType, EventData: payload}
	if err := es.AppendEvents(ctx, aggregateType, aggregateID, version, []Event{event}); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// LoadEvents retrieves the events of one aggregate. A toVersion of zero means
// no upper bound.
func (es *EventStore) LoadEvents(ctx context.Context, aggregateType, aggregateID string, fromVersion, toVersion int) ([]Event, error) {
	_, span := es.tracer.Start(ctx, "eventstore.load",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID),
			attribute.String("aggregate.type", aggregateType),
			attribute.Int("from.version", fromVersion),
			attribute.Int("to.version", toVersion),
		),
	)
	defer span.End()

	es.mu.RLock()
	defer es.mu.RUnlock()

	var events []Event
	for _, event := range es.events {
		if event.AggregateType != aggregateType || event.AggregateID != aggregateID {
			continue
		}
		if event.Version < fromVersion {
			continue
		}
		if toVersion > 0 && event.Version > toVersion {
			continue
		}
		events = append(events, event)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// GetCurrentVersion returns the latest version for an aggregate
func (es *EventStore) GetCurrentVersion(ctx context.Context, aggregateType, aggregateID string) (int, error) {
	_, span := es.tracer.Start(ctx, "eventstore.get_version",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID),
			attribute.String("aggregate.type", aggregateType),
		),
	)
	defer span.End()

	es.mu.RLock()
	version := es.versions[aggregateKey{typ: aggregateType, id: aggregateID}]
	es.mu.RUnlock()

	span.SetAttributes(attribute.Int("current.version", version))
	return version, nil
}

// StreamEvents provides a cursor-based event stream: it returns up to
// batchSize events whose position is greater than fromPosition.
func (es *EventStore) StreamEvents(ctx context.Context, fromPosition int64, batchSize int) ([]Event, error) {
	_, span := es.tracer.Start(ctx, "eventstore.stream",
		trace.WithAttributes(
			attribute.Int64("from.position", fromPosition),
			attribute.Int("batch.size", batchSize),
		),
	)
	defer span.End()

	if fromPosition < 0 || batchSize <= 0 {
		return nil, fmt.Errorf("invalid stream window (from %d, batch %d)", fromPosition, batchSize)
	}

	es.mu.RLock()
	defer es.mu.RUnlock()

	// positions are 1-based and dense
	start := int(min(fromPosition, int64(len(es.events))))
	end := min(start+batchSize, len(es.events))
	events := make([]Event, end-start)
	copy(events, es.events[start:end])

	span.SetAttributes(attribute.Int("events.streamed", len(events)))
	return events, nil
}
