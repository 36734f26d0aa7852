package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	Message string `json:"message"`
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestAppendEventsAssignsVersionsAndPositions(t *testing.T) {
	es := NewEventStore(WithClock(fixedClock))
	ctx := context.Background()

	require.NoError(t, es.AppendEvents(ctx, "libro", "1", 0, []Event{{EventType: "a"}, {EventType: "b"}}))
	require.NoError(t, es.AppendEvents(ctx, "prestamo", "1", 0, []Event{{EventType: "c"}}))

	events, err := es.StreamEvents(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, event := range events {
		assert.Equal(t, int64(i+1), event.Position)
		assert.Equal(t, fixedClock(), event.CreatedAt)
	}
	assert.Equal(t, 2, events[1].Version)
	assert.Equal(t, 1, events[2].Version)

	version, err := es.GetCurrentVersion(ctx, "libro", "1")
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestAppendEventsRejectsStaleVersion(t *testing.T) {
	es := NewEventStore()
	ctx := context.Background()

	require.NoError(t, es.AppendEvents(ctx, "libro", "1", 0, []Event{{EventType: "a"}}))

	err := es.AppendEvents(ctx, "libro", "1", 0, []Event{{EventType: "b"}})
	assert.ErrorIs(t, err, ErrConcurrencyConflict)

	err = es.AppendEvents(ctx, "libro", "1", -1, []Event{{EventType: "b"}})
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestRecordCopiesRequestID(t *testing.T) {
	es := NewEventStore()
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")

	require.NoError(t, es.Record(ctx, "usuario", "7", "UserCreated", testEvent{Message: "hola"}))

	events, err := es.LoadEvents(ctx, "usuario", "7", 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "req-42", events[0].Metadata["request_id"])
	assert.JSONEq(t, `{"message":"hola"}`, string(events[0].EventData))
}

func TestRecordIsSafeForConcurrentWriters(t *testing.T) {
	es := NewEventStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, es.Record(ctx, "libro", fmt.Sprint(i), "BookRegistered", testEvent{}))
		}()
	}
	wg.Wait()

	events, err := es.StreamEvents(ctx, 0, 100)
	require.NoError(t, err)
	assert.Len(t, events, 50)
}

func TestLoadEventsVersionWindow(t *testing.T) {
	es := NewEventStore()
	ctx := context.Background()
	for range 5 {
		require.NoError(t, es.Record(ctx, "libro", "1", "BookStatusChanged", testEvent{}))
	}

	events, err := es.LoadEvents(ctx, "libro", "1", 2, 4)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, 2, events[0].Version)
	assert.Equal(t, 4, events[2].Version)

	events, err = es.LoadEvents(ctx, "libro", "2", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStreamEventsCursor(t *testing.T) {
	es := NewEventStore()
	ctx := context.Background()
	for i := range 5 {
		require.NoError(t, es.Record(ctx, "libro", fmt.Sprint(i), "BookRegistered", testEvent{}))
	}

	page, err := es.StreamEvents(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(4), page[0].Position)

	page, err = es.StreamEvents(ctx, 9, 10)
	require.NoError(t, err)
	assert.Empty(t, page)

	_, err = es.StreamEvents(ctx, 0, 0)
	assert.Error(t, err)
}

func TestHandleStream(t *testing.T) {
	es := NewEventStore()
	ctx := context.Background()
	for i := range 3 {
		require.NoError(t, es.Record(ctx, "libro", fmt.Sprint(i), "BookRegistered", testEvent{}))
	}
	r := chi.NewRouter()
	r.Route("/v1/eventos", NewHandler(es).Routes)

	get := func(target string) (int, map[string]any) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return rec.Code, body
	}

	status, body := get("/v1/eventos/?limite=2")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, float64(2), body["siguiente"])

	status, body = get("/v1/eventos/?desde=2")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(3), body["siguiente"])

	status, _ = get("/v1/eventos/?limite=5000")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = get("/v1/eventos/?desde=abc")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func BenchmarkAppendEvents(b *testing.B) {
	es := NewEventStore()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		event := Event{EventType: "TestEvent", EventData: json.RawMessage(`{"message":"benchmark"}`)}
		if err := es.AppendEvents(ctx, "bench", fmt.Sprint(i), 0, []Event{event}); err != nil {
			b.Fatalf("failed to append event: %v", err)
		}
	}
}

func BenchmarkStreamEvents(b *testing.B) {
	es := NewEventStore()
	ctx := context.Background()
	for i := range 1000 {
		if err := es.Record(ctx, "bench", fmt.Sprint(i), "TestEvent", testEvent{Message: "benchmark"}); err != nil {
			b.Fatalf("failed to seed event: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := es.StreamEvents(ctx, int64(i%900), 100); err != nil {
			b.Fatalf("failed to stream events: %v", err)
		}
	}
}
