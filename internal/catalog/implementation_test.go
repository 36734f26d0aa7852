package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"biblioteca/internal/apperr"
	"biblioteca/internal/eventstore"
	"biblioteca/internal/validation"
)

func fixedClock() time.Time {
	return time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)
}

func newTestService() (Service, *eventstore.EventStore) {
	es := eventstore.NewEventStore()
	return NewService(es, validation.New(fixedClock)), es
}

func dune() NewBook {
	return NewBook{ID: 1, Name: "Dune", Author: "Frank Herbert", Year: 1965, Pages: 412}
}

func TestRegisterForcesAvailableStatus(t *testing.T) {
	svc, es := newTestService()
	ctx := context.Background()

	req := dune()
	req.Status = string(StatusLoaned)
	book, err := svc.Register(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, book.Status)

	events, err := es.LoadEvents(ctx, "libro", "1", 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "BookRegistered", events[0].EventType)
}

func TestRegisterTrimsName(t *testing.T) {
	svc, _ := newTestService()

	req := dune()
	req.Name = "  Dune  "
	book, err := svc.Register(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Name)
}

func TestRegisterRejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NewBook)
	}{
		{"zero id", func(b *NewBook) { b.ID = 0 }},
		{"short name", func(b *NewBook) { b.Name = "D" }},
		{"blank name", func(b *NewBook) { b.Name = "   " }},
		{"short author", func(b *NewBook) { b.Author = "Fr" }},
		{"year too old", func(b *NewBook) { b.Year = 1450 }},
		{"year in future", func(b *NewBook) { b.Year = 2025 }},
		{"one page", func(b *NewBook) { b.Pages = 1 }},
		{"unknown status", func(b *NewBook) { b.Status = "perdido" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			req := dune()
			tt.mutate(&req)

			_, err := svc.Register(context.Background(), req)

			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestRegisterDuplicateIDConflicts(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc, _ := newTestService()
		ctx := context.Background()
		_, err := svc.Register(ctx, dune())
		require.NoError(t, err)

		other := NewBook{
			ID:     1,
			Name:   rapid.StringMatching(`[A-Za-z]{2,40}`).Draw(t, "name"),
			Author: rapid.StringMatching(`[A-Za-z]{3,40}`).Draw(t, "author"),
			Year:   rapid.IntRange(1451, 2024).Draw(t, "year"),
			Pages:  rapid.IntRange(2, 5000).Draw(t, "pages"),
		}
		_, err = svc.Register(ctx, other)

		assert.ErrorIs(t, err, apperr.ErrConflict)
	})
}

func TestListCountsAvailableBooks(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, dune())
	require.NoError(t, err)
	second := dune()
	second.ID, second.Name = 2, "Hyperion"
	_, err = svc.Register(ctx, second)
	require.NoError(t, err)
	_, err = svc.Checkout(ctx, 2)
	require.NoError(t, err)

	listing, err := svc.List(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, listing.Total)
	assert.Equal(t, 1, listing.Available)
	assert.Equal(t, []int{1, 2}, []int{listing.Books[0].ID, listing.Books[1].ID})
}

func TestSearchByName(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	req := dune()
	req.Name = "Cien Años de Soledad"
	req.Author = "Gabriel García Márquez"
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	books, err := svc.SearchByName(ctx, "años")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Cien Años de Soledad", books[0].Name)

	_, err = svc.SearchByName(ctx, "quijote")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.SearchByName(ctx, " a ")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	_, err = svc.SearchByName(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestCheckoutAndSetLoaned(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Register(ctx, dune())
	require.NoError(t, err)

	book, err := svc.Checkout(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusLoaned, book.Status)

	_, err = svc.Checkout(ctx, 1)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	require.NoError(t, svc.SetLoaned(ctx, 1, false))
	book, err = svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, book.Status)

	_, err = svc.Checkout(ctx, 99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, svc.SetLoaned(ctx, 99, true), apperr.ErrNotFound)
}
