// internal/catalog/domain.go
package catalog

// Status is the availability of a book.
type Status string

const (
	StatusAvailable Status = "disponible"
	StatusLoaned    Status = "prestado"
)

// Book represents a registered book.
type Book struct {
	ID     int    `json:"id"`
	Name   string `json:"nombre"`
	Author string `json:"autor"`
	Year   int    `json:"anio"`
	Pages  int    `json:"paginas"`
	Status Status `json:"estado"`
}

// NewBook is the registration payload. Status is validated but never stored:
// every book starts out available.
type NewBook struct {
	ID     int    `json:"id" validate:"gt=0"`
	Name   string `json:"nombre" validate:"min=2,max=100,trimmed_min=2"`
	Author string `json:"autor" validate:"min=3,max=80"`
	Year   int    `json:"anio" validate:"pubyear"`
	Pages  int    `json:"paginas" validate:"gt=1"`
	Status string `json:"estado" validate:"omitempty,oneof=disponible prestado"`
}

// Listing is the result of List.
type Listing struct {
	Total     int
	Available int
	Books     []Book
}

// BookRegisteredEvent is published when a new book is registered.
type BookRegisteredEvent struct {
	ID     int    `json:"id"`
	Name   string `json:"nombre"`
	Author string `json:"autor"`
	Year   int    `json:"anio"`
	Pages  int    `json:"paginas"`
}

// BookStatusChangedEvent is published when a book is loaned or becomes
// available again.
type BookStatusChangedEvent struct {
	ID     int    `json:"id"`
	Status Status `json:"estado"`
}
