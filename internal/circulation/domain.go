// internal/circulation/domain.go
package circulation

import "time"

// DateLayout is the calendar-date format of loan and return dates.
const DateLayout = time.DateOnly

// Loan represents a book lent to a borrower. BookName is a snapshot taken
// when the loan was created.
type Loan struct {
	ID         int    `json:"id"`
	BookID     int    `json:"libro_id"`
	BookName   string `json:"nombre_libro"`
	UserName   string `json:"usuario_nombre"`
	UserEmail  string `json:"usuario_correo"`
	LoanDate   string `json:"fecha_prestamo"`
	Returned   bool   `json:"devuelto"`
	ReturnDate string `json:"fecha_devolucion,omitempty"`
}

// Active reports whether the book has not been returned yet.
func (l Loan) Active() bool {
	return !l.Returned
}

// Borrower identifies who takes a book.
type Borrower struct {
	Name  string `json:"nombre" validate:"min=2,max=80"`
	Email string `json:"correo" validate:"required,email"`
}

// Listing is the result of List.
type Listing struct {
	Total  int
	Active int
	Loans  []Loan
}

// LoanCreatedEvent is published when a book is lent.
type LoanCreatedEvent struct {
	LoanID    int    `json:"prestamo_id"`
	BookID    int    `json:"libro_id"`
	UserName  string `json:"usuario_nombre"`
	UserEmail string `json:"usuario_correo"`
	LoanDate  string `json:"fecha_prestamo"`
}

// LoanReturnedEvent is published when a book is returned.
type LoanReturnedEvent struct {
	LoanID     int    `json:"prestamo_id"`
	BookID     int    `json:"libro_id"`
	ReturnDate string `json:"fecha_devolucion"`
}

// LoanDeletedEvent is published when a loan record is removed. WasActive
// tells whether the book had to be released as a consequence.
type LoanDeletedEvent struct {
	LoanID    int  `json:"prestamo_id"`
	BookID    int  `json:"libro_id"`
	WasActive bool `json:"estaba_activo"`
}
