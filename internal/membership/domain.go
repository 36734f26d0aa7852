// internal/membership/domain.go
package membership

import (
	"encoding/json"
	"maps"
)

// Record is a user as stored: an arbitrary JSON object. Records created
// through the validated path always carry id, nombre and edad; records from
// the raw path carry whatever the caller sent.
type Record map[string]any

// NewUser is the validated user shape.
type NewUser struct {
	ID   int    `json:"id" validate:"gt=0"`
	Name string `json:"nombre" validate:"min=3,max=50"`
	Age  int    `json:"edad" validate:"min=1,max=123"`
}

func (u NewUser) record() Record {
	return Record{"id": u.ID, "nombre": u.Name, "edad": u.Age}
}

// DefaultSeed returns the demo users the registry starts with.
func DefaultSeed() []Record {
	return []Record{
		{"id": 1, "nombre": "Tania", "edad": 22},
		{"id": 2, "nombre": "David", "edad": 19},
		{"id": 3, "nombre": "Mario", "edad": 23},
	}
}

// sameID compares id values the way JSON clients expect: numbers are equal
// when their values are, whatever Go type decoding produced. Records without
// an id never match.
func sameID(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	na, aNumeric := asNumber(a)
	nb, bNumeric := asNumber(b)
	if aNumeric || bNumeric {
		return aNumeric && bNumeric && na == nb
	}
	switch a.(type) {
	case string, bool:
		return a == b
	}
	return false
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// withoutID copies r dropping its "id" key.
func withoutID(r Record) Record {
	out := maps.Clone(r)
	if out == nil {
		out = Record{}
	}
	delete(out, "id")
	return out
}

// UserCreatedEvent is published when a user is added by either path.
type UserCreatedEvent struct {
	User      Record `json:"usuario"`
	Validated bool   `json:"validado"`
}

// UserUpdatedEvent is published on full replacement and on partial updates.
type UserUpdatedEvent struct {
	ID      int    `json:"id"`
	Fields  Record `json:"campos"`
	Partial bool   `json:"parcial"`
}

// UserDeletedEvent is published when a user is removed.
type UserDeletedEvent struct {
	ID int `json:"id"`
}
