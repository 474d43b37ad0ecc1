package model

import "time"

// QRCode maps a scannable token onto the record it identifies.
type QRCode struct {
	ID          int64     `json:"id"`
	Kind        string    `json:"kind"`
	ReferenceID string    `json:"reference_id"`
	Data        string    `json:"data"`
	ImageKey    string    `json:"image_key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Kinds of records a token can identify.
const (
	KindPersonnel = "personnel"
	KindItem      = "item"
)

// ValidKind reports whether k names a record kind.
func ValidKind(k string) bool {
	return k == KindPersonnel || k == KindItem
}
