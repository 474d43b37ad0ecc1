package model

import "time"

// Registered is emitted after a person or item has been stored. It carries
// everything the QR service needs to render and map the record's token.
type Registered struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	ReferenceID string    `json:"reference_id"`
	Data        string    `json:"data"`
	At          time.Time `json:"at"`
}
