package model

import (
	"strings"
	"time"
)

// Transaction is an immutable ledger entry recording a take or a return.
type Transaction struct {
	ID            int64     `json:"id"`
	PersonID      string    `json:"person_id"`
	ItemID        string    `json:"item_id"`
	Action        string    `json:"action"`
	OccurredAt    time.Time `json:"occurred_at"`
	MagazineCount *int      `json:"magazine_count,omitempty"`
	RoundCount    *int      `json:"round_count,omitempty"`
	DutyType      string    `json:"duty_type,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	RecordedBy    *int64    `json:"recorded_by,omitempty"`

	// Joined fields (not always populated).
	PersonName string `json:"person_name,omitempty"`
	PersonRank string `json:"person_rank,omitempty"`
	ItemType   string `json:"item_type,omitempty"`
	ItemSerial string `json:"item_serial,omitempty"`
}

// Ledger actions.
const (
	ActionTake   = "Take"
	ActionReturn = "Return"
)

// DutyTypes lists the duty types offered on the issue form. Other values are accepted as free text.
var DutyTypes = []string{
	"Duty Sentinel",
	"Duty Security",
	"Vigil",
	"Guard Duty",
	"Patrol",
	"Training",
}

// TransactionMeta carries the optional fields of a ledger entry.
type TransactionMeta struct {
	MagazineCount *int
	RoundCount    *int
	DutyType      string
	Notes         string
	RecordedBy    *int64
}

// Validate checks the optional fields.
func (m TransactionMeta) Validate() error {
	var errs []FieldError
	if m.MagazineCount != nil && *m.MagazineCount < 0 {
		errs = append(errs, FieldError{Field: "magazines", Message: "must not be negative"})
	}
	if m.RoundCount != nil && *m.RoundCount < 0 {
		errs = append(errs, FieldError{Field: "rounds", Message: "must not be negative"})
	}
	if len(m.DutyType) > 100 {
		errs = append(errs, FieldError{Field: "duty_type", Message: "is too long"})
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// CanonicalAction maps user input onto a ledger action.
func CanonicalAction(a string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(a)) {
	case "take":
		return ActionTake, true
	case "return":
		return ActionReturn, true
	}
	return a, false
}

// TransactionFilter narrows a transaction history query. Zero values mean no filter.
type TransactionFilter struct {
	PersonID string
	ItemID   string
	Action   string
	DutyType string
	From     time.Time
	To       time.Time
	Limit    int
}

// CustodyRecord describes an item currently issued and who holds it.
type CustodyRecord struct {
	ItemID        string    `json:"item_id"`
	ItemType      string    `json:"item_type"`
	ItemSerial    string    `json:"item_serial"`
	PersonID      string    `json:"person_id"`
	PersonName    string    `json:"person_name"`
	PersonRank    string    `json:"person_rank"`
	TransactionID int64     `json:"transaction_id"`
	TakenAt       time.Time `json:"taken_at"`
	DutyType      string    `json:"duty_type,omitempty"`
}
