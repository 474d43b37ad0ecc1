package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Item is an individually tracked weapon.
type Item struct {
	ID               string    `json:"id"`
	ItemType         string    `json:"item_type"`
	Serial           string    `json:"serial"`
	Description      string    `json:"description,omitempty"`
	Condition        string    `json:"condition"`
	Status           string    `json:"status"`
	QRCode           string    `json:"qr_code"`
	RegistrationDate time.Time `json:"registration_date"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Item types.
const (
	ItemTypeM14   = "M14"
	ItemTypeM16   = "M16"
	ItemTypeM4    = "M4"
	ItemTypeGlock = "GLOCK"
	ItemType45    = "45"
)

// Item statuses. Only the ledger writes them.
const (
	ItemStatusAvailable   = "Available"
	ItemStatusIssued      = "Issued"
	ItemStatusMaintenance = "Maintenance"
	ItemStatusRetired     = "Retired"
)

// Item conditions.
const (
	ConditionGood    = "Good"
	ConditionFair    = "Fair"
	ConditionPoor    = "Poor"
	ConditionDamaged = "Damaged"
)

// Rifles and Pistols partition the item types into categories.
var (
	Rifles  = []string{ItemTypeM14, ItemTypeM16, ItemTypeM4}
	Pistols = []string{ItemTypeGlock, ItemType45}
)

// Conditions lists the valid item conditions.
var Conditions = []string{ConditionGood, ConditionFair, ConditionPoor, ConditionDamaged}

// ItemStatuses lists every item status.
var ItemStatuses = []string{ItemStatusAvailable, ItemStatusIssued, ItemStatusMaintenance, ItemStatusRetired}

// NewItem holds the fields accepted when registering an item.
type NewItem struct {
	ItemType    string `json:"item_type"`
	Serial      string `json:"serial"`
	Description string `json:"description"`
	Condition   string `json:"condition"`
}

// CanonicalItemType maps user input onto a known item type. ".45" is accepted for "45".
func CanonicalItemType(t string) (string, bool) {
	t = strings.ToUpper(strings.TrimSpace(t))
	if t == ".45" {
		t = ItemType45
	}
	if slices.Contains(Rifles, t) || slices.Contains(Pistols, t) {
		return t, true
	}
	return t, false
}

// Category returns "R" for rifles and "P" for pistols.
func Category(itemType string) string {
	if slices.Contains(Rifles, itemType) {
		return "R"
	}
	return "P"
}

// Validate checks the registration fields and returns every problem found.
func (n NewItem) Validate() error {
	var errs []FieldError
	if strings.TrimSpace(n.ItemType) == "" {
		errs = append(errs, FieldError{Field: "item_type", Message: "is required"})
	} else if _, ok := CanonicalItemType(n.ItemType); !ok {
		errs = append(errs, FieldError{Field: "item_type", Message: fmt.Sprintf("unknown item type %q", n.ItemType)})
	}
	if strings.TrimSpace(n.Serial) == "" {
		errs = append(errs, FieldError{Field: "serial", Message: "is required"})
	}
	if n.Condition != "" && !slices.Contains(Conditions, n.Condition) {
		errs = append(errs, FieldError{Field: "condition", Message: fmt.Sprintf("unknown condition %q", n.Condition)})
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// Normalize builds the item record that registration stores. New items are Available.
func (n NewItem) Normalize(now time.Time) *Item {
	itemType, _ := CanonicalItemType(n.ItemType)
	condition := n.Condition
	if condition == "" {
		condition = ConditionGood
	}
	it := &Item{
		ItemType:         itemType,
		Serial:           strings.TrimSpace(n.Serial),
		Description:      strings.TrimSpace(n.Description),
		Condition:        condition,
		Status:           ItemStatusAvailable,
		RegistrationDate: now.UTC(),
	}
	it.ID = ItemID(it.ItemType, it.Serial, now)
	it.QRCode = it.ID
	return it
}

// ItemID derives the item ID: I, category letter, serial and a DDMMYY suffix.
func ItemID(itemType, serial string, date time.Time) string {
	return fmt.Sprintf("I%s-%s%s", Category(itemType), serial, date.UTC().Format("020106"))
}

// ValidAdministrativeStatus reports whether s may be set outside the ledger's Take/Return flow.
func ValidAdministrativeStatus(s string) bool {
	return s == ItemStatusAvailable || s == ItemStatusMaintenance || s == ItemStatusRetired
}
