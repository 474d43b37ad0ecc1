package model

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"
)

// Person is a member of personnel who can hold items.
type Person struct {
	ID               string    `json:"id"`
	Surname          string    `json:"surname"`
	Firstname        string    `json:"firstname"`
	MiddleInitial    string    `json:"middle_initial,omitempty"`
	Rank             string    `json:"rank"`
	Serial           string    `json:"serial"`
	Office           string    `json:"office"`
	Telephone        string    `json:"telephone"`
	Status           string    `json:"status"`
	QRCode           string    `json:"qr_code"`
	LinkedAccountID  *int64    `json:"linked_account_id,omitempty"`
	RegistrationDate time.Time `json:"registration_date"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Personnel statuses.
const (
	PersonStatusActive   = "Active"
	PersonStatusInactive = "Inactive"
)

// EnlistedRanks lists the enlisted rank codes.
var EnlistedRanks = []string{
	"AM", "AW", "A2C", "AW2C", "A1C", "AW1C",
	"SGT", "SSGT", "TSGT", "MSGT", "SMSGT", "CMSGT",
}

// OfficerRanks lists the officer rank codes.
var OfficerRanks = []string{
	"2LT", "1LT", "CPT", "MAJ", "LTCOL", "COL",
	"BGEN", "MGEN", "LTGEN", "GEN",
}

// Offices lists the valid office codes.
var Offices = []string{"HAS", "951", "952", "953"}

// officerSerialPrefix marks an officer serial number.
const officerSerialPrefix = "O-"

var telephonePattern = regexp.MustCompile(`^\+639\d{9}$`)

// NewPerson holds the fields accepted when registering personnel.
type NewPerson struct {
	Surname         string `json:"surname"`
	Firstname       string `json:"firstname"`
	MiddleInitial   string `json:"middle_initial"`
	Rank            string `json:"rank"`
	Serial          string `json:"serial"`
	Office          string `json:"office"`
	Telephone       string `json:"telephone"`
	LinkedAccountID *int64 `json:"linked_account_id"`
}

// IsOfficer reports whether rank or serial mark an officer.
func IsOfficer(rank, serial string) bool {
	return strings.HasPrefix(serial, officerSerialPrefix) || slices.Contains(OfficerRanks, strings.ToUpper(rank))
}

// IsOfficer reports whether the person is an officer.
func (p *Person) IsOfficer() bool {
	return IsOfficer(p.Rank, p.Serial)
}

// Class returns "O" for officers and "EP" for enlisted personnel.
func (p *Person) Class() string {
	if p.IsOfficer() {
		return "O"
	}
	return "EP"
}

// FullName returns the display name with middle initial.
func (p *Person) FullName() string {
	if p.MiddleInitial != "" {
		return fmt.Sprintf("%s %s. %s", p.Firstname, p.MiddleInitial, p.Surname)
	}
	return fmt.Sprintf("%s %s", p.Firstname, p.Surname)
}

// Validate checks the registration fields and returns every problem found.
func (n NewPerson) Validate() error {
	var errs []FieldError
	required := []struct{ field, value string }{
		{"surname", n.Surname},
		{"firstname", n.Firstname},
		{"rank", n.Rank},
		{"serial", n.Serial},
		{"office", n.Office},
		{"telephone", n.Telephone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, FieldError{Field: r.field, Message: "is required"})
		}
	}

	rank := strings.ToUpper(strings.TrimSpace(n.Rank))
	if rank != "" && !slices.Contains(EnlistedRanks, rank) && !slices.Contains(OfficerRanks, rank) {
		errs = append(errs, FieldError{Field: "rank", Message: fmt.Sprintf("unknown rank %q", n.Rank)})
	}
	if office := strings.TrimSpace(n.Office); office != "" && !slices.Contains(Offices, office) {
		errs = append(errs, FieldError{Field: "office", Message: fmt.Sprintf("unknown office %q", n.Office)})
	}
	if tel := strings.TrimSpace(n.Telephone); tel != "" && !telephonePattern.MatchString(tel) {
		errs = append(errs, FieldError{Field: "telephone", Message: "must be in format +639XXXXXXXXX"})
	}
	if serial := strings.TrimSpace(n.Serial); serial != "" && strings.TrimPrefix(serial, officerSerialPrefix) == "" {
		errs = append(errs, FieldError{Field: "serial", Message: "is empty after prefix"})
	}
	if len(strings.TrimSpace(n.MiddleInitial)) > 10 {
		errs = append(errs, FieldError{Field: "middle_initial", Message: "is too long"})
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// Normalize builds the person record that registration stores.
// Officers are stored upper-case, enlisted personnel title-case; rank is always upper-case.
func (n NewPerson) Normalize(now time.Time) *Person {
	p := &Person{
		Surname:          strings.TrimSpace(n.Surname),
		Firstname:        strings.TrimSpace(n.Firstname),
		MiddleInitial:    strings.ToUpper(strings.TrimSpace(n.MiddleInitial)),
		Rank:             strings.ToUpper(strings.TrimSpace(n.Rank)),
		Serial:           strings.TrimSpace(n.Serial),
		Office:           strings.TrimSpace(n.Office),
		Telephone:        strings.TrimSpace(n.Telephone),
		Status:           PersonStatusActive,
		LinkedAccountID:  n.LinkedAccountID,
		RegistrationDate: now.UTC(),
	}
	if p.IsOfficer() {
		p.Surname = strings.ToUpper(p.Surname)
		p.Firstname = strings.ToUpper(p.Firstname)
	} else {
		p.Surname = titleCase(p.Surname)
		p.Firstname = titleCase(p.Firstname)
	}
	p.ID = PersonID(p.Rank, p.Serial, now)
	p.QRCode = p.ID
	return p
}

// PersonID derives the personnel ID: PO/PE, cleaned serial and a DDMMYY suffix.
func PersonID(rank, serial string, date time.Time) string {
	prefix := "PE"
	clean := serial
	if IsOfficer(rank, serial) {
		prefix = "PO"
		clean = strings.TrimPrefix(serial, officerSerialPrefix)
	}
	return fmt.Sprintf("%s-%s%s", prefix, clean, date.UTC().Format("020106"))
}

// ValidPersonStatus reports whether s is a known personnel status.
func ValidPersonStatus(s string) bool {
	return s == PersonStatusActive || s == PersonStatusInactive
}

// titleCase upper-cases the first letter of every word and lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := true
	for _, r := range s {
		if unicode.IsLetter(r) {
			if start {
				b.WriteRune(unicode.ToUpper(r))
			} else {
				b.WriteRune(unicode.ToLower(r))
			}
			start = false
			continue
		}
		b.WriteRune(r)
		start = true
	}
	return b.String()
}
