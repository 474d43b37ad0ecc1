package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var regDate = time.Date(2026, time.October, 16, 9, 30, 0, 0, time.UTC)

func validPerson() NewPerson {
	return NewPerson{
		Surname:   "dela cruz",
		Firstname: "juan",
		Rank:      "sgt",
		Serial:    "123456",
		Office:    "HAS",
		Telephone: "+639171234567",
	}
}

func TestNewPersonValidate(t *testing.T) {
	require.NoError(t, validPerson().Validate())

	tests := []struct {
		name   string
		mutate func(*NewPerson)
		field  string
	}{
		{"missing surname", func(p *NewPerson) { p.Surname = " " }, "surname"},
		{"missing firstname", func(p *NewPerson) { p.Firstname = "" }, "firstname"},
		{"missing rank", func(p *NewPerson) { p.Rank = "" }, "rank"},
		{"unknown rank", func(p *NewPerson) { p.Rank = "ADM" }, "rank"},
		{"missing serial", func(p *NewPerson) { p.Serial = "" }, "serial"},
		{"bare officer prefix", func(p *NewPerson) { p.Serial = "O-" }, "serial"},
		{"unknown office", func(p *NewPerson) { p.Office = "999" }, "office"},
		{"missing telephone", func(p *NewPerson) { p.Telephone = "" }, "telephone"},
		{"short telephone", func(p *NewPerson) { p.Telephone = "+63917123456" }, "telephone"},
		{"local telephone", func(p *NewPerson) { p.Telephone = "09171234567" }, "telephone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPerson()
			tt.mutate(&p)

			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			fields := make([]string, 0, len(verr.Errors))
			for _, fe := range verr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestNewPersonValidateCollectsAllErrors(t *testing.T) {
	err := NewPerson{}.Validate()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors, 6)
}

func TestNormalizeEnlisted(t *testing.T) {
	p := validPerson()
	p.MiddleInitial = "s"

	person := p.Normalize(regDate)

	assert.Equal(t, "PE-123456161026", person.ID)
	assert.Equal(t, person.ID, person.QRCode)
	assert.Equal(t, "Dela Cruz", person.Surname)
	assert.Equal(t, "Juan", person.Firstname)
	assert.Equal(t, "S", person.MiddleInitial)
	assert.Equal(t, "SGT", person.Rank)
	assert.Equal(t, PersonStatusActive, person.Status)
	assert.Equal(t, "EP", person.Class())
	assert.Equal(t, "Juan S. Dela Cruz", person.FullName())
}

func TestNormalizeOfficerByRank(t *testing.T) {
	p := validPerson()
	p.Rank = "cpt"
	p.Serial = "778899"

	person := p.Normalize(regDate)

	assert.Equal(t, "PO-778899161026", person.ID)
	assert.Equal(t, "DELA CRUZ", person.Surname)
	assert.Equal(t, "JUAN", person.Firstname)
	assert.Equal(t, "CPT", person.Rank)
	assert.Equal(t, "O", person.Class())
}

func TestNormalizeOfficerBySerialPrefix(t *testing.T) {
	p := validPerson()
	p.Serial = "O-445566"

	person := p.Normalize(regDate)

	assert.True(t, person.IsOfficer())
	assert.Equal(t, "PO-445566161026", person.ID)
	assert.Equal(t, "O-445566", person.Serial)
	assert.Equal(t, "JUAN", person.Firstname)
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"juan":         "Juan",
		"DELA CRUZ":    "Dela Cruz",
		"o'brien":      "O'Brien",
		"santos-reyes": "Santos-Reyes",
		"":             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, titleCase(in), "titleCase(%q)", in)
	}
}

func TestIDDateIsUTC(t *testing.T) {
	manila := time.FixedZone("PHT", 8*60*60)
	// 07:00 on the 17th in Manila is still the 16th in UTC.
	local := time.Date(2026, time.October, 17, 7, 0, 0, 0, manila)

	person := validPerson().Normalize(local)
	assert.Equal(t, "PE-123456161026", person.ID)
	assert.Equal(t, time.UTC, person.RegistrationDate.Location())
	assert.Equal(t, PersonID(person.Rank, person.Serial, person.RegistrationDate), person.ID)

	item := NewItem{ItemType: "GLOCK", Serial: "G001"}.Normalize(local)
	assert.Equal(t, "IP-G001161026", item.ID)
	assert.Equal(t, ItemID(item.ItemType, item.Serial, item.RegistrationDate), item.ID)
}
