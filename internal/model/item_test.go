package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItemValidate(t *testing.T) {
	require.NoError(t, NewItem{ItemType: "glock", Serial: "G001"}.Validate())

	tests := []struct {
		name string
		item NewItem
	}{
		{"missing type", NewItem{Serial: "G001"}},
		{"unknown type", NewItem{ItemType: "AK47", Serial: "G001"}},
		{"missing serial", NewItem{ItemType: "M16"}},
		{"unknown condition", NewItem{ItemType: "M16", Serial: "X", Condition: "Broken"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestNormalizeItem(t *testing.T) {
	pistol := NewItem{ItemType: "glock", Serial: " G001 "}.Normalize(regDate)
	assert.Equal(t, "IP-G001161026", pistol.ID)
	assert.Equal(t, ItemTypeGlock, pistol.ItemType)
	assert.Equal(t, ItemStatusAvailable, pistol.Status)
	assert.Equal(t, ConditionGood, pistol.Condition)
	assert.Equal(t, "P", Category(pistol.ItemType))

	rifle := NewItem{ItemType: "M16", Serial: "R77", Condition: ConditionFair}.Normalize(regDate)
	assert.Equal(t, "IR-R77161026", rifle.ID)
	assert.Equal(t, ConditionFair, rifle.Condition)
	assert.Equal(t, "R", Category(rifle.ItemType))
}

func TestCanonicalItemType(t *testing.T) {
	got, ok := CanonicalItemType(".45")
	assert.True(t, ok)
	assert.Equal(t, ItemType45, got)

	got, ok = CanonicalItemType(" m4 ")
	assert.True(t, ok)
	assert.Equal(t, ItemTypeM4, got)

	_, ok = CanonicalItemType("bazooka")
	assert.False(t, ok)
}

func TestValidAdministrativeStatus(t *testing.T) {
	assert.True(t, ValidAdministrativeStatus(ItemStatusAvailable))
	assert.True(t, ValidAdministrativeStatus(ItemStatusMaintenance))
	assert.True(t, ValidAdministrativeStatus(ItemStatusRetired))
	assert.False(t, ValidAdministrativeStatus(ItemStatusIssued))
	assert.False(t, ValidAdministrativeStatus("Lost"))
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "invalid_transition", ErrorKind(&TransitionError{ItemID: "x", Status: ItemStatusIssued, Action: ActionTake}))
	assert.Equal(t, "conflicting_custody", ErrorKind(&CustodyError{PersonID: "p", HeldItemID: "i"}))
	assert.Equal(t, "not_found", ErrorKind(&NotFoundError{Kind: "item", ID: "x"}))
	assert.Equal(t, "validation", ErrorKind(NewValidationError("serial", "is required")))
	assert.Equal(t, "fatal", ErrorKind(Fatal("reading item", errors.New("disk I/O error"))))
	assert.ErrorIs(t, Fatal("reading item", errors.New("boom")), ErrFatal)
}
