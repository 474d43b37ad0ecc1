package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/armory/internal/db"
	"github.com/erazemk/armory/internal/model"
)

func TestCreateAndGetPerson(t *testing.T) {
	database := db.NewTestDB(t)

	p := addPerson(t, database, "123456")
	assert.Equal(t, "PE-123456161026", p.ID)
	assert.Equal(t, "Dela Cruz", p.Surname)
	assert.Equal(t, model.PersonStatusActive, p.Status)
	assert.Equal(t, p.ID, p.QRCode)
	assert.True(t, p.RegistrationDate.Equal(regDate))

	got, err := GetPerson(context.Background(), database, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Juan Dela Cruz", got.FullName())
}

func TestGetPersonMissing(t *testing.T) {
	database := db.NewTestDB(t)

	p, err := GetPerson(context.Background(), database, "PE-nope")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestCreatePersonDuplicateSerial(t *testing.T) {
	database := db.NewTestDB(t)
	addPerson(t, database, "123456")

	// Differing fields and a differing registration date do not help.
	n := model.NewPerson{
		Surname: "Santos", Firstname: "Maria", Rank: "CPT", Serial: "123456",
		Office: "951", Telephone: "+639170000000",
	}
	other := n.Normalize(regDate.AddDate(0, 0, 3))
	_, err := CreatePerson(context.Background(), database, other)
	assert.ErrorIs(t, err, model.ErrDuplicateSerial)
}

func TestCreatePersonUnknownLinkedAccount(t *testing.T) {
	database := db.NewTestDB(t)

	missing := int64(99)
	n := model.NewPerson{
		Surname: "Santos", Firstname: "Maria", Rank: "SGT", Serial: "555",
		Office: "951", Telephone: "+639170000000", LinkedAccountID: &missing,
	}
	_, err := CreatePerson(context.Background(), database, n.Normalize(regDate))
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestListPersonnelByStatus(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a := addPerson(t, database, "111")
	addPerson(t, database, "222")

	_, err := UpdatePersonStatus(ctx, database, a.ID, model.PersonStatusInactive)
	require.NoError(t, err)

	all, err := ListPersonnel(ctx, database, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	inactive, err := ListPersonnel(ctx, database, model.PersonStatusInactive)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, a.ID, inactive[0].ID)
}

func TestUpdatePersonStatus(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := UpdatePersonStatus(ctx, database, "PE-nope", model.PersonStatusInactive)
	assert.ErrorIs(t, err, model.ErrNotFound)

	p := addPerson(t, database, "111")
	_, err = UpdatePersonStatus(ctx, database, p.ID, "Retired")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestDeletePerson(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	p := addPerson(t, database, "111")
	require.NoError(t, DeletePerson(ctx, database, p.ID))

	got, _ := GetPerson(ctx, database, p.ID)
	assert.Nil(t, got)

	assert.ErrorIs(t, DeletePerson(ctx, database, p.ID), model.ErrNotFound)
}

func TestDeletePersonWithHistory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	p := addPerson(t, database, "111")
	it := addItem(t, database, "GLOCK", "G001")
	_, _, err := RecordTransaction(ctx, database, p.ID, it.ID, model.ActionTake, model.TransactionMeta{})
	require.NoError(t, err)
	_, _, err = RecordTransaction(ctx, database, p.ID, it.ID, model.ActionReturn, model.TransactionMeta{})
	require.NoError(t, err)

	assert.ErrorIs(t, DeletePerson(ctx, database, p.ID), model.ErrInUse)

	got, _ := GetPerson(ctx, database, p.ID)
	assert.NotNil(t, got)
}
