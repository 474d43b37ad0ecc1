package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/armory/internal/model"
)

var regDate = time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)

func addPerson(t *testing.T, database *sql.DB, serial string) *model.Person {
	t.Helper()
	n := model.NewPerson{
		Surname:   "dela cruz",
		Firstname: "juan",
		Rank:      "SGT",
		Serial:    serial,
		Office:    "HAS",
		Telephone: "+639171234567",
	}
	require.NoError(t, n.Validate())
	p, err := CreatePerson(context.Background(), database, n.Normalize(regDate))
	require.NoError(t, err)
	return p
}

func addItem(t *testing.T, database *sql.DB, itemType, serial string) *model.Item {
	t.Helper()
	n := model.NewItem{ItemType: itemType, Serial: serial}
	require.NoError(t, n.Validate())
	it, err := CreateItem(context.Background(), database, n.Normalize(regDate))
	require.NoError(t, err)
	return it
}
