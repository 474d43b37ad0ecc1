package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/armory/internal/db"
	"github.com/erazemk/armory/internal/model"
)

func intPtr(n int) *int { return &n }

func TestTakeAndReturnScenario(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	p1 := addPerson(t, database, "123456")
	i1 := addItem(t, database, "GLOCK", "G001")

	take, item, err := RecordTransaction(ctx, database, p1.ID, i1.ID, "Take", model.TransactionMeta{
		MagazineCount: intPtr(4), RoundCount: intPtr(42), DutyType: "Duty Sentinel",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ActionTake, take.Action)
	assert.Equal(t, model.ItemStatusIssued, item.Status)
	assert.Equal(t, 4, *take.MagazineCount)
	assert.Equal(t, "Juan Dela Cruz", take.PersonName)
	assert.Equal(t, "G001", take.ItemSerial)

	_, _, err = RecordTransaction(ctx, database, p1.ID, i1.ID, "Take", model.TransactionMeta{})
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	ret, item, err := RecordTransaction(ctx, database, p1.ID, i1.ID, "Return", model.TransactionMeta{})
	require.NoError(t, err)
	assert.Equal(t, model.ActionReturn, ret.Action)
	assert.Equal(t, model.ItemStatusAvailable, item.Status)
	assert.Greater(t, ret.ID, take.ID)

	txs, err := ListTransactions(ctx, database, model.TransactionFilter{ItemID: i1.ID})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, model.ActionReturn, txs[0].Action, "newest first")
	assert.Equal(t, model.ActionTake, txs[1].Action)

	stored, _ := GetItem(ctx, database, i1.ID)
	assert.Equal(t, model.ItemStatusAvailable, stored.Status)
}

func TestReturnRequiresIssued(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	p := addPerson(t, database, "111")
	it := addItem(t, database, "M16", "R1")

	for _, status := range []string{model.ItemStatusAvailable, model.ItemStatusMaintenance, model.ItemStatusRetired} {
		_, err := SetAdministrativeStatus(ctx, database, it.ID, status)
		require.NoError(t, err)

		_, _, err = RecordTransaction(ctx, database, p.ID, it.ID, model.ActionReturn, model.TransactionMeta{})
		var te *model.TransitionError
		require.ErrorAs(t, err, &te, status)
		assert.Equal(t, status, te.Status)
	}

	txs, _ := ListTransactions(ctx, database, model.TransactionFilter{})
	assert.Empty(t, txs)
}

func TestTakeRequiresAvailable(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	p := addPerson(t, database, "111")
	it := addItem(t, database, "M16", "R1")

	for _, status := range []string{model.ItemStatusMaintenance, model.ItemStatusRetired} {
		_, err := SetAdministrativeStatus(ctx, database, it.ID, status)
		require.NoError(t, err)

		_, _, err = RecordTransaction(ctx, database, p.ID, it.ID, model.ActionTake, model.TransactionMeta{})
		assert.ErrorIs(t, err, model.ErrInvalidTransition, status)

		got, _ := GetItem(ctx, database, it.ID)
		assert.Equal(t, status, got.Status, "rejected take leaves status untouched")
	}

	txs, _ := ListTransactions(ctx, database, model.TransactionFilter{})
	assert.Empty(t, txs)
}

func TestConflictingCustody(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	p := addPerson(t, database, "111")
	a := addItem(t, database, "GLOCK", "G001")
	b := addItem(t, database, "M4", "R2")

	_, _, err := RecordTransaction(ctx, database, p.ID, a.ID, model.ActionTake, model.TransactionMeta{})
	require.NoError(t, err)

	_, _, err = RecordTransaction(ctx, database, p.ID, b.ID, model.ActionTake, model.TransactionMeta{})
	var ce *model.CustodyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, a.ID, ce.HeldItemID)

	got, _ := GetItem(ctx, database, b.ID)
	assert.Equal(t, model.ItemStatusAvailable, got.Status)

	held, err := HeldItem(ctx, database, p.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, held)

	_, _, err = RecordTransaction(ctx, database, p.ID, a.ID, model.ActionReturn, model.TransactionMeta{})
	require.NoError(t, err)

	_, _, err = RecordTransaction(ctx, database, p.ID, b.ID, model.ActionTake, model.TransactionMeta{})
	assert.NoError(t, err, "custody is released by the return")
}

func TestCustodyFollowsLatestTransaction(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	p := addPerson(t, database, "111")
	q := addPerson(t, database, "222")
	a := addItem(t, database, "GLOCK", "G001")
	b := addItem(t, database, "GLOCK", "G002")

	// p took a earlier, q returned it and later took it again.
	_, _, err := RecordTransaction(ctx, database, p.ID, a.ID, model.ActionTake, model.TransactionMeta{})
	require.NoError(t, err)
	_, _, err = RecordTransaction(ctx, database, q.ID, a.ID, model.ActionReturn, model.TransactionMeta{})
	require.NoError(t, err)
	_, _, err = RecordTransaction(ctx, database, q.ID, a.ID, model.ActionTake, model.TransactionMeta{})
	require.NoError(t, err)

	_, _, err = RecordTransaction(ctx, database, p.ID, b.ID, model.ActionTake, model.TransactionMeta{})
	assert.NoError(t, err, "p no longer holds a")

	custody, err := ListCustody(ctx, database)
	require.NoError(t, err)
	require.Len(t, custody, 2)
	holders := map[string]string{}
	for _, c := range custody {
		holders[c.ItemID] = c.PersonID
	}
	assert.Equal(t, q.ID, holders[a.ID])
	assert.Equal(t, p.ID, holders[b.ID])
}

func TestCustodySurvivesClockStepBack(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	p := addPerson(t, database, "111")
	q := addPerson(t, database, "222")
	r := addPerson(t, database, "333")
	a := addItem(t, database, "GLOCK", "G001")
	b := addItem(t, database, "GLOCK", "G002")

	take, _, err := RecordTransaction(ctx, database, p.ID, a.ID, model.ActionTake, model.TransactionMeta{})
	require.NoError(t, err)

	// The clock has since stepped back an hour.
	future := time.Now().UTC().Add(time.Hour)
	_, err = database.ExecContext(ctx, `UPDATE transactions SET occurred_at = ? WHERE id = ?`, future, take.ID)
	require.NoError(t, err)

	ret, _, err := RecordTransaction(ctx, database, q.ID, a.ID, model.ActionReturn, model.TransactionMeta{})
	require.NoError(t, err)
	assert.True(t, ret.OccurredAt.After(future), "return is ordered after the take")

	retake, _, err := RecordTransaction(ctx, database, r.ID, a.ID, model.ActionTake, model.TransactionMeta{})
	require.NoError(t, err)
	assert.True(t, retake.OccurredAt.After(ret.OccurredAt))

	held, err := HeldItem(ctx, database, p.ID)
	require.NoError(t, err)
	assert.Empty(t, held)

	held, err = HeldItem(ctx, database, r.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, held)

	custody, err := ListCustody(ctx, database)
	require.NoError(t, err)
	require.Len(t, custody, 1)
	assert.Equal(t, r.ID, custody[0].PersonID)

	_, _, err = RecordTransaction(ctx, database, r.ID, b.ID, model.ActionTake, model.TransactionMeta{})
	var ce *model.CustodyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, a.ID, ce.HeldItemID)
}

func TestRecordTransactionNotFound(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	p := addPerson(t, database, "111")
	it := addItem(t, database, "GLOCK", "G001")

	_, _, err := RecordTransaction(ctx, database, "PE-missing", it.ID, model.ActionTake, model.TransactionMeta{})
	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "personnel", nf.Kind)

	_, _, err = RecordTransaction(ctx, database, p.ID, "IP-missing", model.ActionTake, model.TransactionMeta{})
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "item", nf.Kind)
}

func TestRecordTransactionValidation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	p := addPerson(t, database, "111")
	it := addItem(t, database, "GLOCK", "G001")

	_, _, err := RecordTransaction(ctx, database, p.ID, it.ID, "Borrow", model.TransactionMeta{})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, _, err = RecordTransaction(ctx, database, p.ID, it.ID, model.ActionTake, model.TransactionMeta{RoundCount: intPtr(-1)})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = UpdatePersonStatus(ctx, database, p.ID, model.PersonStatusInactive)
	require.NoError(t, err)
	_, _, err = RecordTransaction(ctx, database, p.ID, it.ID, model.ActionTake, model.TransactionMeta{})
	assert.ErrorIs(t, err, model.ErrValidation, "inactive personnel cannot take")

	got, _ := GetItem(ctx, database, it.ID)
	assert.Equal(t, model.ItemStatusAvailable, got.Status)
}

func TestRecordTransactionRecordsOperator(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	op, err := CreateUser(ctx, database, "clerk", "hash", model.RoleUser)
	require.NoError(t, err)
	p := addPerson(t, database, "111")
	it := addItem(t, database, "GLOCK", "G001")

	tx, _, err := RecordTransaction(ctx, database, p.ID, it.ID, model.ActionTake, model.TransactionMeta{
		RecordedBy: &op.ID, Notes: "night shift",
	})
	require.NoError(t, err)
	require.NotNil(t, tx.RecordedBy)
	assert.Equal(t, op.ID, *tx.RecordedBy)

	got, err := GetTransaction(ctx, database, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "night shift", got.Notes)
	assert.Nil(t, got.MagazineCount)

	missing, err := GetTransaction(ctx, database, tx.ID+100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// TestStatusMatchesLatestTransaction checks that after any sequence of
// accepted and rejected actions every item is Issued exactly when its
// latest ledger entry is a Take.
func TestStatusMatchesLatestTransaction(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	people := []*model.Person{addPerson(t, database, "1"), addPerson(t, database, "2"), addPerson(t, database, "3")}
	items := []*model.Item{addItem(t, database, "GLOCK", "G1"), addItem(t, database, "M16", "R1"), addItem(t, database, "M4", "R2")}
	actions := []string{model.ActionTake, model.ActionReturn}

	for i := range 60 {
		p := people[(i*7)%len(people)]
		it := items[(i*5)%len(items)]
		_, _, _ = RecordTransaction(ctx, database, p.ID, it.ID, actions[(i/2)%2], model.TransactionMeta{})
	}

	for _, it := range items {
		stored, err := GetItem(ctx, database, it.ID)
		require.NoError(t, err)

		txs, err := ListTransactions(ctx, database, model.TransactionFilter{ItemID: it.ID, Limit: 1})
		require.NoError(t, err)

		issued := len(txs) == 1 && txs[0].Action == model.ActionTake
		assert.Equal(t, issued, stored.Status == model.ItemStatusIssued, it.ID)
	}

	custody, err := ListCustody(ctx, database)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, c := range custody {
		assert.False(t, seen[c.PersonID], "person %s holds two items", c.PersonID)
		seen[c.PersonID] = true
	}
}

func TestListTransactionsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	p := addPerson(t, database, "111")
	q := addPerson(t, database, "222")
	a := addItem(t, database, "GLOCK", "G1")
	b := addItem(t, database, "M16", "R1")

	record := func(person, item, action, duty string) {
		t.Helper()
		_, _, err := RecordTransaction(ctx, database, person, item, action, model.TransactionMeta{DutyType: duty})
		require.NoError(t, err)
	}
	record(p.ID, a.ID, model.ActionTake, "Duty Sentinel")
	record(q.ID, b.ID, model.ActionTake, "Guard Duty")
	record(p.ID, a.ID, model.ActionReturn, "")

	byPerson, err := ListTransactions(ctx, database, model.TransactionFilter{PersonID: p.ID})
	require.NoError(t, err)
	assert.Len(t, byPerson, 2)

	takes, err := ListTransactions(ctx, database, model.TransactionFilter{Action: model.ActionTake})
	require.NoError(t, err)
	assert.Len(t, takes, 2)

	duty, err := ListTransactions(ctx, database, model.TransactionFilter{DutyType: "guard duty"})
	require.NoError(t, err)
	require.Len(t, duty, 1)
	assert.Equal(t, b.ID, duty[0].ItemID)

	limited, err := ListTransactions(ctx, database, model.TransactionFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, model.ActionReturn, limited[0].Action)

	future, err := ListTransactions(ctx, database, model.TransactionFilter{From: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, future)

	past, err := ListTransactions(ctx, database, model.TransactionFilter{To: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, past)

	window, err := ListTransactions(ctx, database, model.TransactionFilter{
		From: time.Now().Add(-time.Hour), To: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Len(t, window, 3)
}

func TestConcurrentTakesSameItem(t *testing.T) {
	database := db.NewTestFileDB(t)
	ctx := context.Background()

	const n = 8
	it := addItem(t, database, "GLOCK", "G001")
	people := make([]*model.Person, n)
	for i := range people {
		people[i] = addPerson(t, database, fmt.Sprintf("9%05d", i))
	}

	errs := runConcurrently(n, func(i int) error {
		_, _, err := RecordTransaction(ctx, database, people[i].ID, it.ID, model.ActionTake, model.TransactionMeta{})
		return err
	})

	assertOneWinner(t, errs, model.ErrInvalidTransition)
	assertLedgerSize(t, database, 1)
}

func TestConcurrentTakesSamePerson(t *testing.T) {
	database := db.NewTestFileDB(t)
	ctx := context.Background()

	const n = 8
	p := addPerson(t, database, "123456")
	items := make([]*model.Item, n)
	for i := range items {
		items[i] = addItem(t, database, "M4", fmt.Sprintf("R%03d", i))
	}

	errs := runConcurrently(n, func(i int) error {
		_, _, err := RecordTransaction(ctx, database, p.ID, items[i].ID, model.ActionTake, model.TransactionMeta{})
		return err
	})

	assertOneWinner(t, errs, model.ErrConflictingCustody)
	assertLedgerSize(t, database, 1)

	issued, err := ListItems(ctx, database, ItemFilter{Status: model.ItemStatusIssued})
	require.NoError(t, err)
	assert.Len(t, issued, 1)
}

func runConcurrently(n int, fn func(i int) error) []error {
	errs := make([]error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}()
	}
	close(start)
	wg.Wait()
	return errs
}

func assertOneWinner(t *testing.T, errs []error, loss error) {
	t.Helper()
	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, loss)
	}
	assert.Equal(t, 1, wins)
}

func assertLedgerSize(t *testing.T, database *sql.DB, want int) {
	t.Helper()
	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&count))
	assert.Equal(t, want, count)
}
