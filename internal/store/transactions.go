package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/armory/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const transactionSelect = `SELECT t.id, t.person_id, t.item_id, t.action, t.occurred_at, t.magazines, t.rounds,
	        t.duty_type, t.notes, t.recorded_by,
	        p.firstname, p.middle_initial, p.surname, p.rank, i.item_type, i.serial
	 FROM transactions t
	 JOIN personnel p ON p.id = t.person_id
	 JOIN items i ON i.id = t.item_id`

// latestForItem selects the authoritative ledger entry of an item: the most
// recent by time, the highest id among equal times.
const latestForItem = `SELECT l.id FROM transactions l WHERE l.item_id = %s
	 ORDER BY l.occurred_at DESC, l.id DESC LIMIT 1`

// RecordTransaction validates and appends a Take or Return and moves the
// item's status in the same database transaction. Transactions begin
// IMMEDIATE, so concurrent callers are serialized and each one sees the
// effects of the previous commit.
//
// Rejections are returned verbatim as *model.ValidationError,
// *model.NotFoundError, *model.TransitionError or *model.CustodyError.
// Storage failures unwrap to model.ErrFatal.
func RecordTransaction(ctx context.Context, db *sql.DB, personID, itemID, action string, meta model.TransactionMeta) (*model.Transaction, *model.Item, error) {
	canonical, ok := model.CanonicalAction(action)
	if !ok {
		return nil, nil, model.NewValidationError("action", fmt.Sprintf("action must be %s or %s", model.ActionTake, model.ActionReturn))
	}
	if err := meta.Validate(); err != nil {
		return nil, nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, model.Fatal("beginning transaction", err)
	}
	defer tx.Rollback()

	person, err := scanPerson(tx.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM personnel WHERE id = ?`, personID,
	))
	if err == sql.ErrNoRows {
		return nil, nil, &model.NotFoundError{Kind: "personnel", ID: personID}
	}
	if err != nil {
		return nil, nil, model.Fatal("reading person", err)
	}

	item, err := scanItem(tx.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, itemID,
	))
	if err == sql.ErrNoRows {
		return nil, nil, &model.NotFoundError{Kind: "item", ID: itemID}
	}
	if err != nil {
		return nil, nil, model.Fatal("reading item", err)
	}

	if person.Status != model.PersonStatusActive {
		return nil, nil, model.NewValidationError("person_id",
			fmt.Sprintf("personnel %s is %s and cannot take or return items", person.ID, person.Status))
	}

	var next string
	switch canonical {
	case model.ActionTake:
		if item.Status != model.ItemStatusAvailable {
			return nil, nil, &model.TransitionError{ItemID: item.ID, Status: item.Status, Action: canonical}
		}
		held, err := heldItem(ctx, tx, person.ID, item.ID)
		if err != nil {
			return nil, nil, model.Fatal("checking custody", err)
		}
		if held != "" {
			return nil, nil, &model.CustodyError{PersonID: person.ID, HeldItemID: held}
		}
		next = model.ItemStatusIssued
	case model.ActionReturn:
		if item.Status != model.ItemStatusIssued {
			return nil, nil, &model.TransitionError{ItemID: item.ID, Status: item.Status, Action: canonical}
		}
		next = model.ItemStatusAvailable
	}

	now, err := nextOccurredAt(ctx, tx, item.ID, time.Now().UTC())
	if err != nil {
		return nil, nil, model.Fatal("reading latest transaction time", err)
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (person_id, item_id, action, occurred_at, magazines, rounds, duty_type, notes, recorded_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		person.ID, item.ID, canonical, now, meta.MagazineCount, meta.RoundCount,
		nullString(meta.DutyType), nullString(meta.Notes), meta.RecordedBy,
	)
	if err != nil {
		return nil, nil, model.Fatal("appending transaction", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, nil, model.Fatal("getting transaction id", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = ? WHERE id = ?`,
		next, now, item.ID,
	); err != nil {
		return nil, nil, model.Fatal("updating item status", err)
	}

	t, err := getTransaction(ctx, tx, id)
	if err != nil {
		return nil, nil, model.Fatal("reading transaction", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, model.Fatal("committing transaction", err)
	}

	item.Status = next
	item.UpdatedAt = now
	return t, item, nil
}

// nextOccurredAt returns the time for a new entry on itemID: now, or just
// after the item's latest entry if the clock has gone backwards since.
// The item's history therefore stays ordered by occurred_at.
func nextOccurredAt(ctx context.Context, q querier, itemID string, now time.Time) (time.Time, error) {
	var latest time.Time
	err := q.QueryRowContext(ctx,
		`SELECT occurred_at FROM transactions WHERE item_id = ?
		 ORDER BY occurred_at DESC, id DESC LIMIT 1`, itemID,
	).Scan(&latest)
	if err == sql.ErrNoRows {
		return now, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	if !now.After(latest) {
		now = latest.UTC().Add(time.Nanosecond)
	}
	return now, nil
}

// heldItem returns the ID of an Issued item other than exclude whose latest
// ledger entry is a Take by personID, or "" if there is none.
func heldItem(ctx context.Context, q querier, personID, exclude string) (string, error) {
	var held string
	err := q.QueryRowContext(ctx,
		`SELECT t.item_id
		 FROM transactions t
		 JOIN items i ON i.id = t.item_id
		 WHERE t.person_id = ? AND t.action = 'Take' AND i.status = 'Issued' AND i.id <> ?
		   AND t.id = (`+fmt.Sprintf(latestForItem, "t.item_id")+`)
		 LIMIT 1`,
		personID, exclude,
	).Scan(&held)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return held, nil
}

// HeldItem returns the ID of the item personID currently holds, or "".
func HeldItem(ctx context.Context, db *sql.DB, personID string) (string, error) {
	held, err := heldItem(ctx, db, personID, "")
	if err != nil {
		return "", model.Fatal("checking custody", err)
	}
	return held, nil
}

// GetTransaction returns a transaction by ID.
func GetTransaction(ctx context.Context, db *sql.DB, id int64) (*model.Transaction, error) {
	t, err := getTransaction(ctx, db, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.Fatal("getting transaction", err)
	}
	return t, nil
}

func getTransaction(ctx context.Context, q querier, id int64) (*model.Transaction, error) {
	return scanTransaction(q.QueryRowContext(ctx, transactionSelect+` WHERE t.id = ?`, id))
}

// ListTransactions returns ledger entries newest first.
func ListTransactions(ctx context.Context, db *sql.DB, f model.TransactionFilter) ([]model.Transaction, error) {
	query := transactionSelect + ` WHERE 1=1`
	var args []any

	if f.PersonID != "" {
		query += ` AND t.person_id = ?`
		args = append(args, f.PersonID)
	}
	if f.ItemID != "" {
		query += ` AND t.item_id = ?`
		args = append(args, f.ItemID)
	}
	if f.Action != "" {
		query += ` AND t.action = ?`
		args = append(args, f.Action)
	}
	if f.DutyType != "" {
		query += ` AND t.duty_type = ? COLLATE NOCASE`
		args = append(args, f.DutyType)
	}
	if !f.From.IsZero() {
		query += ` AND t.occurred_at >= ?`
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		query += ` AND t.occurred_at <= ?`
		args = append(args, f.To.UTC())
	}

	query += ` ORDER BY t.occurred_at DESC, t.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.Fatal("listing transactions", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, model.Fatal("scanning transaction", err)
		}
		transactions = append(transactions, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Fatal("listing transactions", err)
	}
	return transactions, nil
}

// ListCustody returns every Issued item with its holder and the Take that issued it.
func ListCustody(ctx context.Context, db *sql.DB) ([]model.CustodyRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT i.id, i.item_type, i.serial, p.id, p.firstname, p.middle_initial, p.surname, p.rank,
		        t.id, t.occurred_at, t.duty_type
		 FROM items i
		 JOIN transactions t ON t.id = (`+fmt.Sprintf(latestForItem, "i.id")+`)
		 JOIN personnel p ON p.id = t.person_id
		 WHERE i.status = 'Issued' AND t.action = 'Take'
		 ORDER BY t.occurred_at DESC, t.id DESC`,
	)
	if err != nil {
		return nil, model.Fatal("listing custody", err)
	}
	defer rows.Close()

	records := []model.CustodyRecord{}
	for rows.Next() {
		var c model.CustodyRecord
		var holder model.Person
		var middle, duty sql.NullString
		if err := rows.Scan(&c.ItemID, &c.ItemType, &c.ItemSerial, &c.PersonID,
			&holder.Firstname, &middle, &holder.Surname, &c.PersonRank,
			&c.TransactionID, &c.TakenAt, &duty); err != nil {
			return nil, model.Fatal("scanning custody", err)
		}
		holder.MiddleInitial = middle.String
		c.PersonName = holder.FullName()
		c.DutyType = duty.String
		records = append(records, c)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Fatal("listing custody", err)
	}
	return records, nil
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	t := &model.Transaction{}
	var magazines, rounds sql.NullInt64
	var duty, notes, middle sql.NullString
	var holder model.Person
	err := row.Scan(&t.ID, &t.PersonID, &t.ItemID, &t.Action, &t.OccurredAt, &magazines, &rounds,
		&duty, &notes, &t.RecordedBy,
		&holder.Firstname, &middle, &holder.Surname, &t.PersonRank, &t.ItemType, &t.ItemSerial)
	if err != nil {
		return nil, err
	}
	if magazines.Valid {
		n := int(magazines.Int64)
		t.MagazineCount = &n
	}
	if rounds.Valid {
		n := int(rounds.Int64)
		t.RoundCount = &n
	}
	t.DutyType = duty.String
	t.Notes = notes.String
	holder.MiddleInitial = middle.String
	t.PersonName = holder.FullName()
	return t, nil
}
