package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/armory/internal/model"
)

const personColumns = `id, surname, firstname, middle_initial, rank, serial, office, telephone,
	status, qr_code, linked_account_id, registration_date, created_at, updated_at`

// CreatePerson inserts a normalized person record. A serial or ID that is
// already registered fails with model.ErrDuplicateSerial.
func CreatePerson(ctx context.Context, db *sql.DB, p *model.Person) (*model.Person, error) {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx,
		`INSERT INTO personnel (`+personColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Surname, p.Firstname, nullString(p.MiddleInitial), p.Rank, p.Serial, p.Office, p.Telephone,
		p.Status, p.QRCode, p.LinkedAccountID, p.RegistrationDate.UTC(), now, now,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("serial %q is already registered: %w", p.Serial, model.ErrDuplicateSerial)
	}
	if isForeignKeyViolation(err) {
		return nil, model.NewValidationError("linked_account_id", "does not reference an operator account")
	}
	if err != nil {
		return nil, model.Fatal("creating person", err)
	}

	return GetPerson(ctx, db, p.ID)
}

// GetPerson returns a person by ID.
func GetPerson(ctx context.Context, db *sql.DB, id string) (*model.Person, error) {
	p, err := scanPerson(db.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM personnel WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.Fatal("getting person", err)
	}
	return p, nil
}

// ListPersonnel returns personnel ordered by surname, optionally filtered by status.
func ListPersonnel(ctx context.Context, db *sql.DB, status string) ([]model.Person, error) {
	query := `SELECT ` + personColumns + ` FROM personnel`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY surname, firstname, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.Fatal("listing personnel", err)
	}
	defer rows.Close()

	personnel := []model.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, model.Fatal("scanning person", err)
		}
		personnel = append(personnel, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Fatal("listing personnel", err)
	}
	return personnel, nil
}

// UpdatePersonStatus sets a person Active or Inactive.
func UpdatePersonStatus(ctx context.Context, db *sql.DB, id, status string) (*model.Person, error) {
	if !model.ValidPersonStatus(status) {
		return nil, model.NewValidationError("status", fmt.Sprintf("unknown personnel status %q", status))
	}

	result, err := db.ExecContext(ctx,
		`UPDATE personnel SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, model.Fatal("updating person status", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, &model.NotFoundError{Kind: "personnel", ID: id}
	}

	return GetPerson(ctx, db, id)
}

// DeletePerson removes a person with no ledger history. A person referenced
// by any transaction fails with model.ErrInUse.
func DeletePerson(ctx context.Context, db *sql.DB, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return model.Fatal("beginning transaction", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE person_id = ?`, id,
	).Scan(&count); err != nil {
		return model.Fatal("counting person transactions", err)
	}
	if count > 0 {
		return fmt.Errorf("personnel %s has %d transactions: %w", id, count, model.ErrInUse)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM personnel WHERE id = ?`, id)
	if err != nil {
		return model.Fatal("deleting person", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &model.NotFoundError{Kind: "personnel", ID: id}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM qr_codes WHERE kind = ? AND reference_id = ?`, model.KindPersonnel, id,
	); err != nil {
		return model.Fatal("deleting person qr code", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Fatal("committing person delete", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*model.Person, error) {
	p := &model.Person{}
	var middle sql.NullString
	err := row.Scan(&p.ID, &p.Surname, &p.Firstname, &middle, &p.Rank, &p.Serial, &p.Office, &p.Telephone,
		&p.Status, &p.QRCode, &p.LinkedAccountID, &p.RegistrationDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.MiddleInitial = middle.String
	return p, nil
}
