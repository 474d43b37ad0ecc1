package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/erazemk/armory/internal/model"
)

const itemColumns = `id, item_type, serial, description, condition, status, qr_code,
	registration_date, created_at, updated_at`

// CreateItem inserts a normalized item record. A serial or ID that is
// already registered fails with model.ErrDuplicateSerial.
func CreateItem(ctx context.Context, db *sql.DB, it *model.Item) (*model.Item, error) {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.ItemType, it.Serial, nullString(it.Description), it.Condition, model.ItemStatusAvailable,
		it.QRCode, it.RegistrationDate.UTC(), now, now,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("serial %q is already registered: %w", it.Serial, model.ErrDuplicateSerial)
	}
	if err != nil {
		return nil, model.Fatal("creating item", err)
	}

	return GetItem(ctx, db, it.ID)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	it, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.Fatal("getting item", err)
	}
	return it, nil
}

// ItemFilter narrows ListItems. Zero values mean no filter.
type ItemFilter struct {
	Status   string
	ItemType string
}

// ListItems returns items ordered by type and serial.
func ListItems(ctx context.Context, db *sql.DB, f ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	var args []any
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.ItemType != "" {
		itemType, _ := model.CanonicalItemType(f.ItemType)
		query += ` AND item_type = ?`
		args = append(args, itemType)
	}
	query += ` ORDER BY item_type, serial`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.Fatal("listing items", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, model.Fatal("scanning item", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Fatal("listing items", err)
	}
	return items, nil
}

// UpdateItemDetails updates an item's description and condition. Status is
// not touched here.
func UpdateItemDetails(ctx context.Context, db *sql.DB, id, description, condition string) (*model.Item, error) {
	if !slices.Contains(model.Conditions, condition) {
		return nil, model.NewValidationError("condition", fmt.Sprintf("unknown condition %q", condition))
	}

	result, err := db.ExecContext(ctx,
		`UPDATE items SET description = ?, condition = ?, updated_at = ? WHERE id = ?`,
		nullString(description), condition, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, model.Fatal("updating item", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, &model.NotFoundError{Kind: "item", ID: id}
	}

	return GetItem(ctx, db, id)
}

// SetAdministrativeStatus moves an item to Available, Maintenance or Retired
// outside the Take/Return flow. An Issued item must be returned first.
// No ledger entry is written.
func SetAdministrativeStatus(ctx context.Context, db *sql.DB, id, status string) (*model.Item, error) {
	if !model.ValidAdministrativeStatus(status) {
		return nil, model.NewValidationError("status", fmt.Sprintf("status must be one of %s, %s or %s",
			model.ItemStatusAvailable, model.ItemStatusMaintenance, model.ItemStatusRetired))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, model.Fatal("beginning transaction", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM items WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return nil, &model.NotFoundError{Kind: "item", ID: id}
	}
	if err != nil {
		return nil, model.Fatal("reading item status", err)
	}
	if current == model.ItemStatusIssued {
		return nil, &model.TransitionError{ItemID: id, Status: current, Action: status}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id,
	); err != nil {
		return nil, model.Fatal("setting item status", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, model.Fatal("committing item status", err)
	}

	return GetItem(ctx, db, id)
}

// DeleteItem removes an item with no ledger history. An item referenced by
// any transaction fails with model.ErrInUse.
func DeleteItem(ctx context.Context, db *sql.DB, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return model.Fatal("beginning transaction", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE item_id = ?`, id,
	).Scan(&count); err != nil {
		return model.Fatal("counting item transactions", err)
	}
	if count > 0 {
		return fmt.Errorf("item %s has %d transactions: %w", id, count, model.ErrInUse)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return model.Fatal("deleting item", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &model.NotFoundError{Kind: "item", ID: id}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM qr_codes WHERE kind = ? AND reference_id = ?`, model.KindItem, id,
	); err != nil {
		return model.Fatal("deleting item qr code", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Fatal("committing item delete", err)
	}
	return nil
}

func scanItem(row rowScanner) (*model.Item, error) {
	it := &model.Item{}
	var description sql.NullString
	err := row.Scan(&it.ID, &it.ItemType, &it.Serial, &description, &it.Condition, &it.Status, &it.QRCode,
		&it.RegistrationDate, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	it.Description = description.String
	return it, nil
}
