package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/armory/internal/model"
)

// UpsertQRCode materializes the token mapping for a record, replacing the
// stored data and image key if the record already has one.
func UpsertQRCode(ctx context.Context, db *sql.DB, kind, referenceID, data, imageKey string) (*model.QRCode, error) {
	if !model.ValidKind(kind) {
		return nil, model.NewValidationError("kind", fmt.Sprintf("unknown kind %q", kind))
	}

	now := time.Now().UTC()
	_, err := db.ExecContext(ctx,
		`INSERT INTO qr_codes (kind, reference_id, data, image_key, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (kind, reference_id) DO UPDATE
		 SET data = excluded.data, image_key = excluded.image_key, updated_at = excluded.updated_at`,
		kind, referenceID, data, nullString(imageKey), now, now,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("qr data %q is already mapped: %w", data, model.ErrDuplicateSerial)
	}
	if err != nil {
		return nil, model.Fatal("upserting qr code", err)
	}

	return GetQRCodeByReference(ctx, db, kind, referenceID)
}

// GetQRCodeByToken returns the mapping whose encoded data equals token.
func GetQRCodeByToken(ctx context.Context, db *sql.DB, token string) (*model.QRCode, error) {
	return getQRCode(ctx, db, `data = ?`, token)
}

// GetQRCodeByReference returns the mapping for a record.
func GetQRCodeByReference(ctx context.Context, db *sql.DB, kind, referenceID string) (*model.QRCode, error) {
	return getQRCode(ctx, db, `kind = ? AND reference_id = ?`, kind, referenceID)
}

func getQRCode(ctx context.Context, db *sql.DB, where string, args ...any) (*model.QRCode, error) {
	q := &model.QRCode{}
	var imageKey sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, kind, reference_id, data, image_key, created_at, updated_at
		 FROM qr_codes WHERE `+where, args...,
	).Scan(&q.ID, &q.Kind, &q.ReferenceID, &q.Data, &imageKey, &q.CreatedAt, &q.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.Fatal("getting qr code", err)
	}
	q.ImageKey = imageKey.String
	return q, nil
}
