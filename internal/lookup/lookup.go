// Package lookup resolves scanned tokens to personnel or items and suggests
// consumable quantities for an issue.
package lookup

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/erazemk/armory/internal/model"
	"github.com/erazemk/armory/internal/store"
)

// Result is a resolved token. Exactly one of Person and Item is set.
type Result struct {
	Kind   string        `json:"type"`
	Person *model.Person `json:"person,omitempty"`
	Item   *model.Item   `json:"item,omitempty"`
}

// ID returns the resolved record's ID.
func (r *Result) ID() string {
	if r.Person != nil {
		return r.Person.ID
	}
	return r.Item.ID
}

// Resolve maps a token to a record. The QR mapping is consulted first; a
// token without one is tried as a personnel ID and then as an item ID, since
// a code may be scanned before its mapping has been written.
func Resolve(ctx context.Context, db *sql.DB, token string) (*Result, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, model.NewValidationError("token", "is required")
	}

	q, err := store.GetQRCodeByToken(ctx, db, token)
	if err != nil {
		return nil, err
	}
	if q != nil {
		res, err := load(ctx, db, q.Kind, q.ReferenceID)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}

	for _, kind := range []string{model.KindPersonnel, model.KindItem} {
		res, err := load(ctx, db, kind, token)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}

	return nil, &model.NotFoundError{Kind: "token", ID: token}
}

// ResolvePerson resolves token and requires it to name personnel.
func ResolvePerson(ctx context.Context, db *sql.DB, token string) (*model.Person, error) {
	res, err := Resolve(ctx, db, token)
	if errors.Is(err, model.ErrNotFound) {
		return nil, &model.NotFoundError{Kind: model.KindPersonnel, ID: token}
	}
	if err != nil {
		return nil, err
	}
	if res.Person == nil {
		return nil, model.NewValidationError("token", "QR code is for an item, not personnel")
	}
	return res.Person, nil
}

// ResolveItem resolves token and requires it to name an item.
func ResolveItem(ctx context.Context, db *sql.DB, token string) (*model.Item, error) {
	res, err := Resolve(ctx, db, token)
	if errors.Is(err, model.ErrNotFound) {
		return nil, &model.NotFoundError{Kind: model.KindItem, ID: token}
	}
	if err != nil {
		return nil, err
	}
	if res.Item == nil {
		return nil, model.NewValidationError("token", "QR code is for personnel, not an item")
	}
	return res.Item, nil
}

func load(ctx context.Context, db *sql.DB, kind, id string) (*Result, error) {
	switch kind {
	case model.KindPersonnel:
		p, err := store.GetPerson(ctx, db, id)
		if err != nil || p == nil {
			return nil, err
		}
		return &Result{Kind: kind, Person: p}, nil
	case model.KindItem:
		it, err := store.GetItem(ctx, db, id)
		if err != nil || it == nil {
			return nil, err
		}
		return &Result{Kind: kind, Item: it}, nil
	}
	return nil, nil
}
