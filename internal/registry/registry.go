// Package registry registers personnel and items. It owns validation, ID
// generation and the registration event that drives QR rendering.
package registry

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/armory/internal/metrics"
	"github.com/erazemk/armory/internal/model"
	"github.com/erazemk/armory/internal/store"
)

// Publisher receives an event for every successful registration.
type Publisher interface {
	Publish(ctx context.Context, ev model.Registered) error
}

// Registry validates and stores new records.
type Registry struct {
	DB        *sql.DB
	Publisher Publisher
	Metrics   *metrics.Metrics

	// Now supplies the registration date. Defaults to time.Now.
	Now func() time.Time
}

// New returns a registry. pub and m may be nil.
func New(db *sql.DB, pub Publisher, m *metrics.Metrics) *Registry {
	return &Registry{DB: db, Publisher: pub, Metrics: m, Now: time.Now}
}

// RegisterPerson validates n, normalizes name casing and derives the ID.
// A serial that is already registered fails with model.ErrDuplicateSerial.
func (r *Registry) RegisterPerson(ctx context.Context, n model.NewPerson) (*model.Person, error) {
	if err := n.Validate(); err != nil {
		r.Metrics.Registration(model.KindPersonnel, model.ErrorKind(err))
		return nil, err
	}

	p, err := store.CreatePerson(ctx, r.DB, n.Normalize(r.now()))
	if err != nil {
		r.Metrics.Registration(model.KindPersonnel, model.ErrorKind(err))
		return nil, err
	}

	r.Metrics.Registration(model.KindPersonnel, "ok")
	slog.Info("personnel registered", "id", p.ID, "rank", p.Rank, "serial", p.Serial)
	r.publish(ctx, model.KindPersonnel, p.ID, p.QRCode)
	return p, nil
}

// RegisterItem validates n and derives the ID from category, serial and date.
// A serial that is already registered fails with model.ErrDuplicateSerial.
func (r *Registry) RegisterItem(ctx context.Context, n model.NewItem) (*model.Item, error) {
	if err := n.Validate(); err != nil {
		r.Metrics.Registration(model.KindItem, model.ErrorKind(err))
		return nil, err
	}

	it, err := store.CreateItem(ctx, r.DB, n.Normalize(r.now()))
	if err != nil {
		r.Metrics.Registration(model.KindItem, model.ErrorKind(err))
		return nil, err
	}

	r.Metrics.Registration(model.KindItem, "ok")
	slog.Info("item registered", "id", it.ID, "item_type", it.ItemType, "serial", it.Serial)
	r.publish(ctx, model.KindItem, it.ID, it.QRCode)
	return it, nil
}

// publish is fire-and-forget: a failed publish is logged and the
// registration still succeeds.
func (r *Registry) publish(ctx context.Context, kind, referenceID, data string) {
	if r.Publisher == nil {
		return
	}
	ev := model.Registered{
		ID:          uuid.NewString(),
		Kind:        kind,
		ReferenceID: referenceID,
		Data:        data,
		At:          r.now().UTC(),
	}
	if err := r.Publisher.Publish(ctx, ev); err != nil {
		slog.Warn("registration event not published", "kind", kind, "reference_id", referenceID, "error", err)
	}
}

func (r *Registry) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
