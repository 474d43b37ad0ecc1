// Package qr renders QR images for registered personnel and items and
// materializes the token mapping that lookup resolves against.
//
// Rendering is driven by registration events on a bounded queue and never
// holds up a registration or a ledger write.
package qr

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/armory/internal/blob"
	"github.com/erazemk/armory/internal/metrics"
	"github.com/erazemk/armory/internal/model"
	"github.com/erazemk/armory/internal/store"
)

// ErrQueueFull is returned by Publish when the queue has no room.
var ErrQueueFull = errors.New("qr queue full")

// Service consumes registration events and renders their images.
type Service struct {
	db       *sql.DB
	blobs    blob.Store
	renderer *Renderer
	metrics  *metrics.Metrics
	queue    chan model.Registered
}

// NewService returns a service with a queue of the given capacity.
// m may be nil.
func NewService(db *sql.DB, blobs blob.Store, renderer *Renderer, m *metrics.Metrics, queueSize int) *Service {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Service{
		db:       db,
		blobs:    blobs,
		renderer: renderer,
		metrics:  m,
		queue:    make(chan model.Registered, queueSize),
	}
}

// Publish enqueues an event without blocking. A full queue drops the event;
// the image is rendered on first download instead.
func (s *Service) Publish(_ context.Context, ev model.Registered) error {
	select {
	case s.queue <- ev:
		s.metrics.QRQueueDepth(len(s.queue))
		return nil
	default:
		s.metrics.QRRender("dropped")
		return fmt.Errorf("%s %s: %w", ev.Kind, ev.ReferenceID, ErrQueueFull)
	}
}

// Run starts workers that drain the queue until ctx is cancelled.
// Render failures are logged and counted, never returned.
func (s *Service) Run(ctx context.Context, workers int) error {
	if workers <= 0 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev := <-s.queue:
					s.metrics.QRQueueDepth(len(s.queue))
					if _, err := s.Materialize(ctx, ev.Kind, ev.ReferenceID, ev.Data); err != nil {
						slog.Error("qr render failed", "kind", ev.Kind, "reference_id", ev.ReferenceID, "event_id", ev.ID, "error", err)
					}
				}
			}
		})
	}
	return g.Wait()
}

// Materialize renders data, stores the image and upserts the token mapping.
func (s *Service) Materialize(ctx context.Context, kind, referenceID, data string) (*model.QRCode, error) {
	img, err := s.renderer.Render(data)
	if err != nil {
		s.metrics.QRRender("error")
		return nil, err
	}

	key := ImageKey(kind, referenceID)
	if err := s.blobs.Put(ctx, key, img, ContentType); err != nil {
		s.metrics.QRRender("error")
		return nil, fmt.Errorf("storing qr image: %w", err)
	}

	q, err := store.UpsertQRCode(ctx, s.db, kind, referenceID, data, key)
	if err != nil {
		s.metrics.QRRender("error")
		return nil, err
	}

	s.metrics.QRRender("ok")
	slog.Debug("qr rendered", "kind", kind, "reference_id", referenceID, "key", key)
	return q, nil
}

// Rerender renders the image of an existing record again.
func (s *Service) Rerender(ctx context.Context, kind, referenceID string) (*model.QRCode, error) {
	data, err := s.tokenData(ctx, kind, referenceID)
	if err != nil {
		return nil, err
	}
	return s.Materialize(ctx, kind, referenceID, data)
}

// Image returns the stored PNG for a record, rendering it first if the
// worker has not got to it yet or the blob has gone missing.
func (s *Service) Image(ctx context.Context, kind, referenceID string) ([]byte, error) {
	q, err := store.GetQRCodeByReference(ctx, s.db, kind, referenceID)
	if err != nil {
		return nil, err
	}
	if q != nil && q.ImageKey != "" {
		img, _, err := s.blobs.Get(ctx, q.ImageKey)
		if err == nil {
			return img, nil
		}
		if !errors.Is(err, blob.ErrNotFound) {
			return nil, fmt.Errorf("reading qr image: %w", err)
		}
	}

	q, err = s.Rerender(ctx, kind, referenceID)
	if err != nil {
		return nil, err
	}
	img, _, err := s.blobs.Get(ctx, q.ImageKey)
	if err != nil {
		return nil, fmt.Errorf("reading qr image: %w", err)
	}
	return img, nil
}

// tokenData returns the qr_code value stored on the record itself.
func (s *Service) tokenData(ctx context.Context, kind, referenceID string) (string, error) {
	switch kind {
	case model.KindPersonnel:
		p, err := store.GetPerson(ctx, s.db, referenceID)
		if err != nil {
			return "", err
		}
		if p == nil {
			return "", &model.NotFoundError{Kind: "personnel", ID: referenceID}
		}
		return p.QRCode, nil
	case model.KindItem:
		it, err := store.GetItem(ctx, s.db, referenceID)
		if err != nil {
			return "", err
		}
		if it == nil {
			return "", &model.NotFoundError{Kind: "item", ID: referenceID}
		}
		return it.QRCode, nil
	default:
		return "", model.NewValidationError("kind", fmt.Sprintf("unknown kind %q", kind))
	}
}

// ImageKey is the blob key of a record's QR image.
func ImageKey(kind, referenceID string) string {
	return fmt.Sprintf("qr/%s/%s.png", kind, url.PathEscape(referenceID))
}

// Discard removes a deleted record's stored image. Failures are logged; the
// token mapping is removed with the record itself.
func (s *Service) Discard(ctx context.Context, kind, referenceID string) {
	key := ImageKey(kind, referenceID)
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, blob.ErrNotFound) {
		slog.Warn("deleting qr image", "key", key, "error", err)
	}
}
