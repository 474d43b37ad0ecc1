package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/armory/internal/db"
	"github.com/erazemk/armory/internal/model"
)

type recorder struct {
	mu     sync.Mutex
	events []model.Registered
	err    error
}

func (r *recorder) Publish(_ context.Context, ev model.Registered) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func newRegistry(t *testing.T, pub Publisher) *Registry {
	t.Helper()
	r := New(db.NewTestDB(t), pub, nil)
	r.Now = func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) }
	return r
}

var sergeant = model.NewPerson{
	Surname:   "DELA CRUZ",
	Firstname: "juan",
	Rank:      "sgt",
	Serial:    "123456",
	Office:    "951",
	Telephone: "+639171234567",
}

func TestRegisterPerson(t *testing.T) {
	pub := &recorder{}
	r := newRegistry(t, pub)

	p, err := r.RegisterPerson(context.Background(), sergeant)
	require.NoError(t, err)
	assert.Equal(t, "PE-123456161026", p.ID)
	assert.Equal(t, "Dela Cruz", p.Surname)
	assert.Equal(t, "Juan", p.Firstname)
	assert.Equal(t, "SGT", p.Rank)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, model.KindPersonnel, ev.Kind)
	assert.Equal(t, p.ID, ev.ReferenceID)
	assert.Equal(t, p.QRCode, ev.Data)
	assert.NotEmpty(t, ev.ID)
}

func TestRegisterOfficer(t *testing.T) {
	r := newRegistry(t, nil)

	n := sergeant
	n.Rank = "LTCOL"
	n.Serial = "O-99887"
	p, err := r.RegisterPerson(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, "PO-99887161026", p.ID)
	assert.Equal(t, "DELA CRUZ", p.Surname)
	assert.Equal(t, "JUAN", p.Firstname)
}

func TestRegisterPersonDuplicateSerial(t *testing.T) {
	pub := &recorder{}
	r := newRegistry(t, pub)
	ctx := context.Background()

	_, err := r.RegisterPerson(ctx, sergeant)
	require.NoError(t, err)

	other := sergeant
	other.Surname = "Reyes"
	other.Office = "HAS"
	_, err = r.RegisterPerson(ctx, other)
	assert.ErrorIs(t, err, model.ErrDuplicateSerial)
	assert.Len(t, pub.events, 1, "failed registrations emit nothing")
}

func TestRegisterPersonValidation(t *testing.T) {
	r := newRegistry(t, nil)

	n := sergeant
	n.Telephone = "09171234567"
	n.Office = ""
	_, err := r.RegisterPerson(context.Background(), n)

	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	fields := []string{}
	for _, fe := range ve.Errors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"office", "telephone"}, fields)
}

func TestRegisterItem(t *testing.T) {
	pub := &recorder{}
	r := newRegistry(t, pub)
	ctx := context.Background()

	it, err := r.RegisterItem(ctx, model.NewItem{ItemType: "m16", Serial: "R77"})
	require.NoError(t, err)
	assert.Equal(t, "IR-R77161026", it.ID)
	assert.Equal(t, model.ItemStatusAvailable, it.Status)

	_, err = r.RegisterItem(ctx, model.NewItem{ItemType: "M4", Serial: "R77"})
	assert.ErrorIs(t, err, model.ErrDuplicateSerial)

	_, err = r.RegisterItem(ctx, model.NewItem{ItemType: "bazooka", Serial: "X1"})
	assert.ErrorIs(t, err, model.ErrValidation)

	require.Len(t, pub.events, 1)
	assert.Equal(t, model.KindItem, pub.events[0].Kind)
}

func TestPublishFailureDoesNotFailRegistration(t *testing.T) {
	r := newRegistry(t, &recorder{err: errors.New("queue full")})

	_, err := r.RegisterItem(context.Background(), model.NewItem{ItemType: "GLOCK", Serial: "G001"})
	assert.NoError(t, err)
}
