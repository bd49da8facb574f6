package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicops/booking-platform/internal/datastore"
	"github.com/clinicops/booking-platform/internal/idempotency"
	"github.com/clinicops/booking-platform/internal/tenancy"
)

type fakeEmail struct {
	sent []EmailMessage
	err  error
}

func (f *fakeEmail) Send(ctx context.Context, msg EmailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newTestService(t *testing.T, email EmailSender) (*Service, *Store) {
	t.Helper()
	guard := tenancy.NewGuard(datastore.New(), []string{Collection})
	store := NewStore(guard)
	svc := NewService(Deps{
		Store:   store,
		Ledger:  idempotency.NewLedger(),
		Counter: NewMemoryDailyCounter(),
		Email:   email,
		SMS:     NewStubSMSSender(nil),
		Now:     func() time.Time { return time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC) },
	})
	return svc, store
}

func reminderTo(clinicID, email, key string) SendRequest {
	return SendRequest{
		ClinicID:       clinicID,
		Timezone:       "Asia/Manila",
		IdempotencyKey: key,
		Type:           TypeReminder,
		Channel:        ChannelEmail,
		Recipient:      email,
		Subject:        "Appointment reminder",
		Body:           "See you soon.",
	}
}

func TestSendRecordsAndDelivers(t *testing.T) {
	email := &fakeEmail{}
	svc, store := newTestService(t, email)
	ctx := context.Background()

	res, err := svc.Send(ctx, reminderTo("clinic-a", "maria@example.com", "r1"))
	require.NoError(t, err)
	assert.Equal(t, StatusSent, res.Status)
	assert.False(t, res.Replayed)
	require.Len(t, email.sent, 1)
	assert.Equal(t, "maria@example.com", email.sent[0].To)

	recs, err := store.ListForRecipient(ctx, "clinic-a", TypeReminder, ChannelEmail, "maria@example.com")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, StatusSent, recs[0].Status)
}

func TestSendDailyCap(t *testing.T) {
	email := &fakeEmail{}
	svc, store := newTestService(t, email)
	ctx := context.Background()

	for i, key := range []string{"r1", "r2", "r3"} {
		res, err := svc.Send(ctx, reminderTo("clinic-a", "maria@example.com", key))
		require.NoError(t, err, "send %d", i+1)
		assert.Equal(t, StatusSent, res.Status)
	}

	// Fourth send of the same type/channel/recipient today is refused.
	res, err := svc.Send(ctx, reminderTo("clinic-a", "maria@example.com", "r4"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDailyCapReached))
	assert.Equal(t, StatusCapped, res.Status)

	var capErr *CapError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, 3, capErr.Cap)

	// No fourth record and no fourth delivery.
	recs, err := store.ListForRecipient(ctx, "clinic-a", TypeReminder, ChannelEmail, "maria@example.com")
	require.NoError(t, err)
	assert.Len(t, recs, 3)
	assert.Len(t, email.sent, 3)
}

func TestSendCapIsPerDimension(t *testing.T) {
	email := &fakeEmail{}
	svc, _ := newTestService(t, email)
	ctx := context.Background()

	for _, key := range []string{"r1", "r2", "r3"} {
		_, err := svc.Send(ctx, reminderTo("clinic-a", "maria@example.com", key))
		require.NoError(t, err)
	}

	// A different recipient, type or clinic has its own budget.
	_, err := svc.Send(ctx, reminderTo("clinic-a", "ana@example.com", "r4"))
	assert.NoError(t, err)

	confirm := reminderTo("clinic-a", "maria@example.com", "r5")
	confirm.Type = TypeBookingConfirmation
	_, err = svc.Send(ctx, confirm)
	assert.NoError(t, err)

	_, err = svc.Send(ctx, reminderTo("clinic-b", "maria@example.com", "r6"))
	assert.NoError(t, err)
}

func TestSendIdempotentReplay(t *testing.T) {
	email := &fakeEmail{}
	svc, store := newTestService(t, email)
	ctx := context.Background()

	first, err := svc.Send(ctx, reminderTo("clinic-a", "maria@example.com", "same-key"))
	require.NoError(t, err)

	second, err := svc.Send(ctx, reminderTo("clinic-a", "maria@example.com", "same-key"))
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.NotificationID, second.NotificationID)

	// One delivery, one record: the replay neither sends nor counts.
	assert.Len(t, email.sent, 1)
	recs, err := store.ListForRecipient(ctx, "clinic-a", TypeReminder, ChannelEmail, "maria@example.com")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestSendProviderFailureIsTerminal(t *testing.T) {
	email := &fakeEmail{err: errors.New("provider down")}
	svc, store := newTestService(t, email)
	ctx := context.Background()

	res, err := svc.Send(ctx, reminderTo("clinic-a", "maria@example.com", "k1"))
	require.Error(t, err)
	assert.Equal(t, StatusFailed, res.Status)

	recs, err := store.ListForRecipient(ctx, "clinic-a", TypeReminder, ChannelEmail, "maria@example.com")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, StatusFailed, recs[0].Status)
	assert.Contains(t, recs[0].Error, "provider down")

	// The provider recovers, but the key is terminal: the failure replays
	// instead of retrying delivery.
	email.err = nil
	replay, err := svc.Send(ctx, reminderTo("clinic-a", "maria@example.com", "k1"))
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, StatusFailed, replay.Status)
	assert.Empty(t, email.sent)
}

func TestSendValidation(t *testing.T) {
	svc, _ := newTestService(t, &fakeEmail{})
	ctx := context.Background()

	_, err := svc.Send(ctx, SendRequest{ClinicID: "clinic-a", Channel: ChannelEmail})
	assert.True(t, errors.Is(err, ErrInvalidRecipient))

	_, err = svc.Send(ctx, SendRequest{Recipient: "a@b.com", Channel: ChannelEmail})
	assert.Error(t, err)
}

func TestRedisDailyCounter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisDailyCounter(client, nil)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := c.Increment(ctx, "notify:daily:test", capWindow)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// The key expires with its window.
	mr.FastForward(capWindow + time.Minute)
	got, err := c.Increment(ctx, "notify:daily:test", capWindow)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestCounterOutageFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	guard := tenancy.NewGuard(datastore.New(), []string{Collection})
	email := &fakeEmail{}
	svc := NewService(Deps{
		Store:   NewStore(guard),
		Ledger:  idempotency.NewLedger(),
		Counter: NewRedisDailyCounter(client, nil),
		Email:   email,
	})

	mr.Close()
	res, err := svc.Send(context.Background(), reminderTo("clinic-a", "maria@example.com", "k1"))
	require.NoError(t, err)
	assert.Equal(t, StatusSent, res.Status)
	assert.Len(t, email.sent, 1)
}
