package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu     sync.Mutex
	keys   []string
	fail   bool
	closed bool
}

func (r *recorder) Publish(_ context.Context, key string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	if r.fail {
		return errors.New("broker down")
	}
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func TestAsyncDeliversInOrderAndDrainsOnClose(t *testing.T) {
	rec := &recorder{}
	a := NewAsync(rec, 16, nil)

	require.NoError(t, a.Publish(context.Background(), BookingCreated, map[string]any{"id": 1}))
	require.NoError(t, a.Publish(context.Background(), BookingStatusChanged, map[string]any{"id": 1}))
	require.NoError(t, a.Publish(context.Background(), ListingDeleted, map[string]any{"id": 2}))
	require.NoError(t, a.Close())

	assert.Equal(t, []string{BookingCreated, BookingStatusChanged, ListingDeleted}, rec.keys)
	assert.True(t, rec.closed)
}

func TestAsyncPublishAfterClose(t *testing.T) {
	a := NewAsync(&recorder{}, 1, nil)
	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.Publish(context.Background(), AuthSignedIn, nil), ErrClosed)
	// second close is a no-op
	assert.NoError(t, a.Close())
}

func TestAsyncSwallowsBrokerErrors(t *testing.T) {
	rec := &recorder{fail: true}
	a := NewAsync(rec, 4, nil)
	assert.NoError(t, a.Publish(context.Background(), ListingCreated, nil))
	require.NoError(t, a.Close())
	assert.Len(t, rec.keys, 1)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), AuthSignedOut, nil))
	assert.NoError(t, p.Close())
}
