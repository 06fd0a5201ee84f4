package notify_test

import (
	"complaintdesk/backend/internal/notify"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	got    []notify.Notification
	closed int
	err    error
}

func (r *recordingDispatcher) Notify(_ context.Context, title, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, notify.Notification{Title: title, Body: body})
	return r.err
}

func (r *recordingDispatcher) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

func TestService_DeliversInOrderAndDrainsOnClose(t *testing.T) {
	// Arrange
	d := &recordingDispatcher{}
	svc := notify.NewService(d, 8)
	svc.Start(context.Background())

	// Act
	require.NoError(t, svc.Notify(context.Background(), "New complaint", "one"))
	require.NoError(t, svc.Notify(context.Background(), "New complaint", "two"))
	require.NoError(t, svc.Close())

	// Assert
	assert.Equal(t, []notify.Notification{
		{Title: "New complaint", Body: "one"},
		{Title: "New complaint", Body: "two"},
	}, d.got)
	assert.Equal(t, 1, d.closed)
}

func TestService_NotifyAfterClose(t *testing.T) {
	d := &recordingDispatcher{}
	svc := notify.NewService(d, 1)
	svc.Start(context.Background())

	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close(), "second close is a no-op")

	assert.ErrorIs(t, svc.Notify(context.Background(), "t", "b"), notify.ErrClosed)
	assert.Equal(t, 1, d.closed)
}

func TestService_CloseWithoutStart(t *testing.T) {
	d := &recordingDispatcher{}
	svc := notify.NewService(d, 1)

	assert.NoError(t, svc.Close())
	assert.Equal(t, 1, d.closed)
}

func TestService_FullQueueDrops(t *testing.T) {
	d := &recordingDispatcher{}
	svc := notify.NewService(d, 1)

	// Not started: the queue holds one item and the rest are dropped.
	require.NoError(t, svc.Notify(context.Background(), "a", ""))
	require.NoError(t, svc.Notify(context.Background(), "b", ""))

	svc.Start(context.Background())
	require.NoError(t, svc.Close())

	assert.Equal(t, []notify.Notification{{Title: "a"}}, d.got)
}

func TestMulti(t *testing.T) {
	ok := &recordingDispatcher{}
	bad := &recordingDispatcher{err: errors.New("send failed")}
	m := notify.Multi{bad, ok, notify.LogDispatcher{}}

	err := m.Notify(context.Background(), "t", "b")

	assert.Error(t, err)
	assert.Len(t, ok.got, 1, "later dispatchers still run")
	assert.NoError(t, m.Close())
	assert.Equal(t, 1, ok.closed)
}
