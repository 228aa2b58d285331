package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

func TestQueueDropsOldest(t *testing.T) {
	q := NewQueue(2)
	assert.False(t, q.Push(domain.FeedEvent{Seq: 1}))
	assert.False(t, q.Push(domain.FeedEvent{Seq: 2}))
	assert.True(t, q.Push(domain.FeedEvent{Seq: 3}))

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, uint64(1), q.Dropped())

	ev, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, uint64(2), ev.Seq)
	ev, ok = q.TryPop()
	require.True(t, ok)
	assert.Equal(t, uint64(3), ev.Seq)
	_, ok = q.TryPop()
	assert.False(t, ok)
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := NewQueue(4)
	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Push(domain.FeedEvent{Seq: 9})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), ev.Seq)
}

func TestQueuePopHonorsContext(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
