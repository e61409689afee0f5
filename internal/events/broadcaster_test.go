package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterPublishSubscribe(t *testing.T) {
	b := NewBroadcaster[int](4)
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	b.Publish(7)

	assert.Equal(t, 7, <-ch1)
	assert.Equal(t, 7, <-ch2)
	assert.Equal(t, 2, b.Len())
}

func TestBroadcasterDropsForSlowSubscriber(t *testing.T) {
	b := NewBroadcaster[int](1)
	ch := b.Subscribe()

	b.Publish(1)
	b.Publish(2)

	assert.Equal(t, 1, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("received %d, want dropped value", v)
	default:
	}
}

func TestBroadcasterUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster[string](0)
	ch := b.Subscribe()

	b.Unsubscribe(ch)
	b.Unsubscribe(ch)

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")
	assert.Equal(t, 0, b.Len())
}

func TestBroadcasterClose(t *testing.T) {
	b := NewBroadcaster[int](2)
	ch := b.Subscribe()

	b.Close()
	b.Close()

	_, ok := <-ch
	require.False(t, ok)

	late := b.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "subscribe after close should return closed channel")

	assert.NotPanics(t, func() { b.Publish(1) })
}
