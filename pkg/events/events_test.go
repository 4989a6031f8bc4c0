package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	require.Equal(t, 1, b.SubscriberCount())

	b.Publish(&Event{Type: EventManagerStarted, Message: "lp-ingest"})

	select {
	case ev := <-sub:
		assert.Equal(t, EventManagerStarted, ev.Type)
		assert.Equal(t, "lp-ingest", ev.Message)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBrokerUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Unsubscribe(sub)

	assert.Equal(t, 0, b.SubscriberCount())

	b.Publish(&Event{Type: EventWorkerStopped})
	// sub channel was closed by Unsubscribe; reading from it must not block.
	_, ok := <-sub
	assert.False(t, ok)
}
