package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscribeReceivesBroadcast(t *testing.T) {
	feed := NewFeed()
	sub := feed.Subscribe()

	feed.Broadcast(Update{Type: "sensor_reading", Data: "x", Timestamp: time.Now()})

	select {
	case update := <-sub.Updates:
		assert.Equal(t, "sensor_reading", update.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	feed := NewFeed()
	a := feed.Subscribe()
	b := feed.Subscribe()

	feed.Broadcast(Update{Type: "incident"})

	for _, sub := range []*Subscriber{a, b} {
		select {
		case update := <-sub.Updates:
			assert.Equal(t, "incident", update.Type)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive broadcast")
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	feed := NewFeed()
	sub := feed.Subscribe()
	feed.Unsubscribe(sub.ID)

	feed.Broadcast(Update{Type: "dispatch_decision"})

	select {
	case <-sub.Done:
	default:
		t.Fatal("expected Done to be closed after unsubscribe")
	}

	select {
	case _, ok := <-sub.Updates:
		if ok {
			t.Fatal("did not expect an update after unsubscribe")
		}
	default:
	}
}

func TestUnsubscribeUnknownIDIsNoop(t *testing.T) {
	feed := NewFeed()
	assert.NotPanics(t, func() {
		feed.Unsubscribe(NewFeed().Subscribe().ID)
	})
}

func TestBroadcastDropsWhenSubscriberBufferFull(t *testing.T) {
	feed := NewFeed()
	sub := feed.Subscribe()

	for i := 0; i < 32; i++ {
		feed.Broadcast(Update{Type: "sensor_reading"})
	}

	assert.LessOrEqual(t, len(sub.Updates), cap(sub.Updates))
}
