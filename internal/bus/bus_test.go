package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incubator-backend/internal/models"
)

func msg(serial string) models.FanOutMessage {
	return models.FanOutMessage{
		Type:         "telemetry",
		DeviceID:     "dev-" + serial,
		DeviceSerial: serial,
		FarmID:       "FARM-1",
	}
}

func TestPublish_DeliversToCurrentSubscribers(t *testing.T) {
	t.Parallel()

	b := New(4)
	sub1 := b.Subscribe("FARM-1")
	sub2 := b.Subscribe("FARM-1")
	other := b.Subscribe("FARM-2")

	delivered := b.Publish("FARM-1", msg("INC-0001"))
	assert.Equal(t, 2, delivered)

	for _, sub := range []*Subscription{sub1, sub2} {
		select {
		case got := <-sub.C():
			assert.Equal(t, "INC-0001", got.DeviceSerial)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive message")
		}
	}

	select {
	case <-other.C():
		t.Fatal("message leaked to another farm channel")
	default:
	}
}

func TestPublish_NoSubscribersDropsSilently(t *testing.T) {
	t.Parallel()

	b := New(4)
	assert.Equal(t, 0, b.Publish("FARM-1", msg("INC-0001")))

	// a late subscriber sees nothing published before it joined
	late := b.Subscribe("FARM-1")
	select {
	case <-late.C():
		t.Fatal("late subscriber received replayed message")
	default:
	}
}

func TestPublish_SlowSubscriberNeverBlocks(t *testing.T) {
	t.Parallel()

	b := New(2)
	slow := b.Subscribe("FARM-1")
	fast := b.Subscribe("FARM-1")

	// fill the slow subscriber's inbox, then keep publishing
	publishDone := make(chan struct{})
	go func() {
		defer close(publishDone)
		for i := 0; i < 10; i++ {
			b.Publish("FARM-1", msg("INC-0001"))
			// drain fast so only slow overflows
			select {
			case <-fast.C():
			default:
			}
		}
	}()

	select {
	case <-publishDone:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}

	// slow got exactly its buffer's worth, the rest were dropped
	received := 0
	for {
		select {
		case <-slow.C():
			received++
			continue
		default:
		}
		break
	}
	assert.Equal(t, 2, received)
}

func TestUnsubscribe_RemovesAndCloses(t *testing.T) {
	t.Parallel()

	b := New(4)
	sub := b.Subscribe("FARM-1")
	require.Equal(t, 1, b.SubscriberCount("FARM-1"))

	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount("FARM-1"))

	_, ok := <-sub.C()
	assert.False(t, ok, "channel should be closed after unsubscribe")

	// double unsubscribe is safe
	b.Unsubscribe(sub)

	assert.Equal(t, 0, b.Publish("FARM-1", msg("INC-0001")))
}
