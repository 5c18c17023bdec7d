package events_test

import (
	"testing"

	"github.com/jrsteele09/go-course-client/events"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := events.NewBus()

	var received []events.Kind
	unsubscribe := bus.Subscribe(func(e events.Event) {
		received = append(received, e.Kind)
	})
	defer unsubscribe()

	bus.Publish(events.Event{Kind: events.RefreshStart})
	bus.Publish(events.Event{Kind: events.RefreshSuccess})

	require.Equal(t, []events.Kind{events.RefreshStart, events.RefreshSuccess}, received)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := events.NewBus()

	count := 0
	unsubscribe := bus.Subscribe(func(events.Event) { count++ })

	bus.Publish(events.Event{Kind: events.Forbidden})
	unsubscribe()
	bus.Publish(events.Event{Kind: events.Forbidden})

	require.Equal(t, 1, count)
}

func TestBusWithoutSubscribersDropsEvents(t *testing.T) {
	bus := events.NewBus()
	bus.Publish(events.Event{Kind: events.SessionExpired}) // must not panic or block
}
