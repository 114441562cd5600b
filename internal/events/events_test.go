package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusPublishJSON(t *testing.T) {
	bus := NewEventBus()

	var got ReservationEventPayload
	calls := 0
	bus.Subscribe(EventReservationConfirmed, func(ev *Event) error {
		calls++
		return json.Unmarshal(ev.Payload, &got)
	})

	payload := ReservationEventPayload{CompanyID: "barberia-x", ReservationID: "341", ServiceID: 5}
	require.NoError(t, bus.PublishJSON(EventReservationConfirmed, payload))

	assert.Equal(t, 1, calls)
	assert.Equal(t, payload, got)
}

func TestEventBusIgnoresOtherTypes(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	bus.Subscribe(EventReservationCancelled, func(ev *Event) error {
		calls++
		return nil
	})

	require.NoError(t, bus.PublishJSON(EventReservationConfirmed, ReservationEventPayload{}))
	assert.Zero(t, calls)
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventReservationConfirmed, ReservationEventPayload{}))
}
