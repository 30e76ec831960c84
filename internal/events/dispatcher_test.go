package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.TicketID)
		return errors.New("boom")
	})
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketFinished, func(context.Context, Event) error {
		calls = append(calls, "finished")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "TKT-1"})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []string{"first:TKT-1", "second:TKT-1"}, calls)

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketOverdue}))
}
