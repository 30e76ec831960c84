package events

import (
	"time"

	"github.com/spec-kit/maintenance-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketPlanned  EventType = "ticket_planned"
	EventTicketFinished EventType = "ticket_finished"
	EventTicketOverdue  EventType = "ticket_overdue"
)

// Event represents a lifecycle event emitted by the ticket service. Ticket is
// the confirmed row after the transition.
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	TicketID  string        `json:"ticket_id"`
	ActorID   string        `json:"actor_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Ticket    domain.Ticket `json:"ticket"`
}
