package domain

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusPending:  {TicketStatusPlanned, TicketStatusFinished},
	TicketStatusPlanned:  {TicketStatusPlanned, TicketStatusFinished},
	TicketStatusFinished: {},
}

// CanTransition reports whether a ticket may move from current to next.
// Re-planning a PLANNED ticket is allowed and overwrites its plan.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transitions leave the status.
func (s TicketStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}
