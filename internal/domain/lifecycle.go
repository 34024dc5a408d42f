package domain

// TransitionActor names the party allowed to trigger a status edge.
type TransitionActor int

const (
	ActorCreator TransitionActor = iota + 1
	ActorCurrentApprover
	ActorAssignee
)

func (a TransitionActor) String() string {
	switch a {
	case ActorCreator:
		return "creator"
	case ActorCurrentApprover:
		return "current_approver"
	case ActorAssignee:
		return "assignee"
	}
	return "unknown"
}

// allowedTransitions maps every lifecycle edge to the actor permitted to take it.
// Terminal statuses have no outgoing edges.
var allowedTransitions = map[TicketStatus]map[TicketStatus]TransitionActor{
	TicketStatusDraft: {
		TicketStatusWaitingApproval: ActorCreator,
		TicketStatusCancelled:       ActorCreator,
	},
	TicketStatusWaitingApproval: {
		TicketStatusRejected: ActorCurrentApprover,
		TicketStatusOpen:     ActorCurrentApprover,
	},
	TicketStatusOpen: {
		TicketStatusInProgress: ActorAssignee,
		TicketStatusCancelled:  ActorCreator,
	},
	TicketStatusInProgress: {
		TicketStatusResolved: ActorAssignee,
	},
	// resolved -> in_progress (reopen) awaits product confirmation of who may trigger it.
	TicketStatusResolved: {
		TicketStatusClosed:     ActorCreator,
		TicketStatusInProgress: ActorCreator,
	},
	TicketStatusRejected:  {},
	TicketStatusClosed:    {},
	TicketStatusCancelled: {},
}

// TransitionActorFor returns the actor allowed to move a ticket from one status
// to another, and false when the edge does not exist.
func TransitionActorFor(from, to TicketStatus) (TransitionActor, bool) {
	edges, ok := allowedTransitions[from]
	if !ok {
		return 0, false
	}
	actor, ok := edges[to]
	return actor, ok
}

// NextStatuses lists the statuses reachable from the given one.
func NextStatuses(from TicketStatus) []TicketStatus {
	edges := allowedTransitions[from]
	out := make([]TicketStatus, 0, len(edges))
	for _, candidate := range AllTicketStatuses() {
		if _, ok := edges[candidate]; ok {
			out = append(out, candidate)
		}
	}
	return out
}

// AllTicketStatuses returns every persisted status in lifecycle order.
func AllTicketStatuses() []TicketStatus {
	return []TicketStatus{
		TicketStatusDraft,
		TicketStatusWaitingApproval,
		TicketStatusRejected,
		TicketStatusOpen,
		TicketStatusInProgress,
		TicketStatusResolved,
		TicketStatusClosed,
		TicketStatusCancelled,
	}
}
