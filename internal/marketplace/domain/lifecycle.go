package domain

import "fmt"

// Event is an action that moves a candidature through its lifecycle.
type Event string

const (
	EventAccept   Event = "accept"
	EventRefuse   Event = "refuse"
	EventCancel   Event = "cancel"
	EventMarkDone Event = "mark_done"
	EventRetract  Event = "retract"
	EventApprove  Event = "approve"
)

// Role identifies which party is allowed to fire an event.
type Role string

const (
	RoleMerchant   Role = "merchant"
	RoleInfluencer Role = "influencer"
)

// Outcome is the result of a legal transition. Removed means the candidature
// leaves the deal's array; To is empty in that case.
type Outcome struct {
	From    CandidatureStatus
	To      CandidatureStatus
	Removed bool
}

type transition struct {
	to      CandidatureStatus
	removed bool
}

// transitions is the complete set of reachable edges. Anything not listed is rejected.
var transitions = map[CandidatureStatus]map[Event]transition{
	StatusSubmitted: {
		EventAccept: {to: StatusAccepted},
		EventRefuse: {to: StatusRefused},
		EventCancel: {removed: true},
	},
	StatusAccepted: {
		EventCancel:   {removed: true},
		EventMarkDone: {to: StatusApproval},
	},
	StatusApproval: {
		EventRetract: {to: StatusAccepted},
		EventApprove: {to: StatusCompleted},
	},
}

// Transition applies event to a candidature currently in status from.
func Transition(from CandidatureStatus, event Event) (Outcome, error) {
	edges, ok := transitions[from]
	if !ok {
		return Outcome{}, NewValidationError("status", fmt.Sprintf("aucune action possible depuis le statut %q", from))
	}
	edge, ok := edges[event]
	if !ok {
		return Outcome{}, NewValidationError("status", fmt.Sprintf("action %q impossible depuis le statut %q", event, from))
	}
	return Outcome{From: from, To: edge.to, Removed: edge.removed}, nil
}

// ActorFor returns the role allowed to fire event.
func ActorFor(event Event) Role {
	switch event {
	case EventMarkDone, EventRetract:
		return RoleInfluencer
	default:
		return RoleMerchant
	}
}

// CanReview reports whether reviews may be attached in status s.
func CanReview(s CandidatureStatus) bool {
	return s == StatusCompleted
}
