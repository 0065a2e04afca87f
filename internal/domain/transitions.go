package domain

import (
	"errors"
	"strings"
	"time"
)

// Actor identifies which side of the marketplace issues a transition.
type Actor string

const (
	ActorWorker   Actor = "worker"
	ActorCustomer Actor = "customer"
)

// Action is a lifecycle transition one actor may request.
type Action string

const (
	ActionAccept            Action = "accept"
	ActionReject            Action = "reject"
	ActionStart             Action = "start"
	ActionCancel            Action = "cancel"
	ActionRequestCompletion Action = "request_completion"
	ActionConfirmCompletion Action = "confirm_completion"
	ActionRejectCompletion  Action = "reject_completion"
)

var (
	ErrTerminalState          = errors.New("booking is in a terminal state")
	ErrActionNotAllowed       = errors.New("action not allowed for this actor and status")
	ErrCompletionNotRequested = errors.New("no completion request is pending")
	ErrCancellationReason     = errors.New("cancellation reason is required")
)

// allowedFrom is the authority table: per actor, the statuses each action may
// be issued from. Workers can never reach Completed directly; that edge is
// owned by the customer's confirm_completion and gated on a pending
// completion request.
var allowedFrom = map[Actor]map[Action][]Status{
	ActorWorker: {
		ActionAccept:            {StatusPending},
		ActionReject:            {StatusPending},
		ActionStart:             {StatusConfirmed},
		ActionCancel:            {StatusConfirmed, StatusInProgress},
		ActionRequestCompletion: {StatusInProgress},
	},
	ActorCustomer: {
		ActionCancel:            {StatusPending, StatusConfirmed, StatusInProgress},
		ActionConfirmCompletion: {StatusInProgress},
		ActionRejectCompletion:  {StatusInProgress},
	},
}

// targetStatus is what each action transitions the booking to.
// request_completion and reject_completion keep the booking InProgress.
var targetStatus = map[Action]Status{
	ActionAccept:            StatusConfirmed,
	ActionReject:            StatusRejected,
	ActionStart:             StatusInProgress,
	ActionCancel:            StatusCancelled,
	ActionRequestCompletion: StatusInProgress,
	ActionConfirmCompletion: StatusCompleted,
	ActionRejectCompletion:  StatusInProgress,
}

// ActionForStatus resolves the legacy "update to status X" request form into
// an action for the given actor. The customer targeting InProgress means
// resolving a pending completion request negatively.
func ActionForStatus(actor Actor, target Status) (Action, error) {
	switch actor {
	case ActorWorker:
		switch target {
		case StatusConfirmed:
			return ActionAccept, nil
		case StatusRejected:
			return ActionReject, nil
		case StatusInProgress:
			return ActionStart, nil
		case StatusCancelled:
			return ActionCancel, nil
		}
	case ActorCustomer:
		switch target {
		case StatusCancelled:
			return ActionCancel, nil
		case StatusCompleted:
			return ActionConfirmCompletion, nil
		case StatusInProgress:
			return ActionRejectCompletion, nil
		}
	}
	return "", ErrActionNotAllowed
}

// CanApply checks whether actor may issue action against the booking's
// current state. It distinguishes terminal-state rejections from plain
// authority failures so callers can surface the right message.
func CanApply(b *Booking, actor Actor, action Action) error {
	if b.Status.Terminal() {
		return ErrTerminalState
	}
	froms, ok := allowedFrom[actor][action]
	if !ok {
		return ErrActionNotAllowed
	}
	for _, from := range froms {
		if b.Status == from {
			switch action {
			case ActionConfirmCompletion, ActionRejectCompletion:
				if !b.CompletionRequested {
					return ErrCompletionNotRequested
				}
			}
			return nil
		}
	}
	return ErrActionNotAllowed
}

// Apply mutates b per the action's semantics. Callers pass the authoritative
// clock so completedAt is stamped server-side, never from a client payload.
// request_completion is idempotent: re-applying it while a request is
// already pending is a no-op, not an error.
func Apply(b *Booking, actor Actor, action Action, reason string, now time.Time) error {
	if err := CanApply(b, actor, action); err != nil {
		return err
	}

	switch action {
	case ActionCancel:
		if strings.TrimSpace(reason) == "" {
			return ErrCancellationReason
		}
		b.Status = StatusCancelled
		b.CompletionRequested = false
		b.CancellationReason = strings.TrimSpace(reason)
	case ActionRequestCompletion:
		b.CompletionRequested = true
	case ActionConfirmCompletion:
		b.Status = StatusCompleted
		b.Completed = true
		b.CompletionRequested = false
		b.CompletedAt = &now
	case ActionRejectCompletion:
		b.CompletionRequested = false
	default:
		b.Status = targetStatus[action]
	}
	b.UpdatedAt = now

	return b.Validate()
}
