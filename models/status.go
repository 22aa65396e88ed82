package models

import "fmt"

type PostStatus string

const (
	StatusDraft           PostStatus = "draft"
	StatusScheduled       PostStatus = "scheduled"
	StatusGenerating      PostStatus = "generating"
	StatusWaitingApproval PostStatus = "waiting_approval"
	StatusApproved        PostStatus = "approved"
	StatusPublishing      PostStatus = "publishing"
	StatusPosted          PostStatus = "posted"
	StatusError           PostStatus = "error"
)

// Labels shown in listings and exports.
var statusLabels = map[PostStatus]string{
	StatusDraft:           "Draft",
	StatusScheduled:       "Scheduled (Waiting for AI)",
	StatusGenerating:      "Generating AI...",
	StatusWaitingApproval: "AI Done (Needs Review)",
	StatusApproved:        "Approved (Queue to Post)",
	StatusPublishing:      "Publishing in Progress...",
	StatusPosted:          "Posted",
	StatusError:           "Error",
}

func (s PostStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func (s PostStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Terminal reports whether no automatic transition leaves s.
func (s PostStatus) Terminal() bool {
	return s == StatusPosted || s == StatusError
}

// Actor identifies who drives a transition.
type Actor string

const (
	ActorUser     Actor = "user"
	ActorSystem   Actor = "system"
	ActorOperator Actor = "operator"
)

type transitionKey struct {
	from PostStatus
	to   PostStatus
}

// transitions maps every allowed edge to the actors permitted to take it.
// error -> scheduled is the operator's manual re-drive.
var transitions = map[transitionKey][]Actor{
	{StatusDraft, StatusScheduled}:            {ActorUser, ActorOperator},
	{StatusScheduled, StatusGenerating}:       {ActorSystem},
	{StatusGenerating, StatusApproved}:        {ActorSystem},
	{StatusGenerating, StatusWaitingApproval}: {ActorSystem},
	{StatusGenerating, StatusError}:           {ActorSystem},
	{StatusWaitingApproval, StatusApproved}:   {ActorUser, ActorOperator},
	{StatusApproved, StatusPublishing}:        {ActorSystem},
	{StatusPublishing, StatusPosted}:          {ActorSystem},
	{StatusPublishing, StatusError}:           {ActorSystem},
	{StatusError, StatusScheduled}:            {ActorOperator},
}

// CanTransition reports whether actor may move a post from one status to another.
func CanTransition(from, to PostStatus, actor Actor) bool {
	actors, ok := transitions[transitionKey{from, to}]
	if !ok {
		return false
	}
	for _, a := range actors {
		if a == actor {
			return true
		}
	}
	return false
}

// TransitionExists reports whether from -> to is an edge of the state
// machine for any actor.
func TransitionExists(from, to PostStatus) bool {
	_, ok := transitions[transitionKey{from, to}]
	return ok
}

// GeneratedStatus is the status a post moves to after a successful caption.
func GeneratedStatus(requiresApproval bool) PostStatus {
	if requiresApproval {
		return StatusWaitingApproval
	}
	return StatusApproved
}

// TransitionError describes a rejected transition.
type TransitionError struct {
	From  PostStatus
	To    PostStatus
	Actor Actor
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s not allowed for %s", e.From, e.To, e.Actor)
}
