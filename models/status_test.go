package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_Lifecycle(t *testing.T) {
	cases := []struct {
		from  PostStatus
		to    PostStatus
		actor Actor
		want  bool
	}{
		{StatusDraft, StatusScheduled, ActorUser, true},
		{StatusDraft, StatusScheduled, ActorSystem, false},
		{StatusScheduled, StatusGenerating, ActorSystem, true},
		{StatusScheduled, StatusGenerating, ActorUser, false},
		{StatusGenerating, StatusApproved, ActorSystem, true},
		{StatusGenerating, StatusWaitingApproval, ActorSystem, true},
		{StatusGenerating, StatusError, ActorSystem, true},
		{StatusWaitingApproval, StatusApproved, ActorUser, true},
		{StatusWaitingApproval, StatusApproved, ActorSystem, false},
		{StatusApproved, StatusPublishing, ActorSystem, true},
		{StatusPublishing, StatusPosted, ActorSystem, true},
		{StatusPublishing, StatusError, ActorSystem, true},
		{StatusError, StatusScheduled, ActorOperator, true},
		{StatusError, StatusScheduled, ActorUser, false},
		{StatusPosted, StatusScheduled, ActorOperator, false},
		{StatusDraft, StatusGenerating, ActorSystem, false},
		{StatusScheduled, StatusApproved, ActorUser, false},
	}
	for _, tc := range cases {
		got := CanTransition(tc.from, tc.to, tc.actor)
		assert.Equalf(t, tc.want, got, "%s -> %s by %s", tc.from, tc.to, tc.actor)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusPosted.Terminal())
	assert.True(t, StatusError.Terminal())
	assert.False(t, StatusApproved.Terminal())
	assert.False(t, StatusDraft.Terminal())
}

func TestGeneratedStatus(t *testing.T) {
	assert.Equal(t, StatusWaitingApproval, GeneratedStatus(true))
	assert.Equal(t, StatusApproved, GeneratedStatus(false))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "AI Done (Needs Review)", StatusWaitingApproval.Label())
	assert.Equal(t, "bogus", PostStatus("bogus").Label())
	assert.False(t, PostStatus("bogus").Valid())
}

func TestTransitionExists(t *testing.T) {
	assert.True(t, TransitionExists(StatusError, StatusScheduled))
	assert.False(t, TransitionExists(StatusPosted, StatusError))
}
