package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionActorFor(t *testing.T) {
	tests := []struct {
		from  TicketStatus
		to    TicketStatus
		actor TransitionActor
	}{
		{TicketStatusDraft, TicketStatusWaitingApproval, ActorCreator},
		{TicketStatusDraft, TicketStatusCancelled, ActorCreator},
		{TicketStatusWaitingApproval, TicketStatusRejected, ActorCurrentApprover},
		{TicketStatusWaitingApproval, TicketStatusOpen, ActorCurrentApprover},
		{TicketStatusOpen, TicketStatusInProgress, ActorAssignee},
		{TicketStatusOpen, TicketStatusCancelled, ActorCreator},
		{TicketStatusInProgress, TicketStatusResolved, ActorAssignee},
		{TicketStatusResolved, TicketStatusClosed, ActorCreator},
		{TicketStatusResolved, TicketStatusInProgress, ActorCreator},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			actor, ok := TransitionActorFor(tt.from, tt.to)
			assert.True(t, ok)
			assert.Equal(t, tt.actor, actor)
		})
	}
}

func TestTransitionActorFor_EdgeCount(t *testing.T) {
	count := 0
	for _, from := range AllTicketStatuses() {
		for _, to := range AllTicketStatuses() {
			if _, ok := TransitionActorFor(from, to); ok {
				count++
			}
		}
	}
	assert.Equal(t, 9, count)
}

func TestTransitionActorFor_TerminalHasNoEdges(t *testing.T) {
	for _, from := range AllTicketStatuses() {
		if !from.IsTerminal() {
			continue
		}
		assert.Empty(t, NextStatuses(from), "terminal status %s", from)
	}
}

func TestTransitionActorFor_SelfLoopsRejected(t *testing.T) {
	for _, s := range AllTicketStatuses() {
		_, ok := TransitionActorFor(s, s)
		assert.False(t, ok, "self transition %s", s)
	}
}

func TestTicketStatusValid(t *testing.T) {
	assert.True(t, TicketStatusOpen.Valid())
	assert.False(t, TicketStatus("OPEN").Valid())
	assert.False(t, TicketStatus("").Valid())
}

func TestApprovalProcessHelpers(t *testing.T) {
	proxy := int64(9)
	p := &ApprovalProcess{
		CurrentStep: 2,
		Steps: []ApprovalProcessStep{
			{StepOrder: 1, ApproverID: 1, Status: ApprovalStepApproved},
			{StepOrder: 2, ApproverID: 2, ProxyID: &proxy, Status: ApprovalStepPending},
		},
	}

	current := p.CurrentStepEntry()
	if assert.NotNil(t, current) {
		assert.Equal(t, int64(2), current.ApproverID)
	}
	assert.True(t, p.InvolvesUser(9))
	assert.True(t, p.InvolvesUser(1))
	assert.False(t, p.InvolvesUser(3))
	assert.True(t, p.IsLastStep(2))
	assert.False(t, p.IsLastStep(1))
}
