package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
	"github.com/spec-kit/itsm-ticket-service/internal/events"
	"github.com/spec-kit/itsm-ticket-service/internal/repository"
	"github.com/spec-kit/itsm-ticket-service/internal/repository/memory"
	apperrors "github.com/spec-kit/itsm-ticket-service/pkg/util/errorutil"
)

const (
	creatorID   int64 = 1
	approverOne int64 = 10
	approverTwo int64 = 20
	proxyTwo    int64 = 21
	outsiderID  int64 = 99
)

type fixture struct {
	store     *memory.Store
	recorder  *events.Recorder
	tickets   *TicketService
	approvals *ApprovalService
	catalog   *CatalogService
}

func newFixture(t *testing.T, opts ...func(*TicketDependencies)) *fixture {
	t.Helper()
	store := memory.NewStore()
	recorder := &events.Recorder{}
	notes := NewNoteService()
	approvals := NewApprovalService(ApprovalDependencies{
		UnitOfWork: store,
		Notes:      notes,
		Publisher:  recorder,
	})
	deps := TicketDependencies{
		UnitOfWork: store,
		Notes:      notes,
		Approvals:  approvals,
		Publisher:  recorder,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return &fixture{
		store:     store,
		recorder:  recorder,
		tickets:   NewTicketService(deps),
		approvals: approvals,
		catalog:   NewCatalogService(store),
	}
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) twoStepTemplate(t *testing.T) *domain.ApprovalTemplate {
	t.Helper()
	template, err := f.approvals.CreateTemplate(context.Background(), creatorID, "Hardware purchase", []TemplateStepInput{
		{StepOrder: 1, UserID: ptr(approverOne)},
		{StepOrder: 2, UserID: ptr(approverTwo), ProxyUserID: ptr(proxyTwo)},
	})
	require.NoError(t, err)
	return template
}

func (f *fixture) draft(t *testing.T, input CreateTicketInput) *domain.Ticket {
	t.Helper()
	if input.Title == "" {
		input.Title = "New laptop"
	}
	ticket, err := f.tickets.CreateTicket(context.Background(), creatorID, input)
	require.NoError(t, err)
	return ticket
}

func (f *fixture) noteTypes(t *testing.T, ticketID int64) []domain.TicketEventType {
	t.Helper()
	notes, err := f.store.Store().Notes.ListByTicket(context.Background(), ticketID)
	require.NoError(t, err)
	out := make([]domain.TicketEventType, 0, len(notes))
	for _, note := range notes {
		if note.EventType == nil {
			out = append(out, "")
			continue
		}
		out = append(out, *note.EventType)
	}
	return out
}

func (f *fixture) process(t *testing.T, ticketID int64) *domain.ApprovalProcess {
	t.Helper()
	process, err := f.store.Store().Approvals.GetProcessByTicket(context.Background(), ticketID)
	require.NoError(t, err)
	return process
}

// assertProcessConsistent checks that a pending process has exactly one
// pending step, the current one, with every earlier step approved, and that a
// finished process has no pending step at all.
func assertProcessConsistent(t *testing.T, process *domain.ApprovalProcess) {
	t.Helper()
	pending := 0
	for _, step := range process.Steps {
		if step.Status == domain.ApprovalStepPending {
			pending++
		}
	}
	if process.Status != domain.ApprovalProcessPending {
		assert.Zero(t, pending, "process %d is %s but has pending steps", process.ID, process.Status)
		return
	}
	assert.Equal(t, 1, pending, "pending process %d", process.ID)
	for _, step := range process.Steps {
		switch {
		case step.StepOrder < process.CurrentStep:
			assert.Equal(t, domain.ApprovalStepApproved, step.Status, "step %d", step.StepOrder)
		case step.StepOrder == process.CurrentStep:
			assert.Equal(t, domain.ApprovalStepPending, step.Status, "step %d", step.StepOrder)
		}
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, code), "expected %s, got %v", code, err)
}

func TestCreateTicketDefaults(t *testing.T) {
	f := newFixture(t)
	ticket := f.draft(t, CreateTicketInput{Title: "  Printer jam  "})

	assert.Equal(t, "Printer jam", ticket.Title)
	assert.Equal(t, domain.TicketStatusDraft, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, domain.TicketVisibilityInternal, ticket.Visibility)
	assert.Regexp(t, `^TK\d{8}[0-9A-F]{6}$`, ticket.TicketNo)
	assert.Empty(t, f.noteTypes(t, ticket.ID))
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, f.recorder.Types())
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tickets.CreateTicket(ctx, creatorID, CreateTicketInput{Title: "   "})
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.tickets.CreateTicket(ctx, creatorID, CreateTicketInput{Title: "x", Priority: "critical"})
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.tickets.CreateTicket(ctx, creatorID, CreateTicketInput{Title: "x", LabelIDs: []int64{404}})
	assertCode(t, err, apperrors.CodeNotFound)

	_, total, err := f.tickets.SearchTickets(ctx, creatorID, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateTicketRetriesNumberCollisionOnce(t *testing.T) {
	numbers := []string{"TKDUP", "TKDUP", "TKNEW", "TKDUP", "TKNEW"}
	next := func() string {
		n := numbers[0]
		numbers = numbers[1:]
		return n
	}
	f := newFixture(t, func(d *TicketDependencies) {
		d.TicketNumbers = func(_ time.Time) string { return next() }
	})
	ctx := context.Background()

	first := f.draft(t, CreateTicketInput{})
	assert.Equal(t, "TKDUP", first.TicketNo)

	second := f.draft(t, CreateTicketInput{})
	assert.Equal(t, "TKNEW", second.TicketNo)

	_, err := f.tickets.CreateTicket(ctx, creatorID, CreateTicketInput{Title: "third"})
	assertCode(t, err, apperrors.CodeConflict)

	_, total, err := f.tickets.SearchTickets(ctx, creatorID, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestApprovalScenarioOpensTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	template := f.twoStepTemplate(t)
	ticket := f.draft(t, CreateTicketInput{ApprovalTemplateID: &template.ID})

	submitted, err := f.tickets.ChangeStatus(ctx, creatorID, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusWaitingApproval})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusWaitingApproval, submitted.Status)
	require.NotNil(t, submitted.ApprovalProcess)

	process := submitted.ApprovalProcess
	assert.Equal(t, domain.ApprovalProcessPending, process.Status)
	assert.Equal(t, 1, process.CurrentStep)
	require.Len(t, process.Steps, 2)
	assert.Equal(t, approverOne, process.Steps[0].ApproverID)
	assert.Equal(t, approverTwo, process.Steps[1].ApproverID)
	assert.Equal(t, proxyTwo, *process.Steps[1].ProxyID)

	afterFirst, err := f.approvals.ApproveStep(ctx, process.Steps[0].ID, "looks fine", approverOne)
	require.NoError(t, err)
	assertProcessConsistent(t, afterFirst)
	assert.Equal(t, 2, afterFirst.CurrentStep)
	assert.Equal(t, domain.ApprovalProcessPending, afterFirst.Status)
	assert.Equal(t, domain.ApprovalStepApproved, afterFirst.Steps[0].Status)
	assert.Equal(t, approverOne, *afterFirst.Steps[0].ActedBy)
	assert.Equal(t, "looks fine", *afterFirst.Steps[0].Comment)

	mid, err := f.tickets.GetTicket(ctx, creatorID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusWaitingApproval, mid.Status)

	final, err := f.approvals.ApproveStep(ctx, process.Steps[1].ID, "", proxyTwo)
	require.NoError(t, err)
	assertProcessConsistent(t, final)
	assert.Equal(t, domain.ApprovalProcessApproved, final.Status)
	assert.Nil(t, final.Steps[1].Comment)

	opened, err := f.tickets.GetTicket(ctx, creatorID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, opened.Status)

	assert.Equal(t, []domain.TicketEventType{
		domain.EventApprovalSubmitted,
		domain.EventStatusChange,
		domain.EventApprovalApproved,
		domain.EventApprovalApproved,
	}, f.noteTypes(t, ticket.ID))

	notes, err := f.tickets.ListNotes(ctx, creatorID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hardware purchase", notes[0].EventDetails["template_name"])
	assert.Equal(t, "draft", notes[1].EventDetails["from"])
	assert.Equal(t, "waiting_approval", notes[1].EventDetails["to"])
	assert.Equal(t, 2, notes[3].EventDetails["step"])
	assert.Equal(t, proxyTwo, notes[3].EventDetails["approver_id"])

	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketStatusChanged,
	}, f.recorder.Types())
	last := f.recorder.Events()[2]
	assert.Equal(t, domain.TicketStatusOpen, last.Ticket.Status)
}

func TestRejectStepClosesTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	template := f.twoStepTemplate(t)
	ticket := f.draft(t, CreateTicketInput{ApprovalTemplateID: &template.ID})
	submitted, err := f.tickets.ChangeStatus(ctx, creatorID, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusWaitingApproval})
	require.NoError(t, err)

	process, err := f.approvals.RejectStep(ctx, submitted.ApprovalProcess.Steps[0].ID, "no budget", approverOne)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalProcessRejected, process.Status)
	assert.Equal(t, domain.ApprovalStepRejected, process.Steps[0].Status)
	assert.Equal(t, domain.ApprovalStepRejected, process.Steps[1].Status)
	assert.Nil(t, process.Steps[1].ActedBy)
	assertProcessConsistent(t, process)

	rejected, err := f.tickets.GetTicket(ctx, creatorID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusRejected, rejected.Status)

	types := f.recorder.Types()
	assert.Equal(t, events.EventTicketClosed, types[len(types)-1])

	_, err = f.approvals.ApproveStep(ctx, process.Steps[1].ID, "", approverTwo)
	assertCode(t, err, apperrors.CodeConflict)
	assertProcessConsistent(t, f.process(t, ticket.ID))
}

func TestApproveStepGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	template := f.twoStepTemplate(t)
	ticket := f.draft(t, CreateTicketInput{ApprovalTemplateID: &template.ID})
	submitted, err := f.tickets.ChangeStatus(ctx, creatorID, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusWaitingApproval})
	require.NoError(t, err)
	steps := submitted.ApprovalProcess.Steps

	_, err = f.approvals.ApproveStep(ctx, 4040, "", approverOne)
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = f.approvals.ApproveStep(ctx, steps[0].ID, "", outsiderID)
	assertCode(t, err, apperrors.CodePermissionDenied)

	_, err = f.approvals.ApproveStep(ctx, steps[1].ID, "", approverTwo)
	assertCode(t, err, apperrors.CodeConflict)

	_, err = f.approvals.ApproveStep(ctx, steps[0].ID, "", approverOne)
	require.NoError(t, err)
	assertProcessConsistent(t, f.process(t, ticket.ID))
	notesBefore := len(f.noteTypes(t, ticket.ID))

	_, err = f.approvals.ApproveStep(ctx, steps[0].ID, "again", approverOne)
	assertCode(t, err, apperrors.CodeConflict)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, 400, domainErr.HTTPStatus)
	assert.Len(t, f.noteTypes(t, ticket.ID), notesBefore)
}

func TestCurrentApproverMayRejectThroughStatusChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	template := f.twoStepTemplate(t)
	ticket := f.draft(t, CreateTicketInput{ApprovalTemplateID: &template.ID})
	_, err := f.tickets.ChangeStatus(ctx, creatorID, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusWaitingApproval})
	require.NoError(t, err)

	_, err = f.tickets.ChangeStatus(ctx, approverTwo, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusRejected})
	assertCode(t, err, apperrors.CodePermissionDenied)

	updated, err := f.tickets.ChangeStatus(ctx, approverOne, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusRejected, Reason: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusRejected, updated.Status)

	process := f.process(t, ticket.ID)
	assert.Equal(t, domain.ApprovalProcessRejected, process.Status)
	assert.Equal(t, domain.ApprovalStepRejected, process.Steps[0].Status)
	assert.Equal(t, approverOne, *process.Steps[0].ActedBy)
	assert.Equal(t, "duplicate", *process.Steps[0].Comment)
	assertProcessConsistent(t, process)

	assert.Equal(t, []domain.TicketEventType{
		domain.EventApprovalSubmitted,
		domain.EventStatusChange,
		domain.EventApprovalRejected,
		domain.EventStatusChange,
	}, f.noteTypes(t, ticket.ID))

	_, err = f.approvals.ApproveStep(ctx, process.Steps[1].ID, "", approverTwo)
	assertCode(t, err, apperrors.CodeConflict)
	assertProcessConsistent(t, f.process(t, ticket.ID))
}

func TestApproverStatusChangeCannotSkipSteps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	template := f.twoStepTemplate(t)
	ticket := f.draft(t, CreateTicketInput{ApprovalTemplateID: &template.ID})
	_, err := f.tickets.ChangeStatus(ctx, creatorID, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusWaitingApproval})
	require.NoError(t, err)

	_, err = f.tickets.ChangeStatus(ctx, approverOne, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusOpen})
	assertCode(t, err, apperrors.CodeConflict)

	current, err := f.tickets.GetTicket(ctx, creatorID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusWaitingApproval, current.Status)
	process := f.process(t, ticket.ID)
	assert.Equal(t, 1, process.CurrentStep)
	assertProcessConsistent(t, process)

	_, err = f.approvals.ApproveStep(ctx, process.Steps[0].ID, "", approverOne)
	require.NoError(t, err)
	assertProcessConsistent(t, f.process(t, ticket.ID))

	opened, err := f.tickets.ChangeStatus(ctx, proxyTwo, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusOpen, Reason: "ok"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, opened.Status)

	process = f.process(t, ticket.ID)
	assert.Equal(t, domain.ApprovalProcessApproved, process.Status)
	assert.Equal(t, proxyTwo, *process.Steps[1].ActedBy)
	assertProcessConsistent(t, process)

	_, err = f.approvals.RejectStep(ctx, process.Steps[1].ID, "", approverTwo)
	assertCode(t, err, apperrors.CodeConflict)
}

func TestStepActionsRequireWaitingApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	template := f.twoStepTemplate(t)
	ticket := f.draft(t, CreateTicketInput{ApprovalTemplateID: &template.ID})
	submitted, err := f.tickets.ChangeStatus(ctx, creatorID, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusWaitingApproval})
	require.NoError(t, err)

	repos := f.store.Store()
	stale, err := repos.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	stale.Status = domain.TicketStatusInProgress
	require.NoError(t, repos.Tickets.Update(ctx, stale))
	notesBefore := len(f.noteTypes(t, ticket.ID))

	_, err = f.approvals.RejectStep(ctx, submitted.ApprovalProcess.Steps[0].ID, "", approverOne)
	assertCode(t, err, apperrors.CodeConflict)

	current, err := f.tickets.GetTicket(ctx, creatorID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, current.Status)
	process := f.process(t, ticket.ID)
	assert.Equal(t, domain.ApprovalProcessPending, process.Status)
	assertProcessConsistent(t, process)
	assert.Len(t, f.noteTypes(t, ticket.ID), notesBefore)
}

func TestInvalidTransitionLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.draft(t, CreateTicketInput{})

	_, err := f.tickets.ChangeStatus(ctx, creatorID, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusOpen})
	assertCode(t, err, apperrors.CodeInvalidTransition)

	_, err = f.tickets.ChangeStatus(ctx, creatorID, ticket.ID, ChangeStatusInput{Status: "archived"})
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.tickets.ChangeStatus(ctx, outsiderID, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusCancelled})
	assertCode(t, err, apperrors.CodePermissionDenied)

	_, err = f.tickets.ChangeStatus(ctx, creatorID, 4040, ChangeStatusInput{Status: domain.TicketStatusCancelled})
	assertCode(t, err, apperrors.CodeNotFound)

	current, err := f.tickets.GetTicket(ctx, creatorID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusDraft, current.Status)
	assert.Empty(t, f.noteTypes(t, ticket.ID))
}

func TestLifecycleThroughAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	assignee := int64(7)
	template, err := f.approvals.CreateTemplate(ctx, creatorID, "Single", []TemplateStepInput{{StepOrder: 1, UserID: ptr(approverOne)}})
	require.NoError(t, err)
	ticket := f.draft(t, CreateTicketInput{ApprovalTemplateID: &template.ID, AssignedTo: &assignee})

	submitted, err := f.tickets.ChangeStatus(ctx, creatorID, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusWaitingApproval})
	require.NoError(t, err)
	approved, err := f.approvals.ApproveStep(ctx, submitted.ApprovalProcess.Steps[0].ID, "", approverOne)
	require.NoError(t, err)
	assertProcessConsistent(t, approved)

	_, err = f.tickets.ChangeStatus(ctx, creatorID, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusInProgress})
	assertCode(t, err, apperrors.CodePermissionDenied)

	steps := []struct {
		actor int64
		to    domain.TicketStatus
	}{
		{assignee, domain.TicketStatusInProgress},
		{assignee, domain.TicketStatusResolved},
		{creatorID, domain.TicketStatusInProgress},
		{assignee, domain.TicketStatusResolved},
		{creatorID, domain.TicketStatusClosed},
	}
	for _, step := range steps {
		updated, err := f.tickets.ChangeStatus(ctx, step.actor, ticket.ID, ChangeStatusInput{Status: step.to})
		require.NoError(t, err, "to %s", step.to)
		assert.Equal(t, step.to, updated.Status)
	}

	types := f.recorder.Types()
	assert.Equal(t, events.EventTicketClosed, types[len(types)-1])

	_, err = f.tickets.ChangeStatus(ctx, creatorID, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusInProgress})
	assertCode(t, err, apperrors.CodeInvalidTransition)
}

func TestRoleStepIsUnimplementedAndRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	template, err := f.approvals.CreateTemplate(ctx, creatorID, "Managers", []TemplateStepInput{
		{StepOrder: 1, UserID: ptr(approverOne)},
		{StepOrder: 2, RoleID: ptr(int64(3))},
	})
	require.NoError(t, err)
	ticket := f.draft(t, CreateTicketInput{ApprovalTemplateID: &template.ID})

	_, err = f.tickets.ChangeStatus(ctx, creatorID, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusWaitingApproval})
	assertCode(t, err, apperrors.CodeUnimplemented)

	current, err := f.tickets.GetTicket(ctx, creatorID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusDraft, current.Status)
	assert.Nil(t, current.ApprovalProcess)
	assert.Empty(t, f.noteTypes(t, ticket.ID))
}

func TestMissingTemplateRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.draft(t, CreateTicketInput{ApprovalTemplateID: ptr(int64(4040))})

	_, err := f.tickets.ChangeStatus(ctx, creatorID, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusWaitingApproval})
	assertCode(t, err, apperrors.CodeNotFound)

	noTemplate := f.draft(t, CreateTicketInput{})
	_, err = f.tickets.ChangeStatus(ctx, creatorID, noTemplate.ID, ChangeStatusInput{Status: domain.TicketStatusWaitingApproval})
	assertCode(t, err, apperrors.CodeNotFound)

	current, err := f.tickets.GetTicket(ctx, creatorID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusDraft, current.Status)
	assert.Empty(t, f.noteTypes(t, ticket.ID))
	assert.Equal(t, []events.EventType{events.EventTicketCreated, events.EventTicketCreated}, f.recorder.Types())
}

func TestRestrictedTicketVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	template := f.twoStepTemplate(t)
	ticket := f.draft(t, CreateTicketInput{Visibility: domain.TicketVisibilityRestricted, ApprovalTemplateID: &template.ID})

	_, err := f.tickets.GetTicket(ctx, outsiderID, ticket.ID)
	assertCode(t, err, apperrors.CodePermissionDenied)
	_, err = f.tickets.GetTicketByNumber(ctx, outsiderID, ticket.TicketNo)
	assertCode(t, err, apperrors.CodePermissionDenied)
	_, err = f.tickets.ListNotes(ctx, outsiderID, ticket.ID)
	assertCode(t, err, apperrors.CodePermissionDenied)
	_, err = f.tickets.AddComment(ctx, outsiderID, ticket.ID, "hello?")
	assertCode(t, err, apperrors.CodePermissionDenied)
	_, err = f.tickets.ChangeStatus(ctx, outsiderID, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusOpen})
	assertCode(t, err, apperrors.CodePermissionDenied)

	_, err = f.tickets.GetTicket(ctx, approverTwo, ticket.ID)
	assertCode(t, err, apperrors.CodePermissionDenied)
	_, err = f.tickets.ChangeStatus(ctx, creatorID, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusWaitingApproval})
	require.NoError(t, err)
	_, err = f.tickets.GetTicket(ctx, proxyTwo, ticket.ID)
	require.NoError(t, err)

	_, err = f.tickets.GrantViewer(ctx, outsiderID, ticket.ID, outsiderID)
	assertCode(t, err, apperrors.CodePermissionDenied)
	_, err = f.tickets.GrantViewer(ctx, creatorID, ticket.ID, outsiderID)
	require.NoError(t, err)
	got, err := f.tickets.GetTicket(ctx, outsiderID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)

	viewers, err := f.tickets.ListViewers(ctx, creatorID, ticket.ID)
	require.NoError(t, err)
	require.Len(t, viewers, 1)
	assert.Equal(t, outsiderID, viewers[0].UserID)
}

func TestUpdateTicketRecordsFieldNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	network, err := f.catalog.CreateLabel(ctx, creatorID, LabelInput{Name: "network", Color: "#ff0000"})
	require.NoError(t, err)
	hardware, err := f.catalog.CreateLabel(ctx, creatorID, LabelInput{Name: "hardware", Color: "#00FF00"})
	require.NoError(t, err)
	ticket := f.draft(t, CreateTicketInput{LabelIDs: []int64{network.ID}})
	require.Len(t, ticket.Labels, 1)

	updated, err := f.tickets.UpdateTicket(ctx, creatorID, ticket.ID, TicketPatch{
		Title:    Some("Laptop replacement"),
		Priority: Some(domain.TicketPriorityHigh),
		LabelIDs: Some([]int64{hardware.ID}),
	})
	require.NoError(t, err)
	assert.Equal(t, "Laptop replacement", updated.Title)
	assert.Equal(t, domain.TicketPriorityHigh, updated.Priority)
	assert.Equal(t, []int64{hardware.ID}, updated.LabelIDs())

	assert.Equal(t, []domain.TicketEventType{
		domain.EventTitleChange,
		domain.EventPriorityChange,
		domain.EventLabelAdd,
		domain.EventLabelRemove,
	}, f.noteTypes(t, ticket.ID))

	notes, err := f.tickets.ListNotes(ctx, creatorID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"from": "New laptop", "to": "Laptop replacement"}, notes[0].EventDetails)
	assert.Equal(t, "hardware", notes[2].EventDetails["label_name"])
	assert.Equal(t, network.ID, notes[3].EventDetails["label_id"])
}

func TestUpdateTicketNoopWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.draft(t, CreateTicketInput{Title: "Same"})

	_, err := f.tickets.UpdateTicket(ctx, creatorID, ticket.ID, TicketPatch{
		Title:       Some("Same"),
		Description: Null[string](),
		Priority:    Some(domain.TicketPriorityMedium),
		LabelIDs:    Some([]int64{}),
	})
	require.NoError(t, err)
	assert.Empty(t, f.noteTypes(t, ticket.ID))
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, f.recorder.Types())
}

func TestUpdateTicketAssigneeNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.draft(t, CreateTicketInput{})

	_, err := f.tickets.UpdateTicket(ctx, outsiderID, ticket.ID, TicketPatch{AssignedTo: Some(int64(7))})
	assertCode(t, err, apperrors.CodePermissionDenied)

	updated, err := f.tickets.UpdateTicket(ctx, creatorID, ticket.ID, TicketPatch{AssignedTo: Some(int64(7))})
	require.NoError(t, err)
	assert.Equal(t, int64(7), *updated.AssignedTo)
	assert.Equal(t, []domain.TicketEventType{domain.EventAssignedToChange}, f.noteTypes(t, ticket.ID))

	recorded := f.recorder.Events()
	require.Len(t, recorded, 2)
	assert.Equal(t, events.EventTicketStatusChanged, recorded[1].Type)
	payload, ok := recorded[1].Payload.(events.AssigneeChangedPayload)
	require.True(t, ok)
	assert.Nil(t, payload.From)
	assert.Equal(t, int64(7), *payload.To)

	_, err = f.tickets.UpdateTicket(ctx, creatorID, ticket.ID, TicketPatch{Title: Null[string]()})
	assertCode(t, err, apperrors.CodeValidation)
}

func TestUpdateRefusedOnClosedTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.draft(t, CreateTicketInput{})
	_, err := f.tickets.ChangeStatus(ctx, creatorID, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusCancelled})
	require.NoError(t, err)

	_, err = f.tickets.UpdateTicket(ctx, creatorID, ticket.ID, TicketPatch{Title: Some("late edit")})
	assertCode(t, err, apperrors.CodeInvalidTransition)
}

func TestDeleteTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	template := f.twoStepTemplate(t)
	pending := f.draft(t, CreateTicketInput{ApprovalTemplateID: &template.ID})
	_, err := f.tickets.ChangeStatus(ctx, creatorID, pending.ID, ChangeStatusInput{Status: domain.TicketStatusWaitingApproval})
	require.NoError(t, err)

	err = f.tickets.DeleteTicket(ctx, creatorID, pending.ID)
	assertCode(t, err, apperrors.CodeInvalidTransition)

	draft := f.draft(t, CreateTicketInput{})
	assertCode(t, f.tickets.DeleteTicket(ctx, outsiderID, draft.ID), apperrors.CodePermissionDenied)
	require.NoError(t, f.tickets.DeleteTicket(ctx, creatorID, draft.ID))

	_, err = f.tickets.GetTicket(ctx, creatorID, draft.ID)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestCommentsAndAttachments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.draft(t, CreateTicketInput{})

	_, err := f.tickets.AddComment(ctx, creatorID, ticket.ID, "   ")
	assertCode(t, err, apperrors.CodeValidation)

	note, err := f.tickets.AddComment(ctx, outsiderID, ticket.ID, "Seeing this too")
	require.NoError(t, err)
	assert.False(t, note.System)
	assert.Equal(t, "Seeing this too", *note.Note)
	types := f.recorder.Types()
	assert.Equal(t, events.EventTicketCommented, types[len(types)-1])

	_, err = f.tickets.AddAttachment(ctx, outsiderID, ticket.ID, AttachmentInput{StorageKey: "k", FileName: "log.txt"})
	assertCode(t, err, apperrors.CodePermissionDenied)

	attachment, err := f.tickets.AddAttachment(ctx, creatorID, ticket.ID, AttachmentInput{
		StorageKey: "tickets/1/log.txt", FileName: "log.txt", MimeType: "text/plain", SizeBytes: 12,
	})
	require.NoError(t, err)
	require.NotNil(t, attachment.NoteID)

	notes, err := f.tickets.ListNotes(ctx, creatorID, ticket.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, domain.EventAttachmentAdd, *notes[1].EventType)
	require.Len(t, notes[1].Attachments, 1)
	assert.Equal(t, attachment.ID, notes[1].Attachments[0].ID)

	require.NoError(t, f.tickets.RemoveAttachment(ctx, creatorID, ticket.ID, attachment.ID))
	assertCode(t, f.tickets.RemoveAttachment(ctx, creatorID, ticket.ID, attachment.ID), apperrors.CodeNotFound)

	live, err := f.tickets.ListAttachments(ctx, creatorID, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, live)
	assert.Equal(t, domain.EventAttachmentRemove, f.noteTypes(t, ticket.ID)[2])
}

func TestSearchAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.draft(t, CreateTicketInput{Title: "VPN down", Priority: domain.TicketPriorityUrgent})
	f.draft(t, CreateTicketInput{Title: "VPN slow"})
	f.draft(t, CreateTicketInput{Title: "Secret", Visibility: domain.TicketVisibilityRestricted})

	items, total, err := f.tickets.SearchTickets(ctx, outsiderID, repository.TicketFilter{Title: ptr("vpn")})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)

	_, _, err = f.tickets.SearchTickets(ctx, outsiderID, repository.TicketFilter{Statuses: []domain.TicketStatus{"bogus"}})
	assertCode(t, err, apperrors.CodeValidation)

	stats, err := f.tickets.Stats(ctx, outsiderID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[domain.TicketStatusDraft])
	assert.Equal(t, 1, stats.ByPriority[domain.TicketPriorityUrgent])

	stats, err = f.tickets.Stats(ctx, creatorID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
}

func TestTemplateManagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.approvals.CreateTemplate(ctx, creatorID, "Bad", []TemplateStepInput{{StepOrder: 1}})
	assertCode(t, err, apperrors.CodeValidation)
	_, err = f.approvals.CreateTemplate(ctx, creatorID, "Bad", []TemplateStepInput{
		{StepOrder: 1, UserID: ptr(approverOne)},
		{StepOrder: 1, UserID: ptr(approverTwo)},
	})
	assertCode(t, err, apperrors.CodeValidation)
	_, err = f.approvals.CreateTemplate(ctx, creatorID, "", []TemplateStepInput{{StepOrder: 1, UserID: ptr(approverOne)}})
	assertCode(t, err, apperrors.CodeValidation)

	template, err := f.approvals.CreateTemplate(ctx, creatorID, "Out of order", []TemplateStepInput{
		{StepOrder: 5, UserID: ptr(approverTwo)},
		{StepOrder: 2, UserID: ptr(approverOne)},
	})
	require.NoError(t, err)
	require.Len(t, template.Steps, 2)
	assert.Equal(t, approverOne, *template.Steps[0].UserID)

	list, err := f.approvals.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assertCode(t, f.approvals.DeleteTemplate(ctx, outsiderID, template.ID), apperrors.CodePermissionDenied)
	require.NoError(t, f.approvals.DeleteTemplate(ctx, creatorID, template.ID))
	_, err = f.approvals.GetTemplate(ctx, template.ID)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestCatalogNamesAreUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.catalog.CreateLabel(ctx, creatorID, LabelInput{Name: "db", Color: "red"})
	assertCode(t, err, apperrors.CodeValidation)

	label, err := f.catalog.CreateLabel(ctx, creatorID, LabelInput{Name: "db", Color: "#abcdef"})
	require.NoError(t, err)
	assert.Equal(t, "#ABCDEF", label.Color)
	_, err = f.catalog.CreateLabel(ctx, creatorID, LabelInput{Name: "db", Color: "#000000"})
	assertCode(t, err, apperrors.CodeConflict)

	category, err := f.catalog.CreateCategory(ctx, creatorID, CategoryInput{Name: "Hardware"})
	require.NoError(t, err)
	_, err = f.catalog.CreateCategory(ctx, creatorID, CategoryInput{Name: "Hardware"})
	assertCode(t, err, apperrors.CodeConflict)

	renamed, err := f.catalog.UpdateCategory(ctx, category.ID, CategoryInput{Name: "Devices", Description: ptr("laptops")})
	require.NoError(t, err)
	assert.Equal(t, "Devices", renamed.Name)

	require.NoError(t, f.catalog.DeleteLabel(ctx, label.ID))
	_, err = f.catalog.GetLabel(ctx, label.ID)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestStringPreview(t *testing.T) {
	assert.Equal(t, "short", stringPreview("  short ", 10))
	assert.Equal(t, "abcd...", stringPreview("abcdefghij", 7))
	assert.Equal(t, "ab", stringPreview("abcdef", 2))
}
