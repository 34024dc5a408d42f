package domain

import "time"

// ApprovalProcessStatus is the aggregate state of a ticket's approval.
type ApprovalProcessStatus string

const (
	ApprovalProcessPending  ApprovalProcessStatus = "pending"
	ApprovalProcessApproved ApprovalProcessStatus = "approved"
	ApprovalProcessRejected ApprovalProcessStatus = "rejected"
)

// ApprovalStepStatus is the state of a single approval step.
type ApprovalStepStatus string

const (
	ApprovalStepPending  ApprovalStepStatus = "pending"
	ApprovalStepApproved ApprovalStepStatus = "approved"
	ApprovalStepRejected ApprovalStepStatus = "rejected"
)

// ApprovalTemplate is a reusable ordered list of approval steps.
type ApprovalTemplate struct {
	ID        int64
	Name      string
	CreatedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
	Steps     []ApprovalTemplateStep
}

// ApprovalTemplateStep names the candidate approver for one stage.
// Exactly one of UserID or RoleID is expected to be set.
type ApprovalTemplateStep struct {
	ID                 int64
	ApprovalTemplateID int64
	StepOrder          int
	UserID             *int64
	RoleID             *int64
	ProxyUserID        *int64
}

// ApprovalProcess tracks live approval state for a single ticket.
type ApprovalProcess struct {
	ID                 int64
	TicketID           int64
	ApprovalTemplateID *int64
	Status             ApprovalProcessStatus
	CurrentStep        int
	CreatedBy          int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Steps              []ApprovalProcessStep
}

// ApprovalProcessStep is one stage of a live process.
type ApprovalProcessStep struct {
	ID                int64
	ApprovalProcessID int64
	StepOrder         int
	ApproverID        int64
	ProxyID           *int64
	Status            ApprovalStepStatus
	ActedBy           *int64
	ActionAt          *time.Time
	Comment           *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CanAct reports whether the user is the designated approver or its proxy.
func (s *ApprovalProcessStep) CanAct(userID int64) bool {
	if s.ApproverID == userID {
		return true
	}
	return s.ProxyID != nil && *s.ProxyID == userID
}

// CurrentStepEntry returns the step whose order equals CurrentStep.
func (p *ApprovalProcess) CurrentStepEntry() *ApprovalProcessStep {
	for i := range p.Steps {
		if p.Steps[i].StepOrder == p.CurrentStep {
			return &p.Steps[i]
		}
	}
	return nil
}

// Step returns the step with the given id, or nil.
func (p *ApprovalProcess) Step(id int64) *ApprovalProcessStep {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i]
		}
	}
	return nil
}

// InvolvesUser reports whether the user is an approver or proxy on any step.
func (p *ApprovalProcess) InvolvesUser(userID int64) bool {
	for i := range p.Steps {
		if p.Steps[i].CanAct(userID) {
			return true
		}
	}
	return false
}

// IsLastStep reports whether order is the final step of the process.
func (p *ApprovalProcess) IsLastStep(order int) bool {
	return order == len(p.Steps)
}
