package model

// Status represents a form's position in the approval chain.
type Status string

const (
	StatusCreated                Status = "CREATED"
	StatusAwaitingSupervisor     Status = "AWAITING_SUPERVISOR_APPROVAL"
	StatusAwaitingDepartmentHead Status = "AWAITING_DEPARTMENT_HEAD_APPROVAL"
	StatusAwaitingBenco          Status = "AWAITING_BENCO_APPROVAL"
	StatusPending                Status = "PENDING"
	StatusApproved               Status = "APPROVED"
	StatusDenied                 Status = "DENIED"
)

// Statuses returns all statuses, for pick-lists and filters.
func Statuses() []Status {
	return []Status{
		StatusCreated,
		StatusAwaitingSupervisor,
		StatusAwaitingDepartmentHead,
		StatusAwaitingBenco,
		StatusPending,
		StatusApproved,
		StatusDenied,
	}
}

// IsAwaiting reports whether the status is one of the awaiting-approval
// stages that a denial may act on.
func (s Status) IsAwaiting() bool {
	switch s {
	case StatusAwaitingSupervisor, StatusAwaitingDepartmentHead, StatusAwaitingBenco:
		return true
	}
	return false
}
