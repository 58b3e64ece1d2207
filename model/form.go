package model

import (
	"time"
)

// Form is the aggregate a reimbursement request moves through the approval
// chain as. The engine owns it for the duration of a transition; between
// transitions the form store owns its durable copy.
type Form struct {
	ID       string `json:"id"`
	Username string `json:"username"`

	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`

	EventDate time.Time `json:"eventDate"`
	EventTime string    `json:"eventTime"`
	Urgent    bool      `json:"urgent"`

	Location      string `json:"location"`
	Description   string `json:"description"`
	Justification string `json:"justification"`
	HoursMissed   int    `json:"hoursMissed"`

	Cost         float64     `json:"cost"`
	EventType    EventType   `json:"eventType"`
	GradeFormat  GradeFormat `json:"gradeFormat"`
	PassingGrade string      `json:"passingGrade"`

	Attachment               string `json:"attachment,omitempty"`
	SupervisorAttachment     string `json:"supervisorAttachment,omitempty"`
	DepartmentHeadAttachment string `json:"departmentHeadAttachment,omitempty"`
	CompletionAttachment     string `json:"completionAttachment,omitempty"`

	Status              Status  `json:"status"`
	ReasonDenied        string  `json:"reasonDenied,omitempty"`
	ExcessFundsApproved bool    `json:"excessFundsApproved"`
	Reimbursement       float64 `json:"reimbursement"`
}

// NominalReimbursement returns the amount the form is currently worth. Until
// the benco adjusts it against the requester's allowance this is cost scaled
// by the event-type rate.
func (f *Form) NominalReimbursement() float64 {
	if f.Reimbursement > 0 {
		return f.Reimbursement
	}
	return RoundMoney(f.Cost * f.EventType.Rate())
}

// HasSufficientNotice reports whether the event starts at least seven days
// after now. Forms that fail this check are rejected at creation.
func (f *Form) HasSufficientNotice(now time.Time) bool {
	return !f.EventDate.Before(now.AddDate(0, 0, 7))
}

// IsUrgent reports whether the event starts within two weeks of now.
func (f *Form) IsUrgent(now time.Time) bool {
	return f.EventDate.Before(now.AddDate(0, 0, 14))
}

// AttachmentKey returns the stored object key for the given slot.
func (f *Form) AttachmentKey(slot AttachmentType) string {
	switch slot {
	case AttachmentEvent:
		return f.Attachment
	case AttachmentSupervisorApproval:
		return f.SupervisorAttachment
	case AttachmentDepartmentHeadApproval:
		return f.DepartmentHeadAttachment
	case AttachmentProofOfCompletion:
		return f.CompletionAttachment
	}
	return ""
}

// SetAttachmentKey records an uploaded object key on the matching slot.
func (f *Form) SetAttachmentKey(slot AttachmentType, key string) {
	switch slot {
	case AttachmentEvent:
		f.Attachment = key
	case AttachmentSupervisorApproval:
		f.SupervisorAttachment = key
	case AttachmentDepartmentHeadApproval:
		f.DepartmentHeadAttachment = key
	case AttachmentProofOfCompletion:
		f.CompletionAttachment = key
	}
}
