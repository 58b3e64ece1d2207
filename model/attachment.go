package model

// AttachmentType names the attachment slots a form carries. The two
// pre-approval slots double as skip-ahead evidence in the workflow.
type AttachmentType string

const (
	AttachmentEvent                  AttachmentType = "EVENT"
	AttachmentSupervisorApproval     AttachmentType = "SUPERVISOR_APPROVAL"
	AttachmentDepartmentHeadApproval AttachmentType = "DEPARTMENT_HEAD_APPROVAL"
	AttachmentProofOfCompletion      AttachmentType = "PROOF_OF_COMPLETION"
)

// AttachmentTypes returns all attachment slots.
func AttachmentTypes() []AttachmentType {
	return []AttachmentType{
		AttachmentEvent,
		AttachmentSupervisorApproval,
		AttachmentDepartmentHeadApproval,
		AttachmentProofOfCompletion,
	}
}
