package model

// ApprovalNotice is the transient wire value sent to an approver's inbox
// queue and, with the same shape, to the deletion queue when a stage is
// passed and the previous notice is withdrawn.
type ApprovalNotice struct {
	FormID   string `json:"formId"`
	Username string `json:"username"`
}

// CancellationNotice asks the user service to restore a reserved amount to
// the requester's yearly allowance when a pending form is cancelled.
type CancellationNotice struct {
	Username string  `json:"username"`
	Amount   float64 `json:"amount"`
}
