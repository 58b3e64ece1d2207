// Package inbox publishes fire-and-forget approval notices to per-user inbox
// queues and withdrawal notices that clear them once a stage is passed.
package inbox

import (
	"context"
	"strings"

	"github.com/skillstorm/reimbursement/model"
	"github.com/skillstorm/reimbursement/service/messaging"
)

const (
	ApprovalRequestQueue   = "approval-request-queue"
	DeletionRequestQueue   = "deletion-request-queue"
	AutomaticApprovalQueue = "automatic-approval-queue"
)

// Publisher sends approval-request and approval-withdrawal notices.
// Usernames are lower-cased before use as a routing target so inbox
// addressing is case-insensitive.
type Publisher struct {
	approvals messaging.Queue[model.ApprovalNotice]
	deletions messaging.Queue[model.ApprovalNotice]
}

// New creates a publisher over the inbox and deletion queues.
func New(approvals, deletions messaging.Queue[model.ApprovalNotice]) *Publisher {
	return &Publisher{approvals: approvals, deletions: deletions}
}

// Send delivers an approval notice to username's inbox.
func (p *Publisher) Send(ctx context.Context, formID, username string) error {
	notice := model.ApprovalNotice{FormID: formID, Username: strings.ToLower(username)}
	return p.approvals.Publish(ctx, &notice)
}

// Withdraw removes a previously sent notice from username's inbox.
func (p *Publisher) Withdraw(ctx context.Context, formID, username string) error {
	notice := model.ApprovalNotice{FormID: formID, Username: strings.ToLower(username)}
	return p.deletions.Publish(ctx, &notice)
}
