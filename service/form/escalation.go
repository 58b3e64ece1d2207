package form

import (
	"context"
	"errors"

	"github.com/skillstorm/reimbursement/model"
	"github.com/skillstorm/reimbursement/service/messaging"
)

// RunEscalation consumes the automatic-approval queue until ctx is
// cancelled. Each notice names a form and the username its approval request
// was addressed to; the username is re-resolved against the directory and the
// notice re-enters the chain at whatever stage that user's actual role
// admits. Benco is the terminal escalation point.
func (s *Service) RunEscalation(ctx context.Context, queue messaging.Queue[model.ApprovalNotice]) {
	go func() {
		for {
			message, err := queue.Consume(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				s.logger.WithError(err).Warn("failed to consume escalation notice")
				continue
			}
			if message == nil {
				continue
			}
			notice := message.T()
			if err = s.escalate(ctx, *notice); err != nil {
				s.logger.WithError(err).WithField("formId", notice.FormID).Warn("escalation failed")
				if err = message.Nack(err); err != nil {
					s.logger.WithError(err).Warn("failed to nack escalation notice")
				}
				continue
			}
			if err = message.Ack(); err != nil {
				s.logger.WithError(err).Warn("failed to ack escalation notice")
			}
		}
	}()
}

func (s *Service) escalate(ctx context.Context, notice model.ApprovalNotice) error {
	holder, err := s.resolver.ResolveApprover(ctx, notice.Username, model.RoleUser)
	if err != nil {
		return err
	}
	switch holder.Role {
	case model.RoleBenco:
		// End of the chain; hand off to a human instead of forwarding again.
		return s.notifyBencoEscalation(ctx, notice, holder)
	case model.RoleDepartmentHead:
		return s.DepartmentHeadApprove(ctx, notice.FormID, holder.Username)
	default:
		return s.SupervisorApprove(ctx, notice.FormID, holder.Username)
	}
}

// notifyBencoEscalation is the terminal escalation hook.
// TODO(benco-escalation): send the overdue-approval email once the mail
// relay settings land in config.
func (s *Service) notifyBencoEscalation(ctx context.Context, notice model.ApprovalNotice, holder model.Approver) error {
	_ = ctx
	s.logger.WithField("formId", notice.FormID).
		WithField("benco", holder.Username).
		Info("approval escalated to benco")
	return nil
}
