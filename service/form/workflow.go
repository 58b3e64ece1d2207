package form

import (
	"context"
	"fmt"

	"github.com/skillstorm/reimbursement/model"
	"github.com/skillstorm/reimbursement/tracing"
)

// stage identifies the next unmet approval stage for a submission.
type stage int

const (
	stageSupervisor stage = iota
	stageDepartmentHead
	stageBenco
)

// startingStage flattens the pre-approval skip rules into a single check: a
// stage whose pre-approval attachment is already on the form is skipped.
func startingStage(form *model.Form) stage {
	if form.SupervisorAttachment == "" {
		return stageSupervisor
	}
	if form.DepartmentHeadAttachment == "" {
		return stageDepartmentHead
	}
	return stageBenco
}

// Submit pushes a created form into the approval chain. A supervisor
// pre-approval attachment suppresses the supervisor lookup entirely; when the
// requester's resolved supervisor already holds the department-head role the
// supervisor stage collapses into the department-head stage.
func (s *Service) Submit(ctx context.Context, id string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "form.submit", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"form.id": id})

	unlock := s.locks.Lock(id)
	defer unlock()

	form, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if form.Status != model.StatusCreated {
		return fmt.Errorf("%w: submit from %s", ErrInvalidTransition, form.Status)
	}
	switch startingStage(form) {
	case stageBenco:
		return s.advanceToBenco(ctx, form, "")
	case stageDepartmentHead:
		return s.advanceToDepartmentHead(ctx, form, "")
	}

	supervisor, err := s.resolver.ResolveApprover(ctx, form.Username, model.RoleSupervisor)
	if err != nil {
		return err
	}
	if supervisor.Role == model.RoleDepartmentHead {
		// The requester reports straight to a department head; the supervisor
		// stage has no distinct approver. The department-head stage applies
		// its own skip rule in turn.
		if form.DepartmentHeadAttachment != "" {
			return s.advanceToBenco(ctx, form, "")
		}
		return s.advanceToDepartmentHead(ctx, form, "")
	}
	if err = s.notices.Send(ctx, form.ID, supervisor.Username); err != nil {
		return err
	}
	form.Status = model.StatusAwaitingSupervisor
	return s.forms.Save(ctx, form)
}

// SupervisorApprove records the supervisor's approval and advances to the
// department-head stage, or straight to benco when a department-head
// pre-approval attachment exists. acting is the approver whose inbox notice
// is withdrawn. Escalation re-resolves an addressed approver to the role it
// actually holds, so the form may already sit one stage ahead; only statuses
// the transition would move backward from are rejected.
func (s *Service) SupervisorApprove(ctx context.Context, id, acting string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "form.supervisorApprove", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"form.id": id})

	unlock := s.locks.Lock(id)
	defer unlock()

	form, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	switch form.Status {
	case model.StatusAwaitingSupervisor, model.StatusAwaitingDepartmentHead:
	default:
		return fmt.Errorf("%w: supervisor approve from %s", ErrInvalidTransition, form.Status)
	}
	if form.DepartmentHeadAttachment != "" {
		return s.advanceToBenco(ctx, form, acting)
	}
	return s.advanceToDepartmentHead(ctx, form, acting)
}

// DepartmentHeadApprove records the department head's approval and hands the
// form to the benco. An escalated notice may land here while the form still
// awaits the supervisor stage; hopping that stage stays forward along the
// chain, so the guard admits it.
func (s *Service) DepartmentHeadApprove(ctx context.Context, id, acting string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "form.departmentHeadApprove", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"form.id": id})

	unlock := s.locks.Lock(id)
	defer unlock()

	form, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	switch form.Status {
	case model.StatusAwaitingSupervisor, model.StatusAwaitingDepartmentHead:
	default:
		return fmt.Errorf("%w: department head approve from %s", ErrInvalidTransition, form.Status)
	}
	return s.advanceToBenco(ctx, form, acting)
}

// BencoApprove reconciles the reimbursement against the requester's yearly
// allowance and parks the form as PENDING. When the allowance covers less
// than the nominal amount the shortfall is recorded on the excess-funds flag.
func (s *Service) BencoApprove(ctx context.Context, id string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "form.bencoApprove", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"form.id": id})

	unlock := s.locks.Lock(id)
	defer unlock()

	form, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if form.Status != model.StatusAwaitingBenco {
		return fmt.Errorf("%w: benco approve from %s", ErrInvalidTransition, form.Status)
	}
	if err = s.notices.Send(ctx, form.ID, form.Username); err != nil {
		return err
	}
	nominal := form.NominalReimbursement()
	adjusted, err := s.allowance.Adjust(ctx, form.Username, nominal)
	if err != nil {
		return err
	}
	form.Reimbursement = adjusted
	form.ExcessFundsApproved = adjusted < nominal
	form.Status = model.StatusPending
	return s.forms.Save(ctx, form)
}

// AwardReimbursement pays out a pending form. Any other status is rejected.
func (s *Service) AwardReimbursement(ctx context.Context, id string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "form.award", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"form.id": id})

	unlock := s.locks.Lock(id)
	defer unlock()

	form, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if form.Status != model.StatusPending {
		return fmt.Errorf("%w: award from %s", ErrInvalidTransition, form.Status)
	}
	if err = s.notices.Send(ctx, form.ID, form.Username); err != nil {
		return err
	}
	form.Status = model.StatusApproved
	return s.forms.Save(ctx, form)
}

// Deny rejects a form at any awaiting stage, recording the reason and
// notifying the requester.
func (s *Service) Deny(ctx context.Context, id, reason string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "form.deny", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"form.id": id})

	unlock := s.locks.Lock(id)
	defer unlock()

	form, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !form.Status.IsAwaiting() {
		return fmt.Errorf("%w: deny from %s", ErrInvalidTransition, form.Status)
	}
	if err = s.notices.Send(ctx, form.ID, form.Username); err != nil {
		return err
	}
	form.Status = model.StatusDenied
	form.ReasonDenied = reason
	return s.forms.Save(ctx, form)
}

// Cancel withdraws a form from the workflow. Approved forms cannot be
// cancelled; a pending form refunds its reserved amount before removal.
func (s *Service) Cancel(ctx context.Context, id string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "form.cancel", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"form.id": id})

	unlock := s.locks.Lock(id)
	defer unlock()

	form, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	switch form.Status {
	case model.StatusApproved:
		return fmt.Errorf("%w: form %s", ErrAlreadyAwarded, id)
	case model.StatusPending:
		if err = s.allowance.Refund(ctx, form.Username, form.Reimbursement); err != nil {
			return err
		}
	}
	return s.forms.Delete(ctx, id)
}

// advanceToDepartmentHead resolves the department head, notifies them, and
// withdraws acting's now-stale inbox notice. The notice goes out before the
// status is persisted so a failed delivery leaves the form where it was.
func (s *Service) advanceToDepartmentHead(ctx context.Context, form *model.Form, acting string) error {
	head, err := s.resolver.ResolveApprover(ctx, form.Username, model.RoleDepartmentHead)
	if err != nil {
		return err
	}
	if err = s.notices.Send(ctx, form.ID, head.Username); err != nil {
		return err
	}
	s.withdraw(ctx, form.ID, acting)
	form.Status = model.StatusAwaitingDepartmentHead
	return s.forms.Save(ctx, form)
}

// advanceToBenco resolves the benco, notifies them, and withdraws acting's
// inbox notice.
func (s *Service) advanceToBenco(ctx context.Context, form *model.Form, acting string) error {
	benco, err := s.resolver.ResolveApprover(ctx, form.Username, model.RoleBenco)
	if err != nil {
		return err
	}
	if err = s.notices.Send(ctx, form.ID, benco.Username); err != nil {
		return err
	}
	s.withdraw(ctx, form.ID, acting)
	form.Status = model.StatusAwaitingBenco
	return s.forms.Save(ctx, form)
}

// withdraw clears acting's inbox notice. Withdrawal is compensating cleanup:
// a failure is logged, never allowed to stall the transition.
func (s *Service) withdraw(ctx context.Context, formID, acting string) {
	if acting == "" {
		return
	}
	if err := s.notices.Withdraw(ctx, formID, acting); err != nil {
		s.logger.WithError(err).WithField("formId", formID).Warn("failed to withdraw inbox notice")
	}
}
