// Package form implements the reimbursement approval workflow: form CRUD,
// the approval-chain state machine, attachment handling and automatic
// escalation. All collaborators (directory, allowance, inbox, object storage)
// are consumed through narrow local interfaces so tests can swap them out.
package form

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/skillstorm/reimbursement/internal/clock"
	"github.com/skillstorm/reimbursement/internal/idgen"
	"github.com/skillstorm/reimbursement/internal/keylock"
	"github.com/skillstorm/reimbursement/model"
	"github.com/skillstorm/reimbursement/service/attachment"
	"github.com/skillstorm/reimbursement/service/dao"
	formdao "github.com/skillstorm/reimbursement/service/dao/form"
)

var (
	// ErrInsufficientNotice rejects forms whose event starts less than seven
	// days after submission.
	ErrInsufficientNotice = errors.New("form: event date allows insufficient notice")

	// ErrAlreadyAwarded rejects cancellation of an approved form.
	ErrAlreadyAwarded = errors.New("form: reimbursement already awarded")

	// ErrInvalidTransition rejects a workflow action the form's current status
	// does not admit.
	ErrInvalidTransition = errors.New("form: invalid status transition")
)

// Resolver answers "who approves next" for a username and role.
type Resolver interface {
	ResolveApprover(ctx context.Context, username string, role model.Role) (model.Approver, error)
}

// Allowance reconciles reimbursement amounts against yearly allowances.
type Allowance interface {
	Adjust(ctx context.Context, username string, amount float64) (float64, error)
	Refund(ctx context.Context, username string, amount float64) error
}

// Notifier delivers and withdraws inbox notices.
type Notifier interface {
	Send(ctx context.Context, formID, username string) error
	Withdraw(ctx context.Context, formID, username string) error
}

// Service drives reimbursement forms through the approval chain. Every
// operation on a given form id is funnelled through a per-id mutex so that
// last-write-wins persistence cannot lose a concurrent update.
type Service struct {
	forms       formdao.DAO
	resolver    Resolver
	allowance   Allowance
	notices     Notifier
	attachments attachment.Store
	locks       *keylock.KeyLock
	logger      *logrus.Entry
}

// New creates the workflow service over its collaborators.
func New(forms formdao.DAO, resolver Resolver, allowance Allowance, notices Notifier, attachments attachment.Store) *Service {
	return &Service{
		forms:       forms,
		resolver:    resolver,
		allowance:   allowance,
		notices:     notices,
		attachments: attachments,
		locks:       keylock.New(),
		logger:      logrus.WithField("component", "workflow"),
	}
}

// Create validates and persists a new form. The event must start at least
// seven days out; otherwise nothing is persisted. The form receives an id,
// status CREATED, the urgency flag and the rate-scaled reimbursement.
func (s *Service) Create(ctx context.Context, form *model.Form) (*model.Form, error) {
	if form == nil {
		return nil, dao.ErrNilEntity
	}
	now := clock.Now()
	if !form.HasSufficientNotice(now) {
		return nil, fmt.Errorf("%w: event on %s", ErrInsufficientNotice, form.EventDate.Format("2006-01-02"))
	}
	form.ID = idgen.New()
	form.Username = strings.ToLower(form.Username)
	form.Status = model.StatusCreated
	form.Urgent = form.IsUrgent(now)
	form.Reimbursement = model.RoundMoney(form.Cost * form.EventType.Rate())
	form.ReasonDenied = ""
	form.ExcessFundsApproved = false
	if form.PassingGrade == "" {
		form.PassingGrade = form.GradeFormat.DefaultPassingGrade()
	}
	if err := s.forms.Save(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

// FindByID returns the form or dao.ErrNotFound.
func (s *Service) FindByID(ctx context.Context, id string) (*model.Form, error) {
	return s.load(ctx, id)
}

// List returns every stored form.
func (s *Service) List(ctx context.Context) ([]*model.Form, error) {
	return s.forms.List(ctx)
}

// ListByUsername returns username's forms, optionally narrowed to a status.
func (s *Service) ListByUsername(ctx context.Context, username string, status model.Status) ([]*model.Form, error) {
	forms, err := s.forms.ListByUsername(ctx, strings.ToLower(username))
	if err != nil || status == "" {
		return forms, err
	}
	filtered := forms[:0]
	for _, form := range forms {
		if form.Status == status {
			filtered = append(filtered, form)
		}
	}
	return filtered, nil
}

// Update replaces the requester-editable fields of a stored form. Workflow
// state (status, denial reason, excess flag) and attachment keys survive the
// update; the reimbursement is recomputed from the new cost while the form
// has not yet been adjusted by the benco.
func (s *Service) Update(ctx context.Context, form *model.Form) (*model.Form, error) {
	if form == nil {
		return nil, dao.ErrNilEntity
	}
	unlock := s.locks.Lock(form.ID)
	defer unlock()

	stored, err := s.load(ctx, form.ID)
	if err != nil {
		return nil, err
	}
	form.Username = stored.Username
	form.Status = stored.Status
	form.ReasonDenied = stored.ReasonDenied
	form.ExcessFundsApproved = stored.ExcessFundsApproved
	form.Attachment = stored.Attachment
	form.SupervisorAttachment = stored.SupervisorAttachment
	form.DepartmentHeadAttachment = stored.DepartmentHeadAttachment
	form.CompletionAttachment = stored.CompletionAttachment
	form.Urgent = form.IsUrgent(clock.Now())
	if stored.Status == model.StatusCreated {
		form.Reimbursement = model.RoundMoney(form.Cost * form.EventType.Rate())
	} else {
		form.Reimbursement = stored.Reimbursement
	}
	if err = s.forms.Save(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

// Delete removes a form, applying the cancellation policy: approved forms
// cannot be removed, pending forms refund their reserved amount first.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Cancel(ctx, id)
}

// UploadURL validates contentType against the slot's allow-list and returns
// a presigned upload URL for the slot's object key.
func (s *Service) UploadURL(ctx context.Context, id string, slot model.AttachmentType, contentType string) (string, error) {
	if _, err := s.load(ctx, id); err != nil {
		return "", err
	}
	if !attachment.ValidContentType(slot, contentType) {
		return "", fmt.Errorf("%w: %s for %s", attachment.ErrUnsupportedType, contentType, slot)
	}
	return s.attachments.UploadURL(ctx, attachment.Key(id, slot), contentType)
}

// SetAttachment records a completed upload on the form's matching slot.
func (s *Service) SetAttachment(ctx context.Context, id string, slot model.AttachmentType) (*model.Form, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	form, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	form.SetAttachmentKey(slot, attachment.Key(id, slot))
	if err = s.forms.Save(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

// DownloadURL returns a presigned download URL for the slot's stored object,
// or dao.ErrNotFound when nothing was uploaded to that slot.
func (s *Service) DownloadURL(ctx context.Context, id string, slot model.AttachmentType) (string, error) {
	form, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	key := form.AttachmentKey(slot)
	if key == "" {
		return "", fmt.Errorf("no %s attachment on form %s: %w", slot, id, dao.ErrNotFound)
	}
	return s.attachments.DownloadURL(ctx, key)
}

func (s *Service) load(ctx context.Context, id string) (*model.Form, error) {
	form, err := s.forms.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, fmt.Errorf("form %s: %w", id, dao.ErrNotFound)
	}
	return form, nil
}
