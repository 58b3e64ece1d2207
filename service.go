package reimbursement

import (
	"context"
	"fmt"
	"path"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"

	"github.com/skillstorm/reimbursement/model"
	"github.com/skillstorm/reimbursement/service/allowance"
	"github.com/skillstorm/reimbursement/service/attachment"
	"github.com/skillstorm/reimbursement/service/correlation"
	formdao "github.com/skillstorm/reimbursement/service/dao/form"
	formfs "github.com/skillstorm/reimbursement/service/dao/form/fs"
	formmem "github.com/skillstorm/reimbursement/service/dao/form/memory"
	"github.com/skillstorm/reimbursement/service/directory"
	"github.com/skillstorm/reimbursement/service/form"
	"github.com/skillstorm/reimbursement/service/inbox"
	"github.com/skillstorm/reimbursement/service/messaging"
	fsqueue "github.com/skillstorm/reimbursement/service/messaging/fs"
	memqueue "github.com/skillstorm/reimbursement/service/messaging/memory"
	"github.com/skillstorm/reimbursement/tracing"
)

// Service owns every runtime component of the reimbursement workflow.
type Service struct {
	config      *Config
	forms       formdao.DAO
	attachments attachment.Store

	directoryQueues directory.Queues
	allowanceQueues allowance.Queues
	approvals       messaging.Queue[model.ApprovalNotice]
	deletions       messaging.Queue[model.ApprovalNotice]
	escalations     messaging.Queue[model.ApprovalNotice]

	directory *directory.Client
	allowance *allowance.Client
	notices   *inbox.Publisher
	workflow  *form.Service

	logger *logrus.Entry
}

// New creates a service from the supplied options.
func New(options ...Option) (*Service, error) {
	s := &Service{
		config: DefaultConfig(),
		logger: logrus.WithField("component", "reimbursement"),
	}
	for _, option := range options {
		option(s)
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) init() error {
	if err := s.initQueues(); err != nil {
		return err
	}
	if s.forms == nil {
		switch s.config.Storage.Vendor {
		case messaging.VendorFs:
			s.forms = formfs.New(afs.New(), s.config.Storage.BaseURL)
		default:
			s.forms = formmem.New()
		}
	}
	if s.attachments == nil {
		if s.config.Attachments.Endpoint != "" {
			store, err := attachment.NewS3Store(s.config.Attachments)
			if err != nil {
				return err
			}
			s.attachments = store
		} else {
			s.attachments = disabledStore{}
		}
	}
	timeout := s.config.Resolution.Timeout
	s.directory = directory.New(s.directoryQueues, timeout)
	s.allowance = allowance.New(s.allowanceQueues, timeout)
	s.notices = inbox.New(s.approvals, s.deletions)
	s.workflow = form.New(s.forms, s.directory, s.allowance, s.notices, s.attachments)
	return nil
}

func (s *Service) initQueues() error {
	mc := s.config.Messaging
	var err error
	if s.directoryQueues.UserLookup, err = newQueue[directory.LookupRequest](mc, directory.UserLookupQueue); err != nil {
		return err
	}
	if s.directoryQueues.SupervisorLookup, err = newQueue[directory.LookupRequest](mc, directory.SupervisorLookupQueue); err != nil {
		return err
	}
	if s.directoryQueues.DepartmentHeadLookup, err = newQueue[directory.LookupRequest](mc, directory.DepartmentHeadLookupQueue); err != nil {
		return err
	}
	if s.directoryQueues.BencoLookup, err = newQueue[directory.LookupRequest](mc, directory.BencoLookupQueue); err != nil {
		return err
	}
	if s.directoryQueues.UserResponse, err = newQueue[correlation.Reply[model.Approver]](mc, directory.UserResponseQueue); err != nil {
		return err
	}
	if s.directoryQueues.SupervisorResponse, err = newQueue[correlation.Reply[model.Approver]](mc, directory.SupervisorResponseQueue); err != nil {
		return err
	}
	if s.directoryQueues.DepartmentHeadResponse, err = newQueue[correlation.Reply[model.Approver]](mc, directory.DepartmentHeadResponseQueue); err != nil {
		return err
	}
	if s.directoryQueues.BencoResponse, err = newQueue[correlation.Reply[model.Approver]](mc, directory.BencoResponseQueue); err != nil {
		return err
	}
	if s.allowanceQueues.AdjustmentRequest, err = newQueue[allowance.AdjustmentRequest](mc, allowance.AdjustmentRequestQueue); err != nil {
		return err
	}
	if s.allowanceQueues.AdjustmentResponse, err = newQueue[correlation.Reply[allowance.Adjustment]](mc, allowance.AdjustmentResponseQueue); err != nil {
		return err
	}
	if s.allowanceQueues.CancelRequest, err = newQueue[model.CancellationNotice](mc, allowance.CancelRequestQueue); err != nil {
		return err
	}
	if s.approvals, err = newQueue[model.ApprovalNotice](mc, inbox.ApprovalRequestQueue); err != nil {
		return err
	}
	if s.deletions, err = newQueue[model.ApprovalNotice](mc, inbox.DeletionRequestQueue); err != nil {
		return err
	}
	if s.escalations, err = newQueue[model.ApprovalNotice](mc, inbox.AutomaticApprovalQueue); err != nil {
		return err
	}
	return nil
}

// Start launches the reply dispatchers and the escalation worker. Loops run
// until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	if s.config.Tracing.Enabled {
		if err := tracing.Init(s.config.Tracing.ServiceName, "0.1.0", s.config.Tracing.OutputFile); err != nil {
			return err
		}
	}
	s.directory.Start(ctx)
	s.allowance.Start(ctx)
	s.workflow.RunEscalation(ctx, s.escalations)
	s.logger.WithField("vendor", s.config.Messaging.Vendor).Info("reimbursement service started")
	return nil
}

// Workflow exposes the workflow engine.
func (s *Service) Workflow() *form.Service {
	return s.workflow
}

// DirectoryQueues exposes the lookup queue topology, letting an in-process
// user service answer lookups in tests and demos.
func (s *Service) DirectoryQueues() directory.Queues {
	return s.directoryQueues
}

// AllowanceQueues exposes the adjustment queue topology.
func (s *Service) AllowanceQueues() allowance.Queues {
	return s.allowanceQueues
}

// ApprovalQueue exposes the inbox queue approval notices land on.
func (s *Service) ApprovalQueue() messaging.Queue[model.ApprovalNotice] {
	return s.approvals
}

// DeletionQueue exposes the queue withdrawal notices land on.
func (s *Service) DeletionQueue() messaging.Queue[model.ApprovalNotice] {
	return s.deletions
}

// EscalationQueue exposes the automatic-approval queue the escalation worker
// consumes.
func (s *Service) EscalationQueue() messaging.Queue[model.ApprovalNotice] {
	return s.escalations
}

func newQueue[T any](config MessagingConfig, name string) (messaging.Queue[T], error) {
	switch config.Vendor {
	case messaging.VendorFs:
		qc := fsqueue.DefaultConfig()
		qc.BaseURL = path.Join(config.BaseURL, name)
		return fsqueue.NewQueue[T](afs.New(), qc)
	default:
		return memqueue.NewQueue[T](memqueue.DefaultConfig()), nil
	}
}

// disabledStore stands in when no object storage is configured; attachment
// operations fail with a clear error instead of a nil dereference.
type disabledStore struct{}

func (disabledStore) UploadURL(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("object storage is not configured")
}

func (disabledStore) DownloadURL(context.Context, string) (string, error) {
	return "", fmt.Errorf("object storage is not configured")
}
