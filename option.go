package reimbursement

import (
	"time"

	"github.com/skillstorm/reimbursement/service/attachment"
	formdao "github.com/skillstorm/reimbursement/service/dao/form"
	"github.com/skillstorm/reimbursement/service/messaging"
)

// Option customises a Service before it is wired together.
type Option func(s *Service)

// WithConfig replaces the whole configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithQueueVendor selects the broker vendor (memory, fs).
func WithQueueVendor(vendor messaging.Vendor) Option {
	return func(s *Service) {
		s.config.Messaging.Vendor = vendor
	}
}

// WithQueueBaseURL sets the base location for fs-vendor queue entries.
func WithQueueBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.config.Messaging.BaseURL = baseURL
	}
}

// WithFormDAO sets the durable form store.
func WithFormDAO(dao formdao.DAO) Option {
	return func(s *Service) {
		s.forms = dao
	}
}

// WithAttachmentStore sets the object storage handing out presigned URLs.
func WithAttachmentStore(store attachment.Store) Option {
	return func(s *Service) {
		s.attachments = store
	}
}

// WithResolutionTimeout bounds every directory and allowance wait.
func WithResolutionTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.config.Resolution.Timeout = timeout
	}
}
