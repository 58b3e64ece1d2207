// Package memory provides an in-memory form store for unit tests and
// single-instance deployments.
package memory

import (
	"context"

	"github.com/skillstorm/reimbursement/model"
	"github.com/skillstorm/reimbursement/service/dao"
	formdao "github.com/skillstorm/reimbursement/service/dao/form"
	"github.com/skillstorm/reimbursement/service/dao/store"
)

type service struct {
	*store.MemoryStore[string, model.Form]
}

func formKey(f *model.Form) string { return f.ID }

// New creates an in-memory form store.
func New() formdao.DAO {
	return &service{MemoryStore: store.NewMemoryStore[string, model.Form](formKey)}
}

func (s *service) Save(ctx context.Context, f *model.Form) error {
	if f == nil {
		return dao.ErrNilEntity
	}
	if f.ID == "" {
		return dao.ErrInvalidID
	}
	return s.MemoryStore.Save(ctx, f)
}

func (s *service) ListByUsername(ctx context.Context, username string) ([]*model.Form, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Form, 0, len(all))
	for _, f := range all {
		if f.Username == username {
			out = append(out, f)
		}
	}
	return out, nil
}
