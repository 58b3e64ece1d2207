// Package form declares the form store contract. Vendors live in the memory
// and fs sub-packages.
package form

import (
	"context"

	"github.com/skillstorm/reimbursement/model"
	"github.com/skillstorm/reimbursement/service/dao"
)

// DAO is the durable store for reimbursement forms, keyed by form id.
type DAO interface {
	dao.Service[string, model.Form]

	// ListByUsername returns every form owned by username. Result sets for a
	// single user are small; callers filter by status in memory.
	ListByUsername(ctx context.Context, username string) ([]*model.Form, error)
}
