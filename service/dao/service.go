// Package dao defines the persistence contract the workflow engine consumes.
// The engine treats the form store as an external collaborator; vendors under
// dao/form satisfy this contract in memory or on a filesystem.
package dao

import (
	"context"
)

type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context) ([]*T, error)
}
