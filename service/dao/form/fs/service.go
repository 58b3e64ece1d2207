// Package fs persists forms as JSON documents through viant/afs, one object
// per form id.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"github.com/skillstorm/reimbursement/model"
	"github.com/skillstorm/reimbursement/service/dao"
	formdao "github.com/skillstorm/reimbursement/service/dao/form"
)

type service struct {
	fs      afs.Service
	baseURL string
}

// New creates a filesystem-backed form store rooted at baseURL.
func New(fs afs.Service, baseURL string) formdao.DAO {
	return &service{fs: fs, baseURL: baseURL}
}

func (s *service) location(id string) string {
	return path.Join(s.baseURL, id+".json")
}

func (s *service) Save(ctx context.Context, f *model.Form) error {
	if f == nil {
		return dao.ErrNilEntity
	}
	if f.ID == "" {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal form %s: %w", f.ID, err)
	}
	return s.fs.Upload(ctx, s.location(f.ID), file.DefaultFileOsMode, strings.NewReader(string(data)))
}

func (s *service) Load(ctx context.Context, id string) (*model.Form, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	location := s.location(id)
	if exists, _ := s.fs.Exists(ctx, location); !exists {
		return nil, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to download form %s: %w", id, err)
	}
	form := &model.Form{}
	if err = json.Unmarshal(data, form); err != nil {
		return nil, fmt.Errorf("failed to unmarshal form %s: %w", id, err)
	}
	return form, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	return s.fs.Delete(ctx, s.location(id))
}

func (s *service) List(ctx context.Context) ([]*model.Form, error) {
	if exists, _ := s.fs.Exists(ctx, s.baseURL); !exists {
		return nil, nil
	}
	objects, err := s.fs.List(ctx, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	var out []*model.Form
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(object.Name(), ".json")
		form, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if form != nil {
			out = append(out, form)
		}
	}
	return out, nil
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
