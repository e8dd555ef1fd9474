package store

import (
	"context"
	"time"

	"github.com/ritzau/siteflow/pkg/model"
)

// Project is a named, persisted site-flow record. The graph is stored as an
// opaque structured blob in exactly the exchange shape; the storage boundary
// applies no engine-specific transformation.
type Project struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Graph       model.Graph `json:"graph"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// ProjectUpdate carries the fields of a partial update. Nil fields are left
// untouched.
type ProjectUpdate struct {
	Title       *string
	Description *string
	Graph       *model.Graph
}

// Store is the persistence collaborator. Get and Update return (nil, nil)
// for a missing record; Delete reports whether a record was removed.
type Store interface {
	Save(ctx context.Context, title, description string, g model.Graph) (*Project, error)
	Get(ctx context.Context, id string) (*Project, error)
	Update(ctx context.Context, id string, update ProjectUpdate) (*Project, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]*Project, error)
	Close() error
}
