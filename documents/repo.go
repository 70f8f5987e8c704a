package documents

import (
	"context"
	"fmt"

	errs "github.com/jrsteele09/go-truckdocs/internal/errors"
)

var ErrDocumentNotFound = fmt.Errorf("document %w", errs.ErrNotFound)

// Repo is an append-only document collection queried by owner.
type Repo interface {
	// Append stores rec. ID and CreatedAt are assigned when empty
	Append(ctx context.Context, rec *Record) error

	ListByOwner(ctx context.Context, ownerID string) ([]Record, error)

	// Get returns ErrDocumentNotFound when id does not exist or belongs to another owner
	Get(ctx context.Context, ownerID, id string) (*Record, error)
}
