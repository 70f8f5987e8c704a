package fakedocumentrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-truckdocs/documents"
)

var _ documents.Repo = (*FakeDocumentRepo)(nil)

type FakeDocumentRepo struct {
	records []documents.Record
	lock    sync.RWMutex

	// Err, when set, is returned by every read
	Err error
}

func NewFakeDocumentRepo() *FakeDocumentRepo {
	return &FakeDocumentRepo{}
}

func (r *FakeDocumentRepo) Append(_ context.Context, rec *documents.Record) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	r.records = append(r.records, *rec)
	return nil
}

func (r *FakeDocumentRepo) ListByOwner(_ context.Context, ownerID string) ([]documents.Record, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.Err != nil {
		return nil, r.Err
	}
	var out []documents.Record
	for _, rec := range r.records {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *FakeDocumentRepo) Get(_ context.Context, ownerID, id string) (*documents.Record, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.Err != nil {
		return nil, r.Err
	}
	for _, rec := range r.records {
		if rec.ID == id && rec.OwnerID == ownerID {
			copied := rec
			return &copied, nil
		}
	}
	return nil, documents.ErrDocumentNotFound
}
