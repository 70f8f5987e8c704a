package documents

import (
	"context"
	"time"

	"github.com/jrsteele09/go-truckdocs/internal/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Uploader stores an attachment and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// Service validates, uploads and records document submissions.
type Service struct {
	repo     Repo
	uploader Uploader
	maxBytes int64
	nowTime  func() time.Time
}

type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func WithMaxFileBytes(n int64) ServiceOption {
	return func(s *Service) {
		s.maxBytes = n
	}
}

func NewService(repo Repo, uploader Uploader, options ...ServiceOption) *Service {
	s := &Service{
		repo:     repo,
		uploader: uploader,
		maxBytes: DefaultMaxFileBytes,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Create uploads the attachments one at a time and appends the record.
// Validation happens first and never reaches the uploader.
func (s *Service) Create(ctx context.Context, owner Owner, form Form) (*Record, error) {
	if err := Validate(form, s.maxBytes); err != nil {
		return nil, err
	}

	gatePassURL, err := s.uploader.Upload(ctx, form.GatePass.Name, form.GatePass.Data)
	if err != nil {
		return nil, errors.Wrap(err, "gate pass")
	}
	tr812URL, err := s.uploader.Upload(ctx, form.TR812.Name, form.TR812.Data)
	if err != nil {
		return nil, errors.Wrap(err, "TR812 form")
	}

	rec := &Record{
		OwnerID:      owner.ID,
		OwnerEmail:   owner.Email,
		TruckNumber:  form.TruckNumber,
		LoadedDate:   form.LoadedDate,
		AT20Depot:    form.AT20Depot,
		Product:      form.Product,
		Destination:  form.Destination,
		GatePassURL:  gatePassURL,
		GatePassName: form.GatePass.Name,
		TR812URL:     tr812URL,
		TR812Name:    form.TR812.Name,
		CreatedAt:    s.nowTime().UTC(),
	}
	if form.EPermit != nil && form.EPermit.Size > 0 {
		ePermitURL, err := s.uploader.Upload(ctx, form.EPermit.Name, form.EPermit.Data)
		if err != nil {
			return nil, errors.Wrap(err, "ePermit")
		}
		rec.EPermitURL = utils.PtrOrNil(ePermitURL)
		rec.EPermitName = utils.PtrOrNil(form.EPermit.Name)
	}

	if err := s.repo.Append(ctx, rec); err != nil {
		return nil, errors.Wrap(err, "[Service.Create] Append")
	}
	log.Info().Str("document", rec.ID).Str("owner", owner.ID).Msg("document recorded")
	return rec, nil
}

// List returns the owner's records narrowed and ordered by q.
func (s *Service) List(ctx context.Context, ownerID string, q Query) ([]Record, error) {
	records, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	return Apply(records, q), nil
}

func (s *Service) Months(ctx context.Context, ownerID string) ([]MonthGroup, error) {
	records, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	return Months(records), nil
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (*Record, error) {
	rec, err := s.repo.Get(ctx, ownerID, id)
	if errors.Is(err, ErrDocumentNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	return rec, nil
}
