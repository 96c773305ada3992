package companion

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vetcare/practice/internal/platform/apperr"
	"github.com/vetcare/practice/internal/platform/blobstore"
	"github.com/vetcare/practice/internal/platform/events"
	"github.com/vetcare/practice/internal/platform/fhir"
	"github.com/vetcare/practice/internal/platform/identifier"
	"github.com/vetcare/practice/internal/platform/metrics"
	"github.com/vetcare/practice/internal/platform/reconcile"
	"github.com/vetcare/practice/internal/platform/sanitize"
	"github.com/vetcare/practice/internal/platform/store"
	"github.com/vetcare/practice/pkg/fhirmodels"
)

// Service provides business logic for the Companion domain.
type Service struct {
	companions *Collection
	pub        events.Publisher
	metrics    *metrics.Metrics
	log        zerolog.Logger
	now        func() time.Time
}

func NewService(companions *Collection) *Service {
	return &Service{
		companions: companions,
		pub:        events.Nop(),
		log:        zerolog.Nop(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) SetPublisher(p events.Publisher) { s.pub = p }
func (s *Service) SetMetrics(m *metrics.Metrics) { s.metrics = m }
func (s *Service) SetLogger(l zerolog.Logger) { s.log = l }

func (s *Service) prepare(resource fhir.Object) (Fields, *identifier.ID, error) {
	attrs, err := FromRequest(resource)
	if err != nil {
		return Fields{}, nil, s.reject(err)
	}
	fields, err := Sanitize(attrs)
	if err != nil {
		return Fields{}, nil, s.reject(err)
	}
	if attrs.ID == nil {
		return fields, nil, nil
	}
	id, err := identifier.ParseValid("id", *attrs.ID)
	if err != nil {
		return Fields{}, nil, s.reject(err)
	}
	return fields, &id, nil
}

func (s *Service) reject(err error) error {
	s.metrics.Rejected(ResourceType, apperr.KindOf(err).String())
	return err
}

func (s *Service) updateSet(f Fields, now time.Time) (bson.M, error) {
	set, err := sanitize.Compact(f)
	if err != nil {
		return nil, apperr.Wrap(err, "compact companion")
	}
	set["updatedAt"] = now
	return set, nil
}

// newRecord builds a companion whose status defaults to active.
func newRecord(f Fields, now time.Time) *Companion {
	c := &Companion{
		Name:        f.Name,
		Species:     f.Species,
		Breed:       f.Breed,
		DateOfBirth: f.DateOfBirth,
		Gender:      f.Gender,
		Weight:      f.Weight,
		Neutered:    f.Neutered,
		Insured:     f.Insured,
		Status:      fhirmodels.StatusActive,
		Source:      f.Source,
		Microchip:   f.Microchip,
		PhotoURL:    f.PhotoURL,
		PhotoKey:    f.PhotoKey,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if f.Status != nil {
		c.Status = *f.Status
	}
	return c
}

func (s *Service) committed(ctx context.Context, c *Companion, action string, outcome reconcile.Outcome) {
	s.metrics.Reconciled(ResourceType, string(outcome))
	evt := events.NewEvent(ResourceType, c.ResponseID(), action)
	evt.Outcome = string(outcome)
	events.Emit(ctx, s.pub, s.log, evt)
}

func (s *Service) Create(ctx context.Context, resource fhir.Object) (*Companion, error) {
	fields, id, err := s.prepare(resource)
	if err != nil {
		return nil, err
	}
	now := s.now()
	c, err := reconcile.Create(ctx, s.companions, id, func() *Companion { return newRecord(fields, now) })
	if err != nil {
		return nil, err
	}
	s.committed(ctx, c, events.ActionCreated, reconcile.OutcomeCreated)
	return c, nil
}

func (s *Service) Get(ctx context.Context, id identifier.ID) (*Companion, error) {
	c, err := s.companions.FindOne(ctx, id.Query())
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(ResourceType, id.String())
	}
	if err != nil {
		return nil, apperr.Wrap(err, "find companion")
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id identifier.ID, resource fhir.Object) (*Companion, error) {
	fields, bodyID, err := s.prepare(resource)
	if err != nil {
		return nil, err
	}
	if _, err := identifier.Resolve(&id, bodyID); err != nil {
		return nil, s.reject(err)
	}
	set, err := s.updateSet(fields, s.now())
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, id, set)
}

func (s *Service) apply(ctx context.Context, id identifier.ID, set bson.M) (*Companion, error) {
	c, err := s.companions.UpdateOne(ctx, id.Query(), set)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(ResourceType, id.String())
	}
	if err != nil {
		return nil, apperr.Wrap(err, "update companion")
	}
	s.committed(ctx, c, events.ActionUpdated, reconcile.OutcomeUpdatedByID)
	return c, nil
}

// Upsert updates the companion addressed by id, or by the resource's own id,
// and creates it when nothing matches.
func (s *Service) Upsert(ctx context.Context, id *identifier.ID, resource fhir.Object) (*reconcile.Result[Companion], error) {
	fields, bodyID, err := s.prepare(resource)
	if err != nil {
		return nil, err
	}
	if id, err = identifier.Resolve(id, bodyID); err != nil {
		return nil, s.reject(err)
	}
	now := s.now()
	set, err := s.updateSet(fields, now)
	if err != nil {
		return nil, err
	}
	res, err := reconcile.Upsert(ctx, s.companions, reconcile.Request[Companion]{
		ID:  id,
		Set: set,
		New: func() *Companion { return newRecord(fields, now) },
	})
	if err != nil {
		return nil, err
	}
	action := events.ActionUpdated
	if res.Created {
		action = events.ActionCreated
	}
	s.committed(ctx, res.Record, action, res.Outcome)
	return res, nil
}

// SetPhoto points the companion's photo at an uploaded blob.
func (s *Service) SetPhoto(ctx context.Context, id identifier.ID, up *blobstore.Upload) (*Companion, error) {
	return s.apply(ctx, id, bson.M{
		FieldPhotoURL: up.URL,
		FieldPhotoKey: up.Key,
		"updatedAt":   s.now(),
	})
}

// Search lists companions filtered by species and status. Filter values are
// checked against the same value sets as stored records.
func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Companion, int, error) {
	q := store.Query{}
	if v := params["species"]; v != "" {
		species, err := sanitize.Enum("species", v, fhirmodels.Species...)
		if err != nil {
			return nil, 0, err
		}
		q = q.And(FieldSpecies, *species)
	}
	if v := params["status"]; v != "" {
		status, err := sanitize.Enum("status", v, fhirmodels.Statuses...)
		if err != nil {
			return nil, 0, err
		}
		q = q.And(FieldStatus, *status)
	}
	if v := params["identifier"]; v != "" {
		q = q.And(FieldMicrochip, v)
	}

	total, err := s.companions.Count(ctx, q)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "count companions")
	}
	items, err := s.companions.Find(ctx, q, store.FindOptions{
		Limit:  limit,
		Offset: offset,
		Sort:   []store.SortField{{Field: identifier.FieldStorageKey}},
	})
	if err != nil {
		return nil, 0, apperr.Wrap(err, "search companions")
	}
	return items, int(total), nil
}
