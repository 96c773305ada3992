package parent

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
)

// Service provides business logic for the Parent domain.
type Service struct {
	parents *Collection
	pub     events.Publisher
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

func NewService(parents *Collection) *Service {
	return &Service{
		parents: parents,
		pub:     events.Nop(),
		log:     zerolog.Nop(),
		now:     func() time.Time { return time.Now().UTC() },
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
		return nil, apperr.Wrap(err, "compact parent")
	}
	set["updatedAt"] = now
	return set, nil
}

func newRecord(f Fields, now time.Time) *Parent {
	return &Parent{
		FirstName:       f.FirstName,
		LastName:        f.LastName,
		Age:             f.Age,
		Address:         f.Address,
		PhoneNumber:     f.PhoneNumber,
		ProfileImageURL: f.ProfileImageURL,
		ProfileImageKey: f.ProfileImageKey,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *Service) committed(ctx context.Context, p *Parent, action string, outcome reconcile.Outcome) {
	s.metrics.Reconciled(ResourceType, string(outcome))
	evt := events.NewEvent(ResourceType, p.ResponseID(), action)
	evt.Outcome = string(outcome)
	events.Emit(ctx, s.pub, s.log, evt)
}

func (s *Service) Create(ctx context.Context, resource fhir.Object) (*Parent, error) {
	fields, id, err := s.prepare(resource)
	if err != nil {
		return nil, err
	}
	now := s.now()
	p, err := reconcile.Create(ctx, s.parents, id, func() *Parent { return newRecord(fields, now) })
	if err != nil {
		return nil, err
	}
	s.committed(ctx, p, events.ActionCreated, reconcile.OutcomeCreated)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id identifier.ID) (*Parent, error) {
	p, err := s.parents.FindOne(ctx, id.Query())
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(ResourceType, id.String())
	}
	if err != nil {
		return nil, apperr.Wrap(err, "find parent")
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id identifier.ID, resource fhir.Object) (*Parent, error) {
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

func (s *Service) apply(ctx context.Context, id identifier.ID, set bson.M) (*Parent, error) {
	p, err := s.parents.UpdateOne(ctx, id.Query(), set)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(ResourceType, id.String())
	}
	if err != nil {
		return nil, apperr.Wrap(err, "update parent")
	}
	s.committed(ctx, p, events.ActionUpdated, reconcile.OutcomeUpdatedByID)
	return p, nil
}

// Upsert updates the parent addressed by id, or by the resource's own id,
// and creates it when nothing matches. Parents have no natural key.
func (s *Service) Upsert(ctx context.Context, id *identifier.ID, resource fhir.Object) (*reconcile.Result[Parent], error) {
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
	res, err := reconcile.Upsert(ctx, s.parents, reconcile.Request[Parent]{
		ID:  id,
		Set: set,
		New: func() *Parent { return newRecord(fields, now) },
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

// SetPhoto points the parent's profile image at an uploaded blob.
func (s *Service) SetPhoto(ctx context.Context, id identifier.ID, up *blobstore.Upload) (*Parent, error) {
	return s.apply(ctx, id, bson.M{
		FieldProfileImageURL: up.URL,
		FieldProfileImageKey: up.Key,
		"updatedAt":          s.now(),
	})
}

// Search lists parents whose first or last name equals the name parameter.
func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Parent, int, error) {
	q := store.Query{}
	if v := params["name"]; v != "" {
		q.Any = []store.Filter{{Field: FieldFirstName, Value: v}, {Field: FieldLastName, Value: v}}
	}
	total, err := s.parents.Count(ctx, q)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "count parents")
	}
	items, err := s.parents.Find(ctx, q, store.FindOptions{
		Limit:  limit,
		Offset: offset,
		Sort:   []store.SortField{{Field: identifier.FieldStorageKey}},
	})
	if err != nil {
		return nil, 0, apperr.Wrap(err, "search parents")
	}
	return items, int(total), nil
}
