package organization

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vetcare/practice/internal/platform/apperr"
	"github.com/vetcare/practice/internal/platform/events"
	"github.com/vetcare/practice/internal/platform/fhir"
	"github.com/vetcare/practice/internal/platform/identifier"
	"github.com/vetcare/practice/internal/platform/metrics"
	"github.com/vetcare/practice/internal/platform/reconcile"
	"github.com/vetcare/practice/internal/platform/sanitize"
	"github.com/vetcare/practice/internal/platform/store"
)

// Service provides business logic for the Organization domain.
type Service struct {
	orgs    *Collection
	pub     events.Publisher
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// NewService creates a new Organization domain service.
func NewService(orgs *Collection) *Service {
	return &Service{
		orgs: orgs,
		pub:  events.Nop(),
		log:  zerolog.Nop(),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) SetPublisher(p events.Publisher) { s.pub = p }
func (s *Service) SetMetrics(m *metrics.Metrics) { s.metrics = m }
func (s *Service) SetLogger(l zerolog.Logger) { s.log = l }

// prepare decodes and sanitizes resource and parses any id it carries.
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
		return nil, apperr.Wrap(err, "compact organization")
	}
	set["updatedAt"] = now
	return set, nil
}

func newRecord(f Fields, now time.Time) *Organization {
	org := &Organization{
		Name:           f.Name,
		RegistrationNo: f.RegistrationNo,
		ImageURL:       f.ImageURL,
		Phone:          f.Phone,
		Website:        f.Website,
		Address:        f.Address,
		Departments:    f.Departments,
		Type:           f.Type,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if f.IsVerified != nil {
		org.IsVerified = *f.IsVerified
	}
	return org
}

func (s *Service) committed(ctx context.Context, org *Organization, action string, outcome reconcile.Outcome) {
	s.metrics.Reconciled(ResourceType, string(outcome))
	evt := events.NewEvent(ResourceType, org.ResponseID(), action)
	evt.Outcome = string(outcome)
	events.Emit(ctx, s.pub, s.log, evt)
}

// Create stores a new organization. A registration number or id that is
// already taken is a conflict.
func (s *Service) Create(ctx context.Context, resource fhir.Object) (*Organization, error) {
	fields, id, err := s.prepare(resource)
	if err != nil {
		return nil, err
	}
	now := s.now()
	org, err := reconcile.Create(ctx, s.orgs, id, func() *Organization { return newRecord(fields, now) })
	if err != nil {
		return nil, err
	}
	s.committed(ctx, org, events.ActionCreated, reconcile.OutcomeCreated)
	return org, nil
}

func (s *Service) Get(ctx context.Context, id identifier.ID) (*Organization, error) {
	org, err := s.orgs.FindOne(ctx, id.Query())
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(ResourceType, id.String())
	}
	if err != nil {
		return nil, apperr.Wrap(err, "find organization")
	}
	return org, nil
}

// Update replaces the fields carried by resource on the organization id
// resolves to. Fields the resource omits are left untouched.
func (s *Service) Update(ctx context.Context, id identifier.ID, resource fhir.Object) (*Organization, error) {
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
	org, err := s.orgs.UpdateOne(ctx, id.Query(), set)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound(ResourceType, id.String())
	case errors.Is(err, store.ErrDuplicateKey):
		return nil, apperr.Conflict("registrationNo is already used by another organization")
	case err != nil:
		return nil, apperr.Wrap(err, "update organization")
	}
	s.committed(ctx, org, events.ActionUpdated, reconcile.OutcomeUpdatedByID)
	return org, nil
}

// Upsert updates the organization addressed by id (or the resource's own id),
// then the one holding the same registration number, else creates it.
func (s *Service) Upsert(ctx context.Context, id *identifier.ID, resource fhir.Object) (*reconcile.Result[Organization], error) {
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

	req := reconcile.Request[Organization]{
		ID:  id,
		Set: set,
		New: func() *Organization { return newRecord(fields, now) },
	}
	if fields.RegistrationNo != nil {
		q := store.Where(FieldRegistrationNo, *fields.RegistrationNo)
		req.NaturalKey = &q
	}

	res, err := reconcile.Upsert(ctx, s.orgs, req)
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

// Search lists organizations matching the name and identifier (registration
// number) parameters.
func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Organization, int, error) {
	q := store.Query{}
	if v := params["name"]; v != "" {
		q = q.And(FieldName, v)
	}
	if v := params["identifier"]; v != "" {
		q = q.And(FieldRegistrationNo, v)
	}

	total, err := s.orgs.Count(ctx, q)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "count organizations")
	}
	items, err := s.orgs.Find(ctx, q, store.FindOptions{
		Limit:  limit,
		Offset: offset,
		Sort:   []store.SortField{{Field: identifier.FieldStorageKey}},
	})
	if err != nil {
		return nil, 0, apperr.Wrap(err, "search organizations")
	}
	return items, int(total), nil
}
