package practitionerrole

import (
	"context"
	"errors"
	"strconv"
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

// Service provides business logic for practitioner-organization role mappings.
type Service struct {
	roles   *Collection
	pub     events.Publisher
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

func NewService(roles *Collection) *Service {
	return &Service{
		roles: roles,
		pub:   events.Nop(),
		log:   zerolog.Nop(),
		now:   func() time.Time { return time.Now().UTC() },
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
		return nil, apperr.Wrap(err, "compact practitioner role")
	}
	set["updatedAt"] = now
	return set, nil
}

// newRecord builds a mapping that is active unless the payload said otherwise.
func newRecord(f Fields, now time.Time) *PractitionerRole {
	r := &PractitionerRole{
		Practitioner: f.Practitioner,
		Organization: f.Organization,
		RoleCode:     f.RoleCode,
		RoleDisplay:  f.RoleDisplay,
		RoleSystem:   f.RoleSystem,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if f.Active != nil {
		r.Active = *f.Active
	}
	return r
}

func (s *Service) committed(ctx context.Context, r *PractitionerRole, action string, outcome reconcile.Outcome) {
	if outcome != "" {
		s.metrics.Reconciled(ResourceType, string(outcome))
	}
	evt := events.NewEvent(ResourceType, r.ResponseID(), action)
	evt.Outcome = string(outcome)
	events.Emit(ctx, s.pub, s.log, evt)
}

func duplicateMapping() error {
	return apperr.Conflict("practitioner already holds this role in the organization")
}

// Create stores a new mapping. A second mapping for the same practitioner,
// organization and role is a conflict.
func (s *Service) Create(ctx context.Context, resource fhir.Object) (*PractitionerRole, error) {
	fields, id, err := s.prepare(resource)
	if err != nil {
		return nil, err
	}
	now := s.now()
	r, err := reconcile.Create(ctx, s.roles, id, func() *PractitionerRole { return newRecord(fields, now) })
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) && id == nil {
			return nil, duplicateMapping()
		}
		return nil, err
	}
	s.committed(ctx, r, events.ActionCreated, reconcile.OutcomeCreated)
	return r, nil
}

func (s *Service) Get(ctx context.Context, id identifier.ID) (*PractitionerRole, error) {
	r, err := s.roles.FindOne(ctx, id.Query())
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(ResourceType, id.String())
	}
	if err != nil {
		return nil, apperr.Wrap(err, "find practitioner role")
	}
	return r, nil
}

// Update rewrites the mapping id resolves to. Moving it onto a triple that
// another mapping already holds is a conflict.
func (s *Service) Update(ctx context.Context, id identifier.ID, resource fhir.Object) (*PractitionerRole, error) {
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
	r, err := s.roles.UpdateOne(ctx, id.Query(), set)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound(ResourceType, id.String())
	case errors.Is(err, store.ErrDuplicateKey):
		return nil, duplicateMapping()
	case err != nil:
		return nil, apperr.Wrap(err, "update practitioner role")
	}
	s.committed(ctx, r, events.ActionUpdated, reconcile.OutcomeUpdatedByID)
	return r, nil
}

// Upsert updates the mapping addressed by id, then the one holding the same
// (practitioner, organization, roleCode) triple, else creates it.
func (s *Service) Upsert(ctx context.Context, id *identifier.ID, resource fhir.Object) (*reconcile.Result[PractitionerRole], error) {
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

	key := naturalKey(fields)
	res, err := reconcile.Upsert(ctx, s.roles, reconcile.Request[PractitionerRole]{
		ID:         id,
		NaturalKey: &key,
		Set:        set,
		New:        func() *PractitionerRole { return newRecord(fields, now) },
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

// Delete removes the mapping id resolves to.
func (s *Service) Delete(ctx context.Context, id identifier.ID) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	deleted, err := s.roles.DeleteOne(ctx, store.Where(identifier.FieldStorageKey, r.Key))
	if err != nil {
		return apperr.Wrap(err, "delete practitioner role")
	}
	if !deleted {
		return apperr.NotFound(ResourceType, id.String())
	}
	s.committed(ctx, r, events.ActionDeleted, "")
	return nil
}

// Search lists mappings. practitioner and organization match only their own
// field; reference matches either. At most one of them may be given. role and
// active are exact filters.
func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*PractitionerRole, int, error) {
	q, err := searchQuery(params)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.roles.Count(ctx, q)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "count practitioner roles")
	}
	items, err := s.roles.Find(ctx, q, store.FindOptions{
		Limit:  limit,
		Offset: offset,
		Sort:   []store.SortField{{Field: identifier.FieldStorageKey}},
	})
	if err != nil {
		return nil, 0, apperr.Wrap(err, "search practitioner roles")
	}
	return items, int(total), nil
}

func searchQuery(params map[string]string) (store.Query, error) {
	var (
		q    store.Query
		used string
	)
	for _, p := range []struct {
		name   string
		fields []identifier.ReferenceField
	}{
		{"practitioner", referenceFields[:1]},
		{"organization", referenceFields[1:]},
		{"reference", referenceFields},
	} {
		v := params[p.name]
		if v == "" {
			continue
		}
		if used != "" {
			return store.Query{}, apperr.Validation(p.name, "cannot be combined with %s", used)
		}
		used = p.name
		q = identifier.ReferenceQuery(v, p.fields)
	}

	if v := params["role"]; v != "" {
		q = q.And(FieldRoleCode, v)
	}
	if v := params["active"]; v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return store.Query{}, apperr.Validation("active", "must be true or false")
		}
		q = q.And(FieldActive, active)
	}
	return q, nil
}
