package practitionerrole

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vetcare/practice/internal/platform/apperr"
	"github.com/vetcare/practice/internal/platform/events"
	"github.com/vetcare/practice/internal/platform/identifier"
	"github.com/vetcare/practice/internal/platform/reconcile"
	"github.com/vetcare/practice/internal/platform/store"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *events.Recorder) {
	t.Helper()
	coll := OpenCollection(store.NewMemory())
	if err := Migrate(context.Background(), coll); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc := NewService(coll)
	rec := &events.Recorder{}
	svc.SetPublisher(rec)
	svc.now = func() time.Time { return fixedNow }
	return svc, rec
}

func TestCreate_DefaultsActiveAndRejectsDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	body := roleJSON("Practitioner/p1", "Organization/o1", "veterinarian")

	r, err := svc.Create(ctx, parse(t, body))
	if err != nil {
		t.Fatal(err)
	}
	if !r.Active {
		t.Error("expected active to default to true")
	}

	_, err = svc.Create(ctx, parse(t, body))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestUpsert_IsIdempotentOnNaturalKey(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()
	body := roleJSON("Practitioner/p1", "Organization/o1", "nurse")

	first, err := svc.Upsert(ctx, nil, parse(t, body))
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Upsert(ctx, nil, parse(t, body))
	if err != nil {
		t.Fatal(err)
	}
	if !first.Created || second.Created {
		t.Errorf("expected created then updated, got %v and %v", first.Created, second.Created)
	}
	if second.Outcome != reconcile.OutcomeUpdatedByNaturalKey || second.Record.Key != first.Record.Key {
		t.Errorf("unexpected second result %+v", second)
	}

	_, total, err := svc.Search(ctx, nil, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("expected one mapping, got %d", total)
	}

	evts := rec.Events()
	if len(evts) != 2 || evts[0].Action != events.ActionCreated || evts[1].Action != events.ActionUpdated {
		t.Errorf("unexpected events %+v", evts)
	}
}

func TestUpsert_Concurrent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	resource := parse(t, roleJSON("Practitioner/p9", "Organization/o9", "groomer"))

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Upsert(ctx, nil, resource)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if res.Created {
				created++
			}
		}()
	}
	wg.Wait()

	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if created != 1 {
		t.Errorf("expected exactly one create, got %d", created)
	}
	_, total, _ := svc.Search(ctx, nil, 10, 0)
	if total != 1 {
		t.Errorf("expected one mapping, got %d", total)
	}
}

func TestUpdate_CollisionIsConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, parse(t, roleJSON("p1", "o1", "doctor"))); err != nil {
		t.Fatal(err)
	}
	other, err := svc.Create(ctx, parse(t, roleJSON("p1", "o1", "nurse")))
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.Update(ctx, identifier.FromKey(other.Key), parse(t, roleJSON("p1", "o1", "doctor")))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, parse(t, roleJSON("p1", "o1", "doctor")))
	if err != nil {
		t.Fatal(err)
	}
	id := identifier.FromKey(r.Key)
	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Delete(ctx, id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
	evts := rec.Events()
	if last := evts[len(evts)-1]; last.Action != events.ActionDeleted {
		t.Errorf("expected delete event, got %+v", last)
	}
}

func TestSearch_ReferenceShapes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for _, body := range []string{
		roleJSON("Practitioner/p1", "Organization/o1", "doctor"),
		roleJSON("p1", "o2", "doctor"),
		roleJSON("Practitioner/p2", "o1", "nurse"),
	} {
		if _, err := svc.Create(ctx, parse(t, body)); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		params map[string]string
		want   int
	}{
		{"bare practitioner", map[string]string{"practitioner": "p1"}, 2},
		{"prefixed practitioner", map[string]string{"practitioner": "Practitioner/p1"}, 2},
		{"bare organization", map[string]string{"organization": "o1"}, 2},
		{"either field", map[string]string{"reference": "o2"}, 1},
		{"with role", map[string]string{"organization": "o1", "role": "nurse"}, 1},
		{"active", map[string]string{"active": "true"}, 3},
		{"inactive", map[string]string{"active": "false"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := svc.Search(ctx, tt.params, 10, 0)
			if err != nil {
				t.Fatal(err)
			}
			if total != tt.want {
				t.Errorf("expected %d, got %d", tt.want, total)
			}
		})
	}
}

func TestSearch_BadParams(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Search(context.Background(), map[string]string{"active": "maybe"}, 10, 0)
	if apperr.FieldOf(err) != "active" {
		t.Errorf("expected active validation error, got %v", err)
	}
	_, _, err = svc.Search(context.Background(), map[string]string{"practitioner": "p", "organization": "o"}, 10, 0)
	if apperr.KindOf(err) != apperr.KindValidationFailed {
		t.Errorf("expected combined references rejected, got %v", err)
	}
}
