package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/canteen-backend/internal/mirror"
)

type fakeReconciler struct {
	ids        []uuid.UUID
	failing    map[uuid.UUID]bool
	drifting   map[uuid.UUID]bool
	reconciled []uuid.UUID
	pages      int
}

func (f *fakeReconciler) AccountIDsAfter(_ context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	f.pages++
	start := 0
	if after != uuid.Nil {
		for i, id := range f.ids {
			if id == after {
				start = i + 1
			}
		}
	}
	end := min(start+limit, len(f.ids))
	return f.ids[start:end], nil
}

func (f *fakeReconciler) ReconcileAccount(_ context.Context, id uuid.UUID) (mirror.Drift, error) {
	f.reconciled = append(f.reconciled, id)
	if f.failing[id] {
		return mirror.Drift{}, errors.New("rpc timeout")
	}
	if f.drifting[id] {
		return mirror.Drift{Point: 5}, nil
	}
	return mirror.Drift{}, nil
}

func TestMirrorReconcileVisitsEveryAccountAndAggregatesFailures(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	fake := &fakeReconciler{
		ids:      ids,
		failing:  map[uuid.UUID]bool{ids[1]: true, ids[3]: true},
		drifting: map[uuid.UUID]bool{ids[4]: true},
	}
	job, err := NewMirrorReconcileJob(MirrorReconcileJobParams{Logger: testLogger(), Mirror: fake, BatchSize: 2})
	if err != nil {
		t.Fatalf("NewMirrorReconcileJob: %v", err)
	}

	err = job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Fatalf("expected 2 failures, got %d", n)
	}
	if len(fake.reconciled) != len(ids) {
		t.Fatalf("expected every account reconciled, got %d", len(fake.reconciled))
	}
	if fake.pages != 3 {
		t.Fatalf("expected 3 pages, got %d", fake.pages)
	}
}

func TestMirrorReconcileSucceedsWithoutFailures(t *testing.T) {
	fake := &fakeReconciler{ids: []uuid.UUID{uuid.New()}}
	job, _ := NewMirrorReconcileJob(MirrorReconcileJobParams{Logger: testLogger(), Mirror: fake})
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Name() != "mirror-reconcile" {
		t.Fatalf("unexpected name %s", job.Name())
	}
}
