package registry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"telepost/pkg/store"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestAddAndListDestinations(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	ctx := context.Background()

	chans := []Channel{
		{ChatID: -100, Title: "First", Handle: "first_channel"},
		{ChatID: -200, Title: "Second"},
		{ChatID: -300, Title: "Third", Handle: "third_channel"},
	}
	for _, ch := range chans {
		if err := r.AddDestination(ctx, ch); err != nil {
			t.Fatalf("add %d: %v", ch.ChatID, err)
		}
	}

	got, err := r.Destinations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 destinations, got %d", len(got))
	}
	for i, ch := range got {
		if ch.ChatID != chans[i].ChatID {
			t.Fatalf("insertion order broken at %d: got %d want %d", i, ch.ChatID, chans[i].ChatID)
		}
		if ch.AddedAt.IsZero() {
			t.Fatalf("added_at not stamped for %d", ch.ChatID)
		}
	}
}

func TestAddDuplicateSignalsNotError(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	ctx := context.Background()

	ch := Channel{ChatID: -100, Title: "First"}
	if err := r.AddDestination(ctx, ch); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := r.AddDestination(ctx, ch); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got: %v", err)
	}

	got, err := r.Destinations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("duplicate add changed registry: %d entries", len(got))
	}
}

func TestRemoveMissingIsIdempotentNoOp(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	ctx := context.Background()

	if err := r.AddGate(ctx, Channel{ChatID: -1, Title: "Gate"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := r.RemoveGate(ctx, -999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}

	got, err := r.Gates(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ChatID != -1 {
		t.Fatalf("registry changed by missing remove: %+v", got)
	}
}

func TestGateAndDestinationAreIndependent(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	ctx := context.Background()

	if err := r.AddGate(ctx, Channel{ChatID: -5, Title: "Both"}); err != nil {
		t.Fatalf("add gate: %v", err)
	}
	if err := r.AddDestination(ctx, Channel{ChatID: -5, Title: "Both"}); err != nil {
		t.Fatalf("same channel in destination registry should add: %v", err)
	}

	if err := r.RemoveGate(ctx, -5); err != nil {
		t.Fatalf("remove gate: %v", err)
	}
	dests, err := r.Destinations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(dests) != 1 {
		t.Fatalf("gate removal touched destination registry")
	}
}

func TestDestinationLookup(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	ctx := context.Background()

	if err := r.AddDestination(ctx, Channel{ChatID: -7, Title: "News"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	ch, err := r.Destination(ctx, -7)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if ch.Title != "News" {
		t.Fatalf("unexpected channel: %+v", ch)
	}

	if _, err := r.Destination(ctx, -8); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}
