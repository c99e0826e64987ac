package vault

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"telepost/pkg/post"
	"telepost/pkg/store"
)

func newTestVault(t *testing.T, ttl time.Duration) *Vault {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, ttl)
}

func TestPutAndResolve(t *testing.T) {
	t.Parallel()

	v := newTestVault(t, 0)
	ctx := context.Background()

	token, err := v.Put(ctx, Record{
		FileRef:     "file-abc",
		Kind:        post.KindDocument,
		FileName:    "guide.pdf",
		ButtonLabel: "Get the guide",
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if token == "" {
		t.Fatalf("empty token")
	}

	rec, err := v.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rec.FileRef != "file-abc" || rec.Kind != post.KindDocument || rec.Token != token {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatalf("created_at not stamped")
	}
}

func TestTokensAreInjective(t *testing.T) {
	t.Parallel()

	v := newTestVault(t, 0)
	ctx := context.Background()

	const n = 50
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		token, err := v.Put(ctx, Record{FileRef: "f", Kind: post.KindPhoto, ButtonLabel: "b"})
		if err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
		if seen[token] {
			t.Fatalf("token issued twice: %s", token)
		}
		seen[token] = true
	}

	for token := range seen {
		if _, err := v.Resolve(ctx, token); err != nil {
			t.Fatalf("issued token does not resolve: %v", err)
		}
	}
}

func TestResolveUnknownToken(t *testing.T) {
	t.Parallel()

	v := newTestVault(t, 0)
	if _, err := v.Resolve(context.Background(), "never-issued"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestExpiredTokenResolvesAsNotFound(t *testing.T) {
	t.Parallel()

	v := newTestVault(t, time.Hour)
	ctx := context.Background()

	token := v.Issue()
	err := v.Store(ctx, token, Record{
		FileRef:     "f",
		Kind:        post.KindVideo,
		ButtonLabel: "b",
		CreatedAt:   time.Now().Add(-2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	if _, err := v.Resolve(ctx, token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired token to be ErrNotFound, got: %v", err)
	}
}

func TestSweepExpiredRemovesOnlyExpired(t *testing.T) {
	t.Parallel()

	v := newTestVault(t, time.Hour)
	ctx := context.Background()

	oldToken := v.Issue()
	if err := v.Store(ctx, oldToken, Record{
		FileRef: "old", Kind: post.KindPhoto, ButtonLabel: "b",
		CreatedAt: time.Now().Add(-3 * time.Hour),
	}); err != nil {
		t.Fatalf("store old: %v", err)
	}

	freshToken, err := v.Put(ctx, Record{FileRef: "fresh", Kind: post.KindPhoto, ButtonLabel: "b"})
	if err != nil {
		t.Fatalf("put fresh: %v", err)
	}

	removed, err := v.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}

	if _, err := v.Resolve(ctx, freshToken); err != nil {
		t.Fatalf("fresh token swept: %v", err)
	}
}

func TestSweepWithoutTTLIsNoOp(t *testing.T) {
	t.Parallel()

	v := newTestVault(t, 0)
	ctx := context.Background()

	if _, err := v.Put(ctx, Record{FileRef: "f", Kind: post.KindAudio, ButtonLabel: "b", CreatedAt: time.Now().Add(-100 * time.Hour)}); err != nil {
		t.Fatalf("put: %v", err)
	}

	removed, err := v.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 0 {
		t.Fatalf("ttl-less vault removed %d records", removed)
	}
}
