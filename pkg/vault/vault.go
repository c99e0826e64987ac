// Package vault issues opaque share tokens and maps them to stored file
// records. Tokens are random UUIDs, so guessing one is hopeless and
// collisions are astronomically rare; uniqueness is still enforced at
// insert and the token is simply re-rolled on the off chance.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"telepost/pkg/post"
	"telepost/pkg/store"
)

// ErrNotFound signals a token with no (live) record behind it.
var ErrNotFound = errors.New("unknown or expired token")

const recordCollection = "file_shares"

// issueAttempts bounds the re-roll loop on insert collision.
const issueAttempts = 5

// Record is one shared file, immutable once stored.
type Record struct {
	Token       string    `json:"token"`
	FileRef     string    `json:"file_ref"`
	Kind        post.Kind `json:"kind"`
	FileName    string    `json:"file_name,omitempty"`
	Caption     string    `json:"caption,omitempty"`
	ButtonLabel string    `json:"button_label"`
	CreatedAt   time.Time `json:"created_at"`
}

type Vault struct {
	docs store.Documents
	ttl  time.Duration // zero means records never expire
}

func New(docs store.Documents, ttl time.Duration) *Vault {
	return &Vault{docs: docs, ttl: ttl}
}

// Issue generates a fresh opaque token.
func (v *Vault) Issue() string {
	return uuid.NewString()
}

// Store persists rec under the given token.
func (v *Vault) Store(ctx context.Context, token string, rec Record) error {
	rec.Token = token
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if err := v.docs.InsertOne(ctx, recordCollection, token, rec); err != nil {
		return fmt.Errorf("store share record: %w", err)
	}
	return nil
}

// Put issues a token, stores rec under it, and returns the token. On an
// insert collision the token is regenerated.
func (v *Vault) Put(ctx context.Context, rec Record) (string, error) {
	for i := 0; i < issueAttempts; i++ {
		token := v.Issue()
		err := v.Store(ctx, token, rec)
		if err == nil {
			return token, nil
		}
		if errors.Is(err, store.ErrDuplicateKey) {
			continue
		}
		return "", err
	}
	return "", fmt.Errorf("store share record: token collisions on %d attempts", issueAttempts)
}

// Resolve returns the record behind token. Expired records resolve as
// ErrNotFound just like never-issued tokens.
func (v *Vault) Resolve(ctx context.Context, token string) (Record, error) {
	var rec Record
	err := v.docs.FindOne(ctx, recordCollection, token, &rec)
	if errors.Is(err, store.ErrNoDocument) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("resolve token: %w", err)
	}
	if v.expired(rec, time.Now()) {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// SweepExpired deletes expired records and reports how many were removed.
// A no-op when the vault has no TTL.
func (v *Vault) SweepExpired(ctx context.Context) (int, error) {
	if v.ttl <= 0 {
		return 0, nil
	}

	docs, err := v.docs.FindAll(ctx, recordCollection)
	if err != nil {
		return 0, fmt.Errorf("sweep share records: %w", err)
	}

	now := time.Now()
	removed := 0
	for _, doc := range docs {
		var rec Record
		if err := json.Unmarshal(doc.Data, &rec); err != nil {
			continue
		}
		if !v.expired(rec, now) {
			continue
		}
		if err := v.docs.DeleteOne(ctx, recordCollection, doc.Key); err != nil {
			if errors.Is(err, store.ErrNoDocument) {
				continue
			}
			return removed, fmt.Errorf("sweep share records: %w", err)
		}
		removed++
	}
	return removed, nil
}

func (v *Vault) expired(rec Record, now time.Time) bool {
	return v.ttl > 0 && now.Sub(rec.CreatedAt) > v.ttl
}
