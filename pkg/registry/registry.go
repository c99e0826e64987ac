// Package registry keeps the two channel collections the bot works with:
// gate channels an end user must join before a file release, and
// destination channels the admin broadcasts posts into. The collections
// are disjoint key spaces; a channel may sit in both.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"telepost/pkg/store"
)

var (
	// ErrDuplicate signals an add for a channel already present. Callers
	// treat it as a notice, not a failure.
	ErrDuplicate = errors.New("channel already registered")
	// ErrNotFound signals a remove for a channel that is not registered.
	ErrNotFound = errors.New("channel not registered")
)

const (
	gateCollection = "gate_channels"
	destCollection = "destination_channels"
)

// Channel describes one registered channel.
type Channel struct {
	ChatID  int64     `json:"chat_id"`
	Title   string    `json:"title"`
	Handle  string    `json:"handle,omitempty"` // public @username without the @, may be empty
	AddedAt time.Time `json:"added_at"`
}

type Registry struct {
	docs store.Documents
}

func New(docs store.Documents) *Registry {
	return &Registry{docs: docs}
}

func (r *Registry) AddGate(ctx context.Context, ch Channel) error {
	return r.add(ctx, gateCollection, ch)
}

func (r *Registry) AddDestination(ctx context.Context, ch Channel) error {
	return r.add(ctx, destCollection, ch)
}

func (r *Registry) RemoveGate(ctx context.Context, chatID int64) error {
	return r.remove(ctx, gateCollection, chatID)
}

func (r *Registry) RemoveDestination(ctx context.Context, chatID int64) error {
	return r.remove(ctx, destCollection, chatID)
}

// Gates lists gate channels in insertion order.
func (r *Registry) Gates(ctx context.Context) ([]Channel, error) {
	return r.list(ctx, gateCollection)
}

// Destinations lists destination channels in insertion order.
func (r *Registry) Destinations(ctx context.Context) ([]Channel, error) {
	return r.list(ctx, destCollection)
}

// Destination returns the registered destination with the given chat ID.
func (r *Registry) Destination(ctx context.Context, chatID int64) (Channel, error) {
	var ch Channel
	err := r.docs.FindOne(ctx, destCollection, channelKey(chatID), &ch)
	if errors.Is(err, store.ErrNoDocument) {
		return Channel{}, ErrNotFound
	}
	if err != nil {
		return Channel{}, fmt.Errorf("load destination %d: %w", chatID, err)
	}
	return ch, nil
}

func (r *Registry) add(ctx context.Context, collection string, ch Channel) error {
	if ch.AddedAt.IsZero() {
		ch.AddedAt = time.Now()
	}
	err := r.docs.InsertOne(ctx, collection, channelKey(ch.ChatID), ch)
	if errors.Is(err, store.ErrDuplicateKey) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("register channel %d: %w", ch.ChatID, err)
	}
	return nil
}

func (r *Registry) remove(ctx context.Context, collection string, chatID int64) error {
	err := r.docs.DeleteOne(ctx, collection, channelKey(chatID))
	if errors.Is(err, store.ErrNoDocument) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("unregister channel %d: %w", chatID, err)
	}
	return nil
}

func (r *Registry) list(ctx context.Context, collection string) ([]Channel, error) {
	docs, err := r.docs.FindAll(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	channels := make([]Channel, 0, len(docs))
	for _, doc := range docs {
		var ch Channel
		if err := json.Unmarshal(doc.Data, &ch); err != nil {
			return nil, fmt.Errorf("decode channel %s: %w", doc.Key, err)
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

func channelKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
