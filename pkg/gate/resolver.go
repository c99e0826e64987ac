// Package gate decides whether a deep-link token releases its file to a
// requesting actor: every gate channel must be joined first.
package gate

import (
	"context"
	"errors"
	"fmt"

	"telepost/pkg/logger"
	"telepost/pkg/registry"
	"telepost/pkg/transport"
	"telepost/pkg/vault"
)

// ErrUnknownToken marks a token with no record behind it: an invalid or
// expired link, terminal for the request.
var ErrUnknownToken = errors.New("invalid or expired share link")

// Membership is the slice of the transport the resolver needs.
type Membership interface {
	GetChatMember(ctx context.Context, chatID, actorID int64) (transport.MemberStatus, error)
}

// Outcome is the resolver's verdict for one request.
type Outcome struct {
	// Released is true when every gate requirement is satisfied and the
	// record may be handed out.
	Released bool
	// Record is the share record behind the token, set in both verdicts so
	// the caller can re-prompt with the same token.
	Record vault.Record
	// Missing lists the linkable gate channels the actor still has to
	// join, in registry order. Non-empty exactly when Released is false.
	Missing []registry.Channel
}

type Resolver struct {
	vault   *vault.Vault
	reg     *registry.Registry
	members Membership
}

func New(v *vault.Vault, reg *registry.Registry, members Membership) *Resolver {
	return &Resolver{vault: v, reg: reg, members: members}
}

// Resolve evaluates token for actorID. Per-channel ambiguity fails open
// (an unknown status counts as joined), but a hard membership-query error
// fails the whole resolution closed: no release on uncertainty.
func (r *Resolver) Resolve(ctx context.Context, actorID int64, token string) (Outcome, error) {
	rec, err := r.vault.Resolve(ctx, token)
	if errors.Is(err, vault.ErrNotFound) {
		return Outcome{}, ErrUnknownToken
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("resolve share token: %w", err)
	}

	gates, err := r.reg.Gates(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("load gate channels: %w", err)
	}

	var missing []registry.Channel
	for _, ch := range gates {
		if ch.Handle == "" {
			// No public handle means no join link to offer; the channel
			// cannot be enforced on this path and is skipped.
			logger.WarnCF("gate", "Gate channel has no public handle, not enforced", map[string]interface{}{
				logger.FieldChatID:  ch.ChatID,
				logger.FieldChannel: ch.Title,
			})
			continue
		}

		status, err := r.members.GetChatMember(ctx, ch.ChatID, actorID)
		if err != nil {
			return Outcome{}, fmt.Errorf("membership query for channel %d: %w", ch.ChatID, err)
		}
		if !status.Joined() {
			missing = append(missing, ch)
		}
	}

	if len(missing) > 0 {
		return Outcome{Released: false, Record: rec, Missing: missing}, nil
	}
	return Outcome{Released: true, Record: rec}, nil
}
