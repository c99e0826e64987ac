package bot

import (
	"context"
	"errors"
	"strings"

	"telepost/pkg/gate"
	"telepost/pkg/logger"
	"telepost/pkg/post"
	"telepost/pkg/registry"
	"telepost/pkg/transport"
	"telepost/pkg/wizard"
)

// retryPrefix tags the callback that re-checks gate membership; the share
// token rides along in the data.
const retryPrefix = "retry:"

const (
	textVisitorGreeting = "This bot delivers files shared by channel admins. Open a share link to receive your file."
	textUnknownToken    = "This link is invalid or has expired."
	textGateFailure     = "Something went wrong. Try again later."
	textJoinPrompt      = "To receive the file, join the channels below, then tap «Try again»."
)

func retryToken(data string) (string, bool) {
	token := strings.TrimPrefix(data, retryPrefix)
	if token == data || token == "" {
		return "", false
	}
	return token, true
}

// handleVisitor serves non-admin actors: the /start deep link is the only
// entry point, everything else gets the greeting.
func (b *Bot) handleVisitor(ctx context.Context, actorID, chatID int64, ev wizard.Event) {
	if ev.Kind == wizard.EventCommand && ev.Command == "start" && ev.Payload != "" {
		b.resolveAndRespond(ctx, actorID, chatID, ev.Payload)
		return
	}
	if ev.Kind != wizard.EventCommand {
		return
	}
	if err := b.client.SendMessage(ctx, chatID, textVisitorGreeting, nil); err != nil {
		logger.WarnCF(component, "Visitor greeting failed", map[string]interface{}{
			logger.FieldChatID: chatID,
			logger.FieldError:  err.Error(),
		})
	}
}

// resolveAndRespond runs the gate check for a share token and either
// releases the file or prompts with the channels still to join.
func (b *Bot) resolveAndRespond(ctx context.Context, actorID, chatID int64, token string) {
	outcome, err := b.gate.Resolve(ctx, actorID, token)
	switch {
	case errors.Is(err, gate.ErrUnknownToken):
		b.send(ctx, chatID, textUnknownToken, nil)
		return
	case err != nil:
		logger.ErrorCF(component, "Gate resolution failed", map[string]interface{}{
			logger.FieldActorID: actorID,
			logger.FieldToken:   token,
			logger.FieldError:   err.Error(),
		})
		b.send(ctx, chatID, textGateFailure, nil)
		return
	}

	if !outcome.Released {
		b.send(ctx, chatID, textJoinPrompt, joinKeyboard(b.client, outcome.Missing, token))
		return
	}

	rec := outcome.Record
	release := post.NewMedia(rec.Kind, rec.FileRef, rec.Caption, nil)
	if err := b.client.SendPost(ctx, chatID, release, true); err != nil {
		logger.ErrorCF(component, "File release failed", map[string]interface{}{
			logger.FieldActorID: actorID,
			logger.FieldToken:   token,
			logger.FieldError:   err.Error(),
		})
		b.send(ctx, chatID, textGateFailure, nil)
		return
	}
	logger.InfoCF(component, "File released", map[string]interface{}{
		logger.FieldActorID: actorID,
		logger.FieldToken:   token,
	})
}

// joinKeyboard lists one join link per missing channel plus the retry
// button carrying the token.
func joinKeyboard(client transport.Client, missing []registry.Channel, token string) transport.Keyboard {
	var kb transport.Keyboard
	for _, ch := range missing {
		kb = append(kb, []transport.Button{{
			Text: "📢 " + ch.Title,
			URL:  client.ChannelLink(ch.Handle),
		}})
	}
	kb = append(kb, []transport.Button{{Text: "🔄 Try again", Data: retryPrefix + token}})
	return kb
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, kb transport.Keyboard) {
	if err := b.client.SendMessage(ctx, chatID, text, kb); err != nil {
		logger.WarnCF(component, "Send failed", map[string]interface{}{
			logger.FieldChatID: chatID,
			logger.FieldError:  err.Error(),
		})
	}
}
