package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telepost/pkg/logger"
	"telepost/pkg/registry"
	"telepost/pkg/transport"
)

func (m *Machine) handleDestChannelInput(ctx context.Context, ev Event) error {
	return m.handleChannelInput(ctx, ev, false)
}

func (m *Machine) handleGateChannelInput(ctx context.Context, ev Event) error {
	return m.handleChannelInput(ctx, ev, true)
}

// handleChannelInput registers a channel from admin input: a forwarded
// channel message, an @username, a t.me link, or a numeric chat ID. The
// reference is always re-resolved through the transport so the stored
// title and handle are current and the bot's visibility is proven.
// Destination channels additionally require the bot to hold posting
// rights there.
func (m *Machine) handleChannelInput(ctx context.Context, ev Event, gate bool) error {
	prompt := textAskDestination
	if gate {
		prompt = textAskGate
	}

	ref, ok := m.channelRef(ev)
	if !ok {
		return m.reply(ctx, ev.ChatID, "I couldn't read that as a channel reference.\n\n"+prompt, cancelKeyboard())
	}

	info, err := m.client.ResolveChat(ctx, ref)
	if err != nil {
		msg := "Could not look that channel up. Try again."
		if errors.Is(err, transport.ErrChatUnavailable) {
			msg = "I can't see that chat. Check the reference and make sure the bot was added to the channel."
		}
		return m.reply(ctx, ev.ChatID, msg, cancelKeyboard())
	}
	if !info.IsChannel {
		return m.reply(ctx, ev.ChatID, "That chat is not a channel.\n\n"+prompt, cancelKeyboard())
	}

	if !gate {
		canPost, err := m.client.BotCanPost(ctx, info.ID)
		if err != nil {
			return m.reply(ctx, ev.ChatID, "Could not check the bot's rights there. Try again.", cancelKeyboard())
		}
		if !canPost {
			return m.reply(ctx, ev.ChatID, "The bot needs to be an admin with posting rights in that channel.", cancelKeyboard())
		}
	}

	ch := registry.Channel{
		ChatID:  info.ID,
		Title:   info.Title,
		Handle:  info.Handle,
		AddedAt: time.Now().UTC(),
	}
	add := m.registry.AddDestination
	kind := "destination"
	if gate {
		add = m.registry.AddGate
		kind = "gate"
	}

	m.sessions.Reset(ev.ActorID)
	if err := add(ctx, ch); err != nil {
		if errors.Is(err, registry.ErrDuplicate) {
			msg := fmt.Sprintf("%q is already registered as a %s channel.", ch.Title, kind)
			return m.reply(ctx, ev.ChatID, msg, mainMenuKeyboard())
		}
		logger.ErrorCF(component, "Channel registration failed", map[string]interface{}{
			logger.FieldChatID: ch.ChatID,
			logger.FieldError:  err.Error(),
		})
		return m.reply(ctx, ev.ChatID, "Could not save the channel. Try again.", mainMenuKeyboard())
	}

	logger.InfoCF(component, "Channel registered", map[string]interface{}{
		logger.FieldChatID:  ch.ChatID,
		logger.FieldChannel: ch.Title,
		"kind":              kind,
	})
	msg := fmt.Sprintf("Added %q as a %s channel.", ch.Title, kind)
	if gate && ch.Handle == "" {
		msg += "\n\nNote: this channel has no public @username, so it can't appear in join prompts."
	}
	return m.reply(ctx, ev.ChatID, msg+"\n\n"+textWelcome, mainMenuKeyboard())
}

// channelRef extracts a chat reference from the event: a forwarded channel
// message wins, otherwise the text is parsed.
func (m *Machine) channelRef(ev Event) (transport.ChatRef, bool) {
	if ev.Forward != nil {
		return transport.ChatRef{ID: ev.Forward.ID}, true
	}
	return transport.ParseChatRef(ev.Text)
}

// promptRemove lists the registered channels of one kind as tappable rows.
func (m *Machine) promptRemove(ctx context.Context, ev Event, gate bool) error {
	list := m.registry.Destinations
	prefix := prefixRemoveDest
	kind := "destination"
	if gate {
		list = m.registry.Gates
		prefix = prefixRemoveGate
		kind = "gate"
	}

	channels, err := list(ctx)
	if err != nil {
		return m.reply(ctx, ev.ChatID, "Could not read the channel list. Try again.", mainMenuKeyboard())
	}
	if len(channels) == 0 {
		msg := fmt.Sprintf("No %s channels registered.", kind)
		return m.reply(ctx, ev.ChatID, msg+"\n\n"+textWelcome, mainMenuKeyboard())
	}
	msg := fmt.Sprintf("Tap a %s channel to remove it:", kind)
	return m.reply(ctx, ev.ChatID, msg, removeKeyboard(channels, prefix))
}

func (m *Machine) handleRemove(ctx context.Context, ev Event, arg string, gate bool) error {
	id, ok := parseChatID(arg)
	if !ok {
		return nil
	}
	remove := m.registry.RemoveDestination
	kind := "destination"
	if gate {
		remove = m.registry.RemoveGate
		kind = "gate"
	}

	if err := remove(ctx, id); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return m.reply(ctx, ev.ChatID, "That channel was already removed.\n\n"+textWelcome, mainMenuKeyboard())
		}
		return m.reply(ctx, ev.ChatID, "Could not remove the channel. Try again.", mainMenuKeyboard())
	}

	logger.InfoCF(component, "Channel removed", map[string]interface{}{
		logger.FieldChatID: id,
		"kind":             kind,
	})
	msg := fmt.Sprintf("Removed the %s channel.", kind)
	return m.reply(ctx, ev.ChatID, msg+"\n\n"+textWelcome, mainMenuKeyboard())
}
