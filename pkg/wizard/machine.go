// Package wizard drives the admin-facing post composition flow: a
// per-actor state machine that turns a sequence of messages and button
// presses into a finished post and hands it to the delivery engine.
package wizard

import (
	"context"
	"strconv"
	"strings"

	"telepost/pkg/delivery"
	"telepost/pkg/logger"
	"telepost/pkg/registry"
	"telepost/pkg/session"
	"telepost/pkg/transport"
	"telepost/pkg/vault"
)

const component = "wizard"

// Machine routes classified events through the wizard's state table.
// All mutation of an actor's session happens under that actor's
// serialization lock, so same-actor events apply in arrival order.
type Machine struct {
	sessions *session.Store
	registry *registry.Registry
	vault    *vault.Vault
	engine   *delivery.Engine
	client   transport.Client

	maxReportedErrors int
}

func NewMachine(
	sessions *session.Store,
	reg *registry.Registry,
	vlt *vault.Vault,
	engine *delivery.Engine,
	client transport.Client,
	maxReportedErrors int,
) *Machine {
	return &Machine{
		sessions:          sessions,
		registry:          reg,
		vault:             vlt,
		engine:            engine,
		client:            client,
		maxReportedErrors: maxReportedErrors,
	}
}

// Handle processes one event for its actor. Events from the same actor
// are serialized; distinct actors proceed concurrently.
func (m *Machine) Handle(ctx context.Context, ev Event) error {
	var err error
	m.sessions.WithActor(ev.ActorID, func() {
		err = m.dispatch(ctx, ev)
	})
	return err
}

func (m *Machine) dispatch(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventCommand:
		return m.handleCommand(ctx, ev)
	case EventCallback:
		return m.handleCallback(ctx, ev)
	default:
		return m.handleMessage(ctx, ev)
	}
}

func (m *Machine) handleCommand(ctx context.Context, ev Event) error {
	switch ev.Command {
	case "start":
		m.sessions.Reset(ev.ActorID)
		return m.reply(ctx, ev.ChatID, textWelcome, mainMenuKeyboard())
	case "cancel":
		return m.cancel(ctx, ev)
	case "help":
		return m.reply(ctx, ev.ChatID, textHelp, nil)
	default:
		return m.reply(ctx, ev.ChatID, "Unknown command. Try /help.", nil)
	}
}

// cancel abandons whatever is in flight, from any step.
func (m *Machine) cancel(ctx context.Context, ev Event) error {
	m.sessions.Reset(ev.ActorID)
	return m.reply(ctx, ev.ChatID, textCancelled+"\n\n"+textWelcome, mainMenuKeyboard())
}

// messageHandlers keys the free-form message handlers by wizard step.
var messageHandlers = map[session.Step]func(*Machine, context.Context, Event) error{
	session.StepAwaitingContent:      (*Machine).handleContent,
	session.StepAwaitingButtonsInput: (*Machine).handleButtonsInput,
	session.StepAwaitingFileAttach:   (*Machine).handleFileAttach,
	session.StepAwaitingButtonTitle:  (*Machine).handleButtonTitle,
	session.StepAwaitingTextEdit:     (*Machine).handleTextEdit,
	session.StepAwaitingDestChannel:  (*Machine).handleDestChannelInput,
	session.StepAwaitingGateChannel:  (*Machine).handleGateChannelInput,
}

func (m *Machine) handleMessage(ctx context.Context, ev Event) error {
	step := m.sessions.Get(ev.ActorID).Step
	if h, ok := messageHandlers[step]; ok {
		return h(m, ctx, ev)
	}
	if step == session.StepIdle {
		return m.reply(ctx, ev.ChatID, textWelcome, mainMenuKeyboard())
	}
	return m.reply(ctx, ev.ChatID, "Use the buttons above, or /cancel to start over.", nil)
}

func (m *Machine) handleCallback(ctx context.Context, ev Event) error {
	data := ev.Callback
	switch data {
	case cbNoop:
		return nil
	case cbMenuCancel:
		return m.cancel(ctx, ev)
	case cbMenuNewPost:
		return m.startNewPost(ctx, ev)
	case cbMenuAddDest:
		m.sessions.Mutate(ev.ActorID, func(s *session.Session) {
			s.Step = session.StepAwaitingDestChannel
		})
		return m.reply(ctx, ev.ChatID, textAskDestination, cancelKeyboard())
	case cbMenuAddGate:
		m.sessions.Mutate(ev.ActorID, func(s *session.Session) {
			s.Step = session.StepAwaitingGateChannel
		})
		return m.reply(ctx, ev.ChatID, textAskGate, cancelKeyboard())
	case cbMenuRemoveDest:
		return m.promptRemove(ctx, ev, false)
	case cbMenuRemoveGate:
		return m.promptRemove(ctx, ev, true)
	case cbBuildAddButtons:
		return m.toSubStep(ctx, ev, session.StepAwaitingButtonsInput, textAskButtons)
	case cbBuildAttachFile:
		return m.toSubStep(ctx, ev, session.StepAwaitingFileAttach, textAskFile)
	case cbBuildEditText:
		return m.toSubStep(ctx, ev, session.StepAwaitingTextEdit, textAskTextEdit)
	case cbBuildDeleteButtons:
		return m.showDeleteButtons(ctx, ev)
	case cbBuildPreview:
		return m.sendPreview(ctx, ev)
	case cbPreviewSend:
		return m.promptTarget(ctx, ev)
	case cbPreviewBack:
		m.sessions.Mutate(ev.ActorID, func(s *session.Session) {
			s.Step = session.StepBuilding
		})
		return m.showHub(ctx, ev)
	case cbDeleteButtonDone:
		return m.showHub(ctx, ev)
	}

	switch {
	case strings.HasPrefix(data, prefixDeleteButton):
		return m.handleDeleteButton(ctx, ev, strings.TrimPrefix(data, prefixDeleteButton))
	case strings.HasPrefix(data, prefixTarget):
		return m.handleTarget(ctx, ev, strings.TrimPrefix(data, prefixTarget))
	case strings.HasPrefix(data, prefixRemoveDest):
		return m.handleRemove(ctx, ev, strings.TrimPrefix(data, prefixRemoveDest), false)
	case strings.HasPrefix(data, prefixRemoveGate):
		return m.handleRemove(ctx, ev, strings.TrimPrefix(data, prefixRemoveGate), true)
	}

	logger.WarnCF(component, "Unroutable callback", map[string]interface{}{
		logger.FieldActorID: ev.ActorID,
		"data":              data,
	})
	return nil
}

func (m *Machine) startNewPost(ctx context.Context, ev Event) error {
	dests, err := m.registry.Destinations(ctx)
	if err != nil {
		return m.reply(ctx, ev.ChatID, "Could not read the channel list. Try again.", mainMenuKeyboard())
	}
	if len(dests) == 0 {
		return m.reply(ctx, ev.ChatID, "Add a destination channel first.", mainMenuKeyboard())
	}
	m.sessions.Mutate(ev.ActorID, func(s *session.Session) {
		s.Step = session.StepAwaitingContent
		s.Draft = nil
		s.Staged = nil
	})
	return m.reply(ctx, ev.ChatID, textAskContent, cancelKeyboard())
}

// toSubStep enters one of the building sub-flows, guarding against a
// missing draft (expired session, old inline keyboard).
func (m *Machine) toSubStep(ctx context.Context, ev Event, step session.Step, prompt string) error {
	if m.sessions.Get(ev.ActorID).Draft == nil {
		return m.sessionExpired(ctx, ev)
	}
	m.sessions.Mutate(ev.ActorID, func(s *session.Session) {
		s.Step = step
	})
	return m.reply(ctx, ev.ChatID, prompt, cancelKeyboard())
}

func (m *Machine) sessionExpired(ctx context.Context, ev Event) error {
	m.sessions.Reset(ev.ActorID)
	return m.reply(ctx, ev.ChatID, textSessionExpired, mainMenuKeyboard())
}

// showHub sends the building hub: draft summary plus the edit keyboard.
func (m *Machine) showHub(ctx context.Context, ev Event) error {
	draft := m.sessions.Get(ev.ActorID).Draft
	if draft == nil {
		return m.sessionExpired(ctx, ev)
	}
	return m.reply(ctx, ev.ChatID, draftSummary(draft), buildingKeyboard(draft))
}

func (m *Machine) reply(ctx context.Context, chatID int64, text string, kb transport.Keyboard) error {
	if err := m.client.SendMessage(ctx, chatID, text, kb); err != nil {
		logger.ErrorCF(component, "Reply failed", map[string]interface{}{
			logger.FieldChatID: chatID,
			logger.FieldError:  err.Error(),
		})
		return err
	}
	return nil
}

func parseChatID(arg string) (int64, bool) {
	id, err := strconv.ParseInt(arg, 10, 64)
	return id, err == nil
}
