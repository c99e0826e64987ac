package wizard

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"telepost/pkg/delivery"
	"telepost/pkg/logger"
	"telepost/pkg/post"
	"telepost/pkg/registry"
	"telepost/pkg/session"
	"telepost/pkg/vault"
)

// handleContent captures the initial post content: plain text, or one
// media payload with its caption.
func (m *Machine) handleContent(ctx context.Context, ev Event) error {
	var draft *post.Post
	switch {
	case ev.Media != nil:
		draft = post.NewMedia(ev.Media.Kind, ev.Media.Ref, ev.Text, ev.Spans)
	case strings.TrimSpace(ev.Text) != "":
		draft = post.NewText(ev.Text, ev.Spans)
	default:
		return m.reply(ctx, ev.ChatID, textAskContent, cancelKeyboard())
	}

	m.sessions.Mutate(ev.ActorID, func(s *session.Session) {
		s.Draft = draft
		s.Step = session.StepBuilding
	})
	return m.reply(ctx, ev.ChatID, draftSummary(draft), buildingKeyboard(draft))
}

func (m *Machine) handleButtonsInput(ctx context.Context, ev Event) error {
	if m.sessions.Get(ev.ActorID).Draft == nil {
		return m.sessionExpired(ctx, ev)
	}
	buttons := parseButtonLines(ev.Text)
	m.sessions.Mutate(ev.ActorID, func(s *session.Session) {
		for _, b := range buttons {
			s.Draft.AddButton(b.Label, b.URL)
		}
		s.Step = session.StepBuilding
	})

	draft := m.sessions.Get(ev.ActorID).Draft
	text := fmt.Sprintf("Added %d button(s).\n\n%s", len(buttons), draftSummary(draft))
	return m.reply(ctx, ev.ChatID, text, buildingKeyboard(draft))
}

func (m *Machine) handleFileAttach(ctx context.Context, ev Event) error {
	if m.sessions.Get(ev.ActorID).Draft == nil {
		return m.sessionExpired(ctx, ev)
	}
	if ev.Media == nil {
		return m.reply(ctx, ev.ChatID, textAskFile, cancelKeyboard())
	}
	m.sessions.Mutate(ev.ActorID, func(s *session.Session) {
		s.Staged = &session.StagedFile{
			Kind:     ev.Media.Kind,
			Ref:      ev.Media.Ref,
			FileName: ev.Media.FileName,
			Caption:  ev.Text,
		}
		s.Step = session.StepAwaitingButtonTitle
	})
	return m.reply(ctx, ev.ChatID, textAskButtonTitle, cancelKeyboard())
}

// handleButtonTitle finishes the attach-file sub-flow: it mints a share
// token for the staged file and appends a deep-link button to the draft.
func (m *Machine) handleButtonTitle(ctx context.Context, ev Event) error {
	sess := m.sessions.Get(ev.ActorID)
	if sess.Draft == nil || sess.Staged == nil {
		return m.sessionExpired(ctx, ev)
	}

	title := strings.TrimSpace(ev.Text)
	if title == "" {
		return m.reply(ctx, ev.ChatID, textAskButtonTitle, cancelKeyboard())
	}
	if len(title) > post.MaxButtonLabelLen {
		msg := fmt.Sprintf("The title is too long (max %d characters). Send a shorter one.", post.MaxButtonLabelLen)
		return m.reply(ctx, ev.ChatID, msg, cancelKeyboard())
	}

	staged := sess.Staged
	token, err := m.vault.Put(ctx, vault.Record{
		FileRef:     staged.Ref,
		Kind:        staged.Kind,
		FileName:    staged.FileName,
		Caption:     staged.Caption,
		ButtonLabel: title,
	})
	if err != nil {
		logger.ErrorCF(component, "Share token store failed", map[string]interface{}{
			logger.FieldActorID: ev.ActorID,
			logger.FieldError:   err.Error(),
		})
		return m.reply(ctx, ev.ChatID, "Could not store the file. Try again.", cancelKeyboard())
	}

	url := m.client.DeepLink(token)
	m.sessions.Mutate(ev.ActorID, func(s *session.Session) {
		s.Draft.AddButton(title, url)
		s.Draft.FileToken = token
		s.Staged = nil
		s.Step = session.StepBuilding
	})
	logger.InfoCF(component, "File share attached", map[string]interface{}{
		logger.FieldActorID: ev.ActorID,
		logger.FieldToken:   token,
	})

	draft := m.sessions.Get(ev.ActorID).Draft
	return m.reply(ctx, ev.ChatID, "File attached.\n\n"+draftSummary(draft), buildingKeyboard(draft))
}

func (m *Machine) handleTextEdit(ctx context.Context, ev Event) error {
	if m.sessions.Get(ev.ActorID).Draft == nil {
		return m.sessionExpired(ctx, ev)
	}
	if strings.TrimSpace(ev.Text) == "" {
		return m.reply(ctx, ev.ChatID, textAskTextEdit, cancelKeyboard())
	}
	m.sessions.Mutate(ev.ActorID, func(s *session.Session) {
		s.Draft.SetBody(ev.Text, ev.Spans)
		s.Step = session.StepBuilding
	})
	draft := m.sessions.Get(ev.ActorID).Draft
	return m.reply(ctx, ev.ChatID, "Text updated.\n\n"+draftSummary(draft), buildingKeyboard(draft))
}

func (m *Machine) showDeleteButtons(ctx context.Context, ev Event) error {
	draft := m.sessions.Get(ev.ActorID).Draft
	if draft == nil {
		return m.sessionExpired(ctx, ev)
	}
	if len(draft.Buttons) == 0 {
		return m.reply(ctx, ev.ChatID, "The draft has no buttons.\n\n"+draftSummary(draft), buildingKeyboard(draft))
	}
	return m.reply(ctx, ev.ChatID, "Tap a button to delete it:", deleteButtonsKeyboard(draft))
}

func (m *Machine) handleDeleteButton(ctx context.Context, ev Event, arg string) error {
	draft := m.sessions.Get(ev.ActorID).Draft
	if draft == nil {
		return m.sessionExpired(ctx, ev)
	}
	idx, err := strconv.Atoi(arg)
	if err != nil {
		return nil
	}
	m.sessions.Mutate(ev.ActorID, func(s *session.Session) {
		s.Draft.RemoveButton(idx)
	})

	draft = m.sessions.Get(ev.ActorID).Draft
	if len(draft.Buttons) == 0 {
		return m.reply(ctx, ev.ChatID, "All buttons removed.\n\n"+draftSummary(draft), buildingKeyboard(draft))
	}
	return m.reply(ctx, ev.ChatID, "Tap a button to delete it:", deleteButtonsKeyboard(draft))
}

// sendPreview delivers the draft to the admin's own chat through the same
// send path the broadcast uses, so the preview is pixel-faithful.
func (m *Machine) sendPreview(ctx context.Context, ev Event) error {
	draft := m.sessions.Get(ev.ActorID).Draft
	if draft == nil {
		return m.sessionExpired(ctx, ev)
	}
	if err := m.engine.SendOne(ctx, ev.ChatID, draft); err != nil {
		logger.WarnCF(component, "Preview send failed", map[string]interface{}{
			logger.FieldActorID: ev.ActorID,
			logger.FieldError:   err.Error(),
		})
		msg := "Could not render the preview: " + err.Error()
		return m.reply(ctx, ev.ChatID, msg, buildingKeyboard(draft))
	}
	m.sessions.Mutate(ev.ActorID, func(s *session.Session) {
		s.Step = session.StepPreviewing
	})
	return m.reply(ctx, ev.ChatID, "This is how the post will look.", previewKeyboard())
}

func (m *Machine) promptTarget(ctx context.Context, ev Event) error {
	if m.sessions.Get(ev.ActorID).Draft == nil {
		return m.sessionExpired(ctx, ev)
	}
	dests, err := m.registry.Destinations(ctx)
	if err != nil {
		return m.reply(ctx, ev.ChatID, "Could not read the channel list. Try again.", previewKeyboard())
	}
	if len(dests) == 0 {
		return m.reply(ctx, ev.ChatID, "No destination channels registered. Add one first.", previewKeyboard())
	}
	m.sessions.Mutate(ev.ActorID, func(s *session.Session) {
		s.Step = session.StepAwaitingSendTarget
	})
	return m.reply(ctx, ev.ChatID, "Where should the post go?", targetKeyboard(dests))
}

// handleTarget resolves the chosen target set, runs the fan-out, and
// reports the aggregate outcome. The session resets whatever the result:
// the broadcast happened, the draft is spent.
func (m *Machine) handleTarget(ctx context.Context, ev Event, arg string) error {
	draft := m.sessions.Get(ev.ActorID).Draft
	if draft == nil {
		return m.sessionExpired(ctx, ev)
	}

	var targets []registry.Channel
	if arg == "all" {
		dests, err := m.registry.Destinations(ctx)
		if err != nil {
			return m.reply(ctx, ev.ChatID, "Could not read the channel list. Try again.", nil)
		}
		targets = dests
	} else {
		id, ok := parseChatID(arg)
		if !ok {
			return nil
		}
		ch, err := m.registry.Destination(ctx, id)
		if err != nil {
			return m.reply(ctx, ev.ChatID, "That channel is no longer registered.", nil)
		}
		targets = []registry.Channel{ch}
	}

	report := m.engine.Deliver(ctx, draft, targets)
	m.sessions.Reset(ev.ActorID)
	logger.InfoCF(component, "Broadcast finished", map[string]interface{}{
		logger.FieldActorID: ev.ActorID,
		"sent":              report.Sent,
		"failed":            report.Failed,
	})
	return m.reply(ctx, ev.ChatID, renderReport(report, m.maxReportedErrors), mainMenuKeyboard())
}

// renderReport formats the fan-out outcome, showing at most maxErrors
// per-channel failure lines.
func renderReport(rep delivery.Report, maxErrors int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Posting complete.\nSent: %d\nFailed: %d", rep.Sent, rep.Failed)
	if len(rep.Errors) == 0 {
		return b.String()
	}

	shown := rep.Errors
	if maxErrors > 0 && len(shown) > maxErrors {
		shown = shown[:maxErrors]
	}
	b.WriteString("\n")
	for _, te := range shown {
		fmt.Fprintf(&b, "\n• %s: %s", te.Title, te.Detail)
	}
	if rest := len(rep.Errors) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "\n…and %d more", rest)
	}
	return b.String()
}
