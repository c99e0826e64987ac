package bot

import (
	"strings"

	"github.com/mymmrac/telego"

	"telepost/pkg/post"
	"telepost/pkg/transport"
	"telepost/pkg/wizard"
)

// classifyMessage squeezes a platform message into the wizard's event
// shape: a command, or free-form text/media with forwarding context.
func classifyMessage(msg *telego.Message) wizard.Event {
	ev := wizard.Event{
		Kind:    wizard.EventMessage,
		ActorID: msg.From.ID,
		ChatID:  msg.Chat.ID,
	}

	if name, payload, ok := parseCommand(msg.Text); ok {
		ev.Kind = wizard.EventCommand
		ev.Command = name
		ev.Payload = payload
		return ev
	}

	ev.Text = msg.Text
	ev.Spans = transport.SpansFromEntities(msg.Entities)
	if media := extractMedia(msg); media != nil {
		ev.Media = media
		ev.Text = msg.Caption
		ev.Spans = transport.SpansFromEntities(msg.CaptionEntities)
	}
	ev.Forward = forwardedChannel(msg)
	return ev
}

// parseCommand recognizes "/name" and "/name payload" at the start of a
// message, tolerating the "/name@botname" form used in multi-bot chats.
func parseCommand(text string) (name, payload string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	if head == "" {
		return "", "", false
	}
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

func extractMedia(msg *telego.Message) *wizard.Media {
	switch {
	case len(msg.Photo) > 0:
		// Telegram sends several resolutions; the last is the largest.
		return &wizard.Media{Kind: post.KindPhoto, Ref: msg.Photo[len(msg.Photo)-1].FileID}
	case msg.Video != nil:
		return &wizard.Media{Kind: post.KindVideo, Ref: msg.Video.FileID, FileName: msg.Video.FileName}
	case msg.Document != nil:
		return &wizard.Media{Kind: post.KindDocument, Ref: msg.Document.FileID, FileName: msg.Document.FileName}
	case msg.Audio != nil:
		return &wizard.Media{Kind: post.KindAudio, Ref: msg.Audio.FileID, FileName: msg.Audio.FileName}
	default:
		return nil
	}
}

// forwardedChannel recognizes a message forwarded from a channel, the
// quickest way for an admin to hand the bot a channel reference.
func forwardedChannel(msg *telego.Message) *transport.ChatInfo {
	origin, ok := msg.ForwardOrigin.(*telego.MessageOriginChannel)
	if !ok {
		return nil
	}
	return &transport.ChatInfo{
		ID:        origin.Chat.ID,
		Title:     origin.Chat.Title,
		Handle:    origin.Chat.Username,
		IsChannel: origin.Chat.Type == telego.ChatTypeChannel,
	}
}
