package wizard

import (
	"telepost/pkg/post"
	"telepost/pkg/transport"
)

// EventKind is the closed set of inbound event shapes the wizard accepts.
type EventKind int

const (
	// EventCommand is a slash command, possibly with a payload.
	EventCommand EventKind = iota
	// EventMessage is free-form input: text and/or one media payload.
	EventMessage
	// EventCallback is an inline button press.
	EventCallback
)

// Media is a media payload attached to a message event.
type Media struct {
	Kind     post.Kind
	Ref      string
	FileName string
}

// Event is one classified inbound update for a single actor.
type Event struct {
	Kind    EventKind
	ActorID int64
	ChatID  int64

	// Command fields.
	Command string
	Payload string

	// Message fields. For media messages Text carries the caption and
	// Spans its formatting.
	Text    string
	Spans   []post.Span
	Media   *Media
	Forward *transport.ChatInfo

	// Callback field.
	Callback string
}
