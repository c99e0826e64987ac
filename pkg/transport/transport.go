// Package transport is the boundary to the messaging platform. The rest
// of the bot talks to the Client interface; the telego-backed
// implementation lives in telegram.go.
package transport

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"telepost/pkg/post"
)

// Button is one inline button in a UI keyboard: either a URL button or a
// callback button carrying Data.
type Button struct {
	Text string
	URL  string
	Data string
}

// Keyboard is an explicit row layout of inline buttons.
type Keyboard [][]Button

// MemberStatus is the platform's view of an actor's membership in a chat.
type MemberStatus string

const (
	MemberCreator       MemberStatus = "creator"
	MemberAdministrator MemberStatus = "administrator"
	MemberMember        MemberStatus = "member"
	MemberRestricted    MemberStatus = "restricted"
	MemberLeft          MemberStatus = "left"
	MemberBanned        MemberStatus = "banned"
	MemberUnknown       MemberStatus = "unknown"
)

// Joined reports whether the status counts as channel membership. Anything
// the platform does not clearly report as out (left, banned) counts as in;
// ambiguity on a single channel fails open.
func (s MemberStatus) Joined() bool {
	return s != MemberLeft && s != MemberBanned
}

// ChatInfo describes a chat resolved from an admin-supplied reference.
type ChatInfo struct {
	ID        int64
	Title     string
	Handle    string // public username without the @, empty for private chats
	IsChannel bool
}

// Client is the messaging collaborator contract.
type Client interface {
	// SendMessage delivers a plain UI message with an optional explicit
	// keyboard layout.
	SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) error
	// SendPost delivers a composed post — content, formatting spans, and
	// its two-per-row button keyboard. protect marks the message
	// non-forwardable.
	SendPost(ctx context.Context, chatID int64, p *post.Post, protect bool) error
	// GetChatMember reports actorID's membership status in chatID.
	GetChatMember(ctx context.Context, chatID, actorID int64) (MemberStatus, error)
	// ResolveChat looks a chat up from a parsed reference.
	ResolveChat(ctx context.Context, ref ChatRef) (ChatInfo, error)
	// BotCanPost reports whether the bot holds posting privilege in chatID.
	BotCanPost(ctx context.Context, chatID int64) (bool, error)
	// BotHandle is the bot's public username without the @.
	BotHandle() string
	// DeepLink builds the start link that carries a share token.
	DeepLink(token string) string
	// ChannelLink builds the public join link for a channel handle.
	ChannelLink(handle string) string
}

// ChatRef is a parsed channel reference: a numeric chat ID or a public
// username, never both.
type ChatRef struct {
	ID       int64
	Username string
}

// ParseChatRef interprets admin input as a channel reference: "@name", a
// t.me link, or a bare numeric chat ID. Returns false for anything else.
func ParseChatRef(text string) (ChatRef, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatRef{}, false
	}

	if strings.HasPrefix(text, "@") {
		name := strings.TrimPrefix(text, "@")
		if name == "" {
			return ChatRef{}, false
		}
		return ChatRef{Username: name}, true
	}

	if idx := strings.Index(text, "t.me/"); idx >= 0 {
		part := text[idx+len("t.me/"):]
		part = strings.SplitN(part, "?", 2)[0]
		part = strings.Trim(part, "/")
		// Invite links carry no username the API can resolve.
		if part == "" || strings.HasPrefix(part, "joinchat/") || strings.HasPrefix(part, "+") {
			return ChatRef{}, false
		}
		return ChatRef{Username: part}, true
	}

	if id, err := strconv.ParseInt(text, 10, 64); err == nil {
		return ChatRef{ID: id}, true
	}

	return ChatRef{}, false
}

// BuildDeepLink renders https://<host>/<botHandle>?start=<token>.
func BuildDeepLink(host, botHandle, token string) string {
	return fmt.Sprintf("https://%s/%s?start=%s", host, botHandle, token)
}

// BuildChannelLink renders https://<host>/<handle>.
func BuildChannelLink(host, handle string) string {
	return fmt.Sprintf("https://%s/%s", host, handle)
}
