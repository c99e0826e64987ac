package bot

import (
	"testing"

	"github.com/mymmrac/telego"

	"telepost/pkg/post"
	"telepost/pkg/wizard"
)

func baseMessage(text string) *telego.Message {
	return &telego.Message{
		From: &telego.User{ID: 7},
		Chat: telego.Chat{ID: 7, Type: telego.ChatTypePrivate},
		Text: text,
	}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		name    string
		payload string
		ok      bool
	}{
		{"/start", "start", "", true},
		{"/start abc123", "start", "abc123", true},
		{"/START", "start", "", true},
		{"/help@mybot", "help", "", true},
		{"/cancel@mybot now", "cancel", "now", true},
		{"hello", "", "", false},
		{"", "", "", false},
		{"/", "", "", false},
		{"no /start inside", "", "", false},
	}
	for _, tt := range tests {
		name, payload, ok := parseCommand(tt.in)
		if name != tt.name || payload != tt.payload || ok != tt.ok {
			t.Fatalf("parseCommand(%q) = (%q, %q, %t), want (%q, %q, %t)",
				tt.in, name, payload, ok, tt.name, tt.payload, tt.ok)
		}
	}
}

func TestClassifyCommandMessage(t *testing.T) {
	t.Parallel()

	ev := classifyMessage(baseMessage("/start tok-1"))
	if ev.Kind != wizard.EventCommand || ev.Command != "start" || ev.Payload != "tok-1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.ActorID != 7 || ev.ChatID != 7 {
		t.Fatalf("actor/chat not carried: %+v", ev)
	}
}

func TestClassifyTextMessage(t *testing.T) {
	t.Parallel()

	msg := baseMessage("hello world")
	msg.Entities = []telego.MessageEntity{{Type: "bold", Offset: 0, Length: 5}}

	ev := classifyMessage(msg)
	if ev.Kind != wizard.EventMessage || ev.Text != "hello world" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if len(ev.Spans) != 1 || ev.Spans[0].Type != "bold" {
		t.Fatalf("entities not converted: %+v", ev.Spans)
	}
}

func TestClassifyMediaMessagePrefersCaption(t *testing.T) {
	t.Parallel()

	msg := baseMessage("")
	msg.Document = &telego.Document{FileID: "doc-1", FileName: "report.pdf"}
	msg.Caption = "the report"
	msg.CaptionEntities = []telego.MessageEntity{{Type: "italic", Offset: 0, Length: 3}}

	ev := classifyMessage(msg)
	if ev.Media == nil || ev.Media.Kind != post.KindDocument || ev.Media.Ref != "doc-1" {
		t.Fatalf("document not extracted: %+v", ev.Media)
	}
	if ev.Media.FileName != "report.pdf" {
		t.Fatalf("file name lost: %+v", ev.Media)
	}
	if ev.Text != "the report" || len(ev.Spans) != 1 {
		t.Fatalf("caption not carried as text: %+v", ev)
	}
}

func TestClassifyPhotoPicksLargest(t *testing.T) {
	t.Parallel()

	msg := baseMessage("")
	msg.Photo = []telego.PhotoSize{
		{FileID: "small", Width: 90},
		{FileID: "large", Width: 1280},
	}

	ev := classifyMessage(msg)
	if ev.Media == nil || ev.Media.Kind != post.KindPhoto || ev.Media.Ref != "large" {
		t.Fatalf("largest photo not chosen: %+v", ev.Media)
	}
}

func TestClassifyForwardedChannelMessage(t *testing.T) {
	t.Parallel()

	msg := baseMessage("")
	msg.Text = "forwarded content"
	msg.ForwardOrigin = &telego.MessageOriginChannel{
		Chat: telego.Chat{ID: -1001, Title: "Some Channel", Username: "somechan", Type: telego.ChatTypeChannel},
	}

	ev := classifyMessage(msg)
	if ev.Forward == nil {
		t.Fatalf("forward origin not recognized")
	}
	if ev.Forward.ID != -1001 || ev.Forward.Handle != "somechan" || !ev.Forward.IsChannel {
		t.Fatalf("unexpected forward info: %+v", ev.Forward)
	}
}

func TestForwardFromUserIgnored(t *testing.T) {
	t.Parallel()

	msg := baseMessage("hi")
	msg.ForwardOrigin = &telego.MessageOriginUser{
		SenderUser: telego.User{ID: 5},
	}

	if ev := classifyMessage(msg); ev.Forward != nil {
		t.Fatalf("user forward should not resolve to a channel: %+v", ev.Forward)
	}
}

func TestRetryToken(t *testing.T) {
	t.Parallel()

	if tok, ok := retryToken("retry:abc"); !ok || tok != "abc" {
		t.Fatalf("retryToken(retry:abc) = (%q, %t)", tok, ok)
	}
	if _, ok := retryToken("retry:"); ok {
		t.Fatalf("empty token accepted")
	}
	if _, ok := retryToken("menu:new_post"); ok {
		t.Fatalf("unrelated data accepted")
	}
}
