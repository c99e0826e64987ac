// Package post models the composed message an admin builds in the wizard
// and the delivery engine broadcasts: a tagged content variant (plain text
// or one media kind) plus an ordered list of URL buttons.
package post

// Kind tags the content shape of a post.
type Kind string

const (
	KindText     Kind = "text"
	KindPhoto    Kind = "photo"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
	KindAudio    Kind = "audio"
)

// MaxButtonLabelLen mirrors the platform's inline button limit.
const MaxButtonLabelLen = 100

// Button is one inline URL button. Insertion order is display order.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Span is one rich-formatting annotation over the post body, carried
// verbatim from capture to delivery.
type Span struct {
	Type          string `json:"type"`
	Offset        int    `json:"offset"`
	Length        int    `json:"length"`
	URL           string `json:"url,omitempty"`
	Language      string `json:"language,omitempty"`
	CustomEmojiID string `json:"custom_emoji_id,omitempty"`
}

// Post is a draft while owned by a wizard session and an immutable
// artifact once handed to the delivery engine.
//
// Invariant: MediaRef is empty exactly when Kind is KindText; for media
// kinds Body carries the caption.
type Post struct {
	Kind      Kind     `json:"kind"`
	Body      string   `json:"body"`
	Spans     []Span   `json:"spans,omitempty"`
	MediaRef  string   `json:"media_ref,omitempty"`
	Buttons   []Button `json:"buttons"`
	FileToken string   `json:"file_token,omitempty"`
}

func NewText(body string, spans []Span) *Post {
	return &Post{Kind: KindText, Body: body, Spans: spans, Buttons: []Button{}}
}

func NewMedia(kind Kind, mediaRef, caption string, spans []Span) *Post {
	return &Post{Kind: kind, Body: caption, Spans: spans, MediaRef: mediaRef, Buttons: []Button{}}
}

func (p *Post) AddButton(label, url string) {
	p.Buttons = append(p.Buttons, Button{Label: label, URL: url})
}

// RemoveButton drops the button at index i, preserving the order of the
// rest. Out-of-range indexes are ignored.
func (p *Post) RemoveButton(i int) {
	if i < 0 || i >= len(p.Buttons) {
		return
	}
	p.Buttons = append(p.Buttons[:i], p.Buttons[i+1:]...)
}

// SetBody replaces the body and its formatting spans entirely.
func (p *Post) SetBody(body string, spans []Span) {
	p.Body = body
	p.Spans = spans
}

// KeyboardRows lays buttons out two per row in insertion order; an odd
// trailing button gets a full row of its own.
func KeyboardRows(buttons []Button) [][]Button {
	if len(buttons) == 0 {
		return nil
	}
	rows := make([][]Button, 0, (len(buttons)+1)/2)
	for i := 0; i < len(buttons); i += 2 {
		end := i + 2
		if end > len(buttons) {
			end = len(buttons)
		}
		row := make([]Button, end-i)
		copy(row, buttons[i:end])
		rows = append(rows, row)
	}
	return rows
}
