package post

import (
	"fmt"
	"testing"
)

func TestKeyboardRowsLayout(t *testing.T) {
	t.Parallel()

	cases := []struct {
		count    int
		wantRows []int // buttons per row
	}{
		{0, nil},
		{1, []int{1}},
		{2, []int{2}},
		{3, []int{2, 1}},
		{4, []int{2, 2}},
		{7, []int{2, 2, 2, 1}},
	}

	for _, tc := range cases {
		buttons := make([]Button, tc.count)
		for i := range buttons {
			buttons[i] = Button{Label: fmt.Sprintf("b%d", i), URL: "https://example.com"}
		}

		rows := KeyboardRows(buttons)
		if len(rows) != len(tc.wantRows) {
			t.Fatalf("count=%d: got %d rows, want %d", tc.count, len(rows), len(tc.wantRows))
		}
		idx := 0
		for r, row := range rows {
			if len(row) != tc.wantRows[r] {
				t.Fatalf("count=%d row=%d: got %d buttons, want %d", tc.count, r, len(row), tc.wantRows[r])
			}
			for _, b := range row {
				if want := fmt.Sprintf("b%d", idx); b.Label != want {
					t.Fatalf("count=%d: insertion order broken, got %s want %s", tc.count, b.Label, want)
				}
				idx++
			}
		}
	}
}

func TestContentShapeInvariant(t *testing.T) {
	t.Parallel()

	text := NewText("hello", nil)
	if text.Kind != KindText || text.MediaRef != "" {
		t.Fatalf("text post has media ref: %+v", text)
	}

	photo := NewMedia(KindPhoto, "file-123", "caption", nil)
	if photo.Kind != KindPhoto || photo.MediaRef != "file-123" || photo.Body != "caption" {
		t.Fatalf("unexpected media post: %+v", photo)
	}
}

func TestRemoveButtonKeepsOrder(t *testing.T) {
	t.Parallel()

	p := NewText("x", nil)
	p.AddButton("a", "https://a.example")
	p.AddButton("b", "https://b.example")
	p.AddButton("c", "https://c.example")

	p.RemoveButton(1)
	if len(p.Buttons) != 2 || p.Buttons[0].Label != "a" || p.Buttons[1].Label != "c" {
		t.Fatalf("unexpected buttons after removal: %+v", p.Buttons)
	}

	// Out of range is a no-op.
	p.RemoveButton(5)
	p.RemoveButton(-1)
	if len(p.Buttons) != 2 {
		t.Fatalf("out-of-range removal changed buttons: %+v", p.Buttons)
	}
}

func TestSetBodyReplacesSpans(t *testing.T) {
	t.Parallel()

	p := NewText("old", []Span{{Type: "bold", Offset: 0, Length: 3}})
	p.SetBody("new body", []Span{{Type: "italic", Offset: 4, Length: 4}})

	if p.Body != "new body" {
		t.Fatalf("body not replaced: %q", p.Body)
	}
	if len(p.Spans) != 1 || p.Spans[0].Type != "italic" {
		t.Fatalf("spans not replaced: %+v", p.Spans)
	}
}
