package wizard

import (
	"fmt"
	"strconv"

	"telepost/pkg/post"
	"telepost/pkg/registry"
	"telepost/pkg/transport"
)

// Callback data values routed by the machine. Prefixed entries carry an
// argument after the prefix.
const (
	cbNoop = "noop"

	cbMenuNewPost    = "menu:new_post"
	cbMenuAddDest    = "menu:add_dest"
	cbMenuAddGate    = "menu:add_gate"
	cbMenuRemoveDest = "menu:remove_dest"
	cbMenuRemoveGate = "menu:remove_gate"
	cbMenuCancel     = "menu:cancel"

	cbBuildAddButtons    = "build:add_buttons"
	cbBuildAttachFile    = "build:attach_file"
	cbBuildEditText      = "build:edit_text"
	cbBuildDeleteButtons = "build:delete_buttons"
	cbBuildPreview       = "build:preview"

	cbPreviewSend = "preview:send"
	cbPreviewBack = "preview:back"

	prefixDeleteButton = "delbtn:"
	cbDeleteButtonDone = prefixDeleteButton + "done"
	prefixTarget       = "target:"
	cbTargetAll        = prefixTarget + "all"
	prefixRemoveDest   = "rmdest:"
	prefixRemoveGate   = "rmgate:"
)

const (
	textWelcome = "What would you like to do?"
	textHelp    = "Commands:\n" +
		"/start — open the main menu\n" +
		"/cancel — abandon the current operation\n" +
		"/help — show this message"
	textCancelled      = "Operation cancelled."
	textAskContent     = "Send the post content: a text message, or a photo, video, document or audio with an optional caption."
	textAskButtons     = "Send button definitions, one per line:\n\nlabel - https://example.com"
	textAskFile        = "Send the file to attach: a photo, video, document or audio."
	textAskButtonTitle = "Send the title for the file button."
	textAskTextEdit    = "Send the new text for the post."
	textAskDestination = "Forward a message from the channel, or send its @username, t.me link or numeric ID. The bot must be an admin with posting rights there."
	textAskGate        = "Forward a message from the channel, or send its @username, t.me link or numeric ID. The bot must be a member there."
	textSessionExpired = "This session has expired. Use /start to begin again."
)

func mainMenuKeyboard() transport.Keyboard {
	return transport.Keyboard{
		{{Text: "📝 New post", Data: cbMenuNewPost}},
		{
			{Text: "➕ Add destination", Data: cbMenuAddDest},
			{Text: "➕ Add gate channel", Data: cbMenuAddGate},
		},
		{
			{Text: "➖ Remove destination", Data: cbMenuRemoveDest},
			{Text: "➖ Remove gate channel", Data: cbMenuRemoveGate},
		},
	}
}

func buildingKeyboard(draft *post.Post) transport.Keyboard {
	kb := transport.Keyboard{
		{
			{Text: "🔘 Add buttons", Data: cbBuildAddButtons},
			{Text: "📎 Attach file", Data: cbBuildAttachFile},
		},
	}
	row := []transport.Button{{Text: "✏️ Edit text", Data: cbBuildEditText}}
	if draft != nil && len(draft.Buttons) > 0 {
		row = append(row, transport.Button{Text: "🗑 Delete buttons", Data: cbBuildDeleteButtons})
	}
	kb = append(kb, row)
	kb = append(kb, []transport.Button{
		{Text: "👁 Preview", Data: cbBuildPreview},
		{Text: "❌ Cancel", Data: cbMenuCancel},
	})
	return kb
}

func previewKeyboard() transport.Keyboard {
	return transport.Keyboard{
		{
			{Text: "🚀 Send", Data: cbPreviewSend},
			{Text: "◀️ Back", Data: cbPreviewBack},
		},
		{{Text: "❌ Cancel", Data: cbMenuCancel}},
	}
}

func cancelKeyboard() transport.Keyboard {
	return transport.Keyboard{
		{{Text: "❌ Cancel", Data: cbMenuCancel}},
	}
}

func deleteButtonsKeyboard(draft *post.Post) transport.Keyboard {
	var kb transport.Keyboard
	for i, b := range draft.Buttons {
		kb = append(kb, []transport.Button{{
			Text: "🗑 " + b.Label,
			Data: prefixDeleteButton + strconv.Itoa(i),
		}})
	}
	kb = append(kb, []transport.Button{{Text: "✅ Done", Data: cbDeleteButtonDone}})
	return kb
}

func targetKeyboard(dests []registry.Channel) transport.Keyboard {
	var kb transport.Keyboard
	for _, d := range dests {
		kb = append(kb, []transport.Button{{
			Text: d.Title,
			Data: prefixTarget + strconv.FormatInt(d.ChatID, 10),
		}})
	}
	if len(dests) > 1 {
		kb = append(kb, []transport.Button{{Text: "📢 All channels", Data: cbTargetAll}})
	}
	kb = append(kb, []transport.Button{{Text: "❌ Cancel", Data: cbMenuCancel}})
	return kb
}

func removeKeyboard(channels []registry.Channel, prefix string) transport.Keyboard {
	var kb transport.Keyboard
	for _, ch := range channels {
		kb = append(kb, []transport.Button{{
			Text: "🗑 " + ch.Title,
			Data: prefix + strconv.FormatInt(ch.ChatID, 10),
		}})
	}
	kb = append(kb, []transport.Button{{Text: "❌ Cancel", Data: cbMenuCancel}})
	return kb
}

func draftSummary(draft *post.Post) string {
	s := "Draft updated."
	if draft == nil {
		return s
	}
	s += fmt.Sprintf("\nButtons: %d", len(draft.Buttons))
	if draft.FileToken != "" {
		s += "\nAttached file: yes"
	}
	return s + "\n\nChoose the next step:"
}
