package transport

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoutil"

	"telepost/pkg/post"
)

// Telegram implements Client on top of the Telegram Bot API.
type Telegram struct {
	bot      *telego.Bot
	botID    int64
	handle   string
	linkHost string
}

// NewTelegram wraps an authorized bot. It calls GetMe once to learn the
// bot's identity for deep links and privilege checks.
func NewTelegram(ctx context.Context, bot *telego.Bot, linkHost string) (*Telegram, error) {
	me, err := bot.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("get bot identity: %w", err)
	}
	return &Telegram{
		bot:      bot,
		botID:    me.ID,
		handle:   me.Username,
		linkHost: linkHost,
	}, nil
}

func (t *Telegram) BotHandle() string {
	return t.handle
}

func (t *Telegram) DeepLink(token string) string {
	return BuildDeepLink(t.linkHost, t.handle, token)
}

func (t *Telegram) ChannelLink(handle string) string {
	return BuildChannelLink(t.linkHost, handle)
}

func (t *Telegram) SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) error {
	params := &telego.SendMessageParams{
		ChatID: telegoutil.ID(chatID),
		Text:   text,
	}
	if markup := uiKeyboardMarkup(kb); markup != nil {
		params.ReplyMarkup = markup
	}
	_, err := t.bot.SendMessage(ctx, params)
	return classifyError(err)
}

func (t *Telegram) SendPost(ctx context.Context, chatID int64, p *post.Post, protect bool) error {
	chat := telegoutil.ID(chatID)
	markup := postKeyboardMarkup(p.Buttons)
	entities := entitiesFromSpans(p.Spans)

	var err error
	switch p.Kind {
	case post.KindText:
		params := &telego.SendMessageParams{
			ChatID:         chat,
			Text:           p.Body,
			Entities:       entities,
			ProtectContent: protect,
		}
		if markup != nil {
			params.ReplyMarkup = markup
		}
		_, err = t.bot.SendMessage(ctx, params)
	case post.KindPhoto:
		params := &telego.SendPhotoParams{
			ChatID:          chat,
			Photo:           telegoutil.FileFromID(p.MediaRef),
			Caption:         p.Body,
			CaptionEntities: entities,
			ProtectContent:  protect,
		}
		if markup != nil {
			params.ReplyMarkup = markup
		}
		_, err = t.bot.SendPhoto(ctx, params)
	case post.KindVideo:
		params := &telego.SendVideoParams{
			ChatID:          chat,
			Video:           telegoutil.FileFromID(p.MediaRef),
			Caption:         p.Body,
			CaptionEntities: entities,
			ProtectContent:  protect,
		}
		if markup != nil {
			params.ReplyMarkup = markup
		}
		_, err = t.bot.SendVideo(ctx, params)
	case post.KindDocument:
		params := &telego.SendDocumentParams{
			ChatID:          chat,
			Document:        telegoutil.FileFromID(p.MediaRef),
			Caption:         p.Body,
			CaptionEntities: entities,
			ProtectContent:  protect,
		}
		if markup != nil {
			params.ReplyMarkup = markup
		}
		_, err = t.bot.SendDocument(ctx, params)
	case post.KindAudio:
		params := &telego.SendAudioParams{
			ChatID:          chat,
			Audio:           telegoutil.FileFromID(p.MediaRef),
			Caption:         p.Body,
			CaptionEntities: entities,
			ProtectContent:  protect,
		}
		if markup != nil {
			params.ReplyMarkup = markup
		}
		_, err = t.bot.SendAudio(ctx, params)
	default:
		return fmt.Errorf("unsupported post kind: %s", p.Kind)
	}
	return classifyError(err)
}

func (t *Telegram) GetChatMember(ctx context.Context, chatID, actorID int64) (MemberStatus, error) {
	member, err := t.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: telegoutil.ID(chatID),
		UserID: actorID,
	})
	if err != nil {
		return MemberUnknown, classifyError(err)
	}
	return memberStatusOf(member), nil
}

func (t *Telegram) ResolveChat(ctx context.Context, ref ChatRef) (ChatInfo, error) {
	var chatID telego.ChatID
	if ref.Username != "" {
		chatID = telegoutil.Username("@" + ref.Username)
	} else {
		chatID = telegoutil.ID(ref.ID)
	}

	chat, err := t.bot.GetChat(ctx, &telego.GetChatParams{ChatID: chatID})
	if err != nil {
		return ChatInfo{}, classifyError(err)
	}

	return ChatInfo{
		ID:        chat.ID,
		Title:     chat.Title,
		Handle:    chat.Username,
		IsChannel: chat.Type == telego.ChatTypeChannel,
	}, nil
}

func (t *Telegram) BotCanPost(ctx context.Context, chatID int64) (bool, error) {
	member, err := t.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: telegoutil.ID(chatID),
		UserID: t.botID,
	})
	if err != nil {
		return false, classifyError(err)
	}

	switch m := member.(type) {
	case *telego.ChatMemberOwner:
		return true, nil
	case *telego.ChatMemberAdministrator:
		return m.CanPostMessages, nil
	}
	return false, nil
}

func memberStatusOf(member telego.ChatMember) MemberStatus {
	if member == nil {
		return MemberUnknown
	}
	switch member.MemberStatus() {
	case telego.MemberStatusCreator:
		return MemberCreator
	case telego.MemberStatusAdministrator:
		return MemberAdministrator
	case telego.MemberStatusMember:
		return MemberMember
	case telego.MemberStatusRestricted:
		return MemberRestricted
	case telego.MemberStatusLeft:
		return MemberLeft
	case telego.MemberStatusBanned:
		return MemberBanned
	}
	return MemberUnknown
}

// postKeyboardMarkup renders a post's URL buttons in the two-per-row
// layout the delivery engine promises.
func postKeyboardMarkup(buttons []post.Button) *telego.InlineKeyboardMarkup {
	rows := post.KeyboardRows(buttons)
	if rows == nil {
		return nil
	}
	kbRows := make([][]telego.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		kbRow := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			kbRow = append(kbRow, telegoutil.InlineKeyboardButton(b.Label).WithURL(b.URL))
		}
		kbRows = append(kbRows, kbRow)
	}
	return telegoutil.InlineKeyboard(kbRows...)
}

func uiKeyboardMarkup(kb Keyboard) *telego.InlineKeyboardMarkup {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]telego.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		kbRow := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			btn := telegoutil.InlineKeyboardButton(b.Text)
			if b.URL != "" {
				btn = btn.WithURL(b.URL)
			} else {
				btn = btn.WithCallbackData(b.Data)
			}
			kbRow = append(kbRow, btn)
		}
		rows = append(rows, kbRow)
	}
	return telegoutil.InlineKeyboard(rows...)
}

// SpansFromEntities converts platform formatting entities to post spans,
// preserved verbatim through the draft.
func SpansFromEntities(entities []telego.MessageEntity) []post.Span {
	if len(entities) == 0 {
		return nil
	}
	spans := make([]post.Span, 0, len(entities))
	for _, e := range entities {
		spans = append(spans, post.Span{
			Type:          e.Type,
			Offset:        e.Offset,
			Length:        e.Length,
			URL:           e.URL,
			Language:      e.Language,
			CustomEmojiID: e.CustomEmojiID,
		})
	}
	return spans
}

func entitiesFromSpans(spans []post.Span) []telego.MessageEntity {
	if len(spans) == 0 {
		return nil
	}
	entities := make([]telego.MessageEntity, 0, len(spans))
	for _, s := range spans {
		entities = append(entities, telego.MessageEntity{
			Type:          s.Type,
			Offset:        s.Offset,
			Length:        s.Length,
			URL:           s.URL,
			Language:      s.Language,
			CustomEmojiID: s.CustomEmojiID,
		})
	}
	return entities
}
