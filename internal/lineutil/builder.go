// Package lineutil builds LINE messages, quick replies and postback payloads.
package lineutil

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/campus-interview-bot/internal/stringutil"
)

// QuickReplyItem represents an item in a quick reply.
type QuickReplyItem struct {
	ImageURL string
	Action   messaging_api.ActionInterface
}

// Action is an alias for the LINE SDK action interface for convenience.
type Action = messaging_api.ActionInterface

// NewTextMessage creates a text message, truncated to the LINE limit.
// sender may be nil.
func NewTextMessage(text string, sender *messaging_api.Sender) *messaging_api.TextMessage {
	if len([]rune(text)) > MaxTextMessageLength {
		text = stringutil.TruncateRunes(text, MaxTextMessageLength-3) + "..."
	}
	return &messaging_api.TextMessage{
		Text:   text,
		Sender: sender,
	}
}

// NewQuickReply creates a quick reply component. Items beyond the LINE limit
// are dropped.
func NewQuickReply(items []QuickReplyItem) *messaging_api.QuickReply {
	if len(items) > MaxQuickReplyItemCount {
		items = items[:MaxQuickReplyItemCount]
	}

	quickReplyItems := make([]messaging_api.QuickReplyItem, len(items))
	for i, item := range items {
		quickReplyItems[i] = messaging_api.QuickReplyItem{
			Action:   item.Action,
			ImageUrl: item.ImageURL,
		}
	}
	return &messaging_api.QuickReply{Items: quickReplyItems}
}

// NewMessageAction creates an action that sends text as the user.
func NewMessageAction(label, text string) Action {
	return &messaging_api.MessageAction{
		Label: stringutil.TruncateRunes(label, MaxQuickReplyLabel),
		Text:  text,
	}
}

// NewPostbackActionWithDisplayText creates a postback action that also shows
// displayText in the chat as if the user had typed it.
func NewPostbackActionWithDisplayText(label, displayText, data string) Action {
	return &messaging_api.PostbackAction{
		Label:       stringutil.TruncateRunes(label, MaxQuickReplyLabel),
		DisplayText: displayText,
		Data:        data,
	}
}

// AddQuickReplyToMessages attaches quick reply items to the last message.
// It is a no-op when there are no messages or the last one does not support quick replies.
func AddQuickReplyToMessages(messages []messaging_api.MessageInterface, items ...QuickReplyItem) {
	if len(messages) == 0 || len(items) == 0 {
		return
	}
	qr := NewQuickReply(items)
	switch m := messages[len(messages)-1].(type) {
	case *messaging_api.TextMessage:
		m.QuickReply = qr
	case *messaging_api.TemplateMessage:
		m.QuickReply = qr
	}
}
