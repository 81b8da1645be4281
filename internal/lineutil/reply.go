package lineutil

import (
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/campus-interview-bot/internal/dialog"
)

// Postbacks sent by the Yes/No quick reply buttons.
var (
	AnswerYes = Postback{Module: "dialog", Action: "answer", Params: []string{"yes"}}
	AnswerNo  = Postback{Module: "dialog", Action: "answer", Params: []string{"no"}}
)

// YesNoItems returns the quick reply buttons offered on confirm steps.
func YesNoItems() []QuickReplyItem {
	return []QuickReplyItem{
		{Action: NewPostbackActionWithDisplayText("Yes", "Yes", AnswerYes.Encode())},
		{Action: NewPostbackActionWithDisplayText("No", "No", AnswerNo.Encode())},
	}
}

// RenderReply converts a dialog reply to LINE messages. At most maxMessages
// bubbles are produced; extra texts are joined into the last one.
func RenderReply(reply dialog.Reply, sender *messaging_api.Sender, maxMessages int) []messaging_api.MessageInterface {
	if len(reply.Messages) == 0 {
		return nil
	}
	if maxMessages <= 0 || maxMessages > MaxMessagesPerReply {
		maxMessages = MaxMessagesPerReply
	}

	texts := reply.Messages
	if len(texts) > maxMessages {
		merged := strings.Join(texts[maxMessages-1:], "\n")
		texts = append(append([]string(nil), texts[:maxMessages-1]...), merged)
	}

	messages := make([]messaging_api.MessageInterface, 0, len(texts))
	for _, text := range texts {
		messages = append(messages, NewTextMessage(text, sender))
	}
	if reply.QuickReply == dialog.QuickReplyYesNo {
		AddQuickReplyToMessages(messages, YesNoItems()...)
	}
	return messages
}
