package lineutil

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/campus-interview-bot/internal/stringutil"
)

// NewSender returns the sender shown on every bot message. An empty name
// returns nil, which keeps the channel's own name and icon.
func NewSender(name, iconURL string) *messaging_api.Sender {
	if name == "" {
		return nil
	}
	return &messaging_api.Sender{
		Name:    stringutil.TruncateRunes(name, MaxSenderNameLength),
		IconUrl: iconURL,
	}
}

// ErrorMessage is the generic apology sent when a turn could not be processed.
func ErrorMessage(sender *messaging_api.Sender) messaging_api.MessageInterface {
	return NewTextMessage("Sorry, something went wrong on my side. Please try again in a moment.", sender)
}
