package webhook

import (
	"context"
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// loadingSeconds is the LINE maximum (5-60, multiple of 5).
const loadingSeconds int32 = 60

// Messenger sends replies through the LINE Messaging API.
type Messenger interface {
	Reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error
	ShowLoading(ctx context.Context, chatID string) error
}

// lineMessenger does not use the SDK's WithContext: it mutates the shared
// client. Calls are bounded by the SDK's HTTP client instead.
type lineMessenger struct {
	api *messaging_api.MessagingApiAPI
}

// NewLineMessenger creates a Messenger for the channel access token.
func NewLineMessenger(channelToken string) (Messenger, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}
	return &lineMessenger{api: api}, nil
}

func (m *lineMessenger) Reply(_ context.Context, replyToken string, messages []messaging_api.MessageInterface) error {
	_, err := m.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	return err
}

func (m *lineMessenger) ShowLoading(_ context.Context, chatID string) error {
	_, err := m.api.ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
		ChatId:         chatID,
		LoadingSeconds: loadingSeconds,
	})
	if err != nil {
		return fmt.Errorf("show loading animation: %w", err)
	}
	return nil
}
