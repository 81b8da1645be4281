package bot

import "github.com/line/line-bot-sdk-go/v8/linebot/webhook"

// GetChatID returns the conversation key for a LINE source: the user ID in
// a 1:1 chat, otherwise the group or room ID.
func GetChatID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.GroupId
	case webhook.RoomSource:
		return s.RoomId
	}
	return ""
}

// GetUserID returns the sender's user ID, which LINE omits in some group events.
func GetUserID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}

// IsPersonalChat reports whether source is a 1:1 chat with the bot.
func IsPersonalChat(source webhook.SourceInterface) bool {
	_, ok := source.(webhook.UserSource)
	return ok
}

// chatKind labels the source for logs.
func chatKind(source webhook.SourceInterface) string {
	switch source.(type) {
	case webhook.UserSource:
		return "user"
	case webhook.GroupSource:
		return "group"
	case webhook.RoomSource:
		return "room"
	}
	return "unknown"
}
