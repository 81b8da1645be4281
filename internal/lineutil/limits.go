package lineutil

// LINE API limits (rune counts unless noted).
// References: https://developers.line.biz/en/reference/messaging-api/
const (
	MaxTextMessageLength   = 5000 // Text message max content length
	MaxPostbackData        = 300  // Postback action data length (bytes)
	MaxMessagesPerReply    = 5    // Messages in one reply token
	MaxQuickReplyItemCount = 13   // Max items in a quick reply
	MaxQuickReplyLabel     = 20   // Max label length for quick reply item
	MaxSenderNameLength    = 20   // Sender display name
)
