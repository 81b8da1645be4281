package dialog

import "strings"

// QuickReply hints at buttons the transport may attach to the last message.
type QuickReply int

const (
	QuickReplyNone QuickReply = iota
	// QuickReplyYesNo offers "Yes" and "No".
	QuickReplyYesNo
)

// Reply is what the bot sends back for one turn.
type Reply struct {
	Messages   []string
	QuickReply QuickReply
}

func (r *Reply) add(texts ...string) {
	for _, t := range texts {
		if t != "" {
			r.Messages = append(r.Messages, t)
		}
	}
}

// Text joins the messages with newlines, for transports that send one bubble.
func (r *Reply) Text() string {
	return strings.Join(r.Messages, "\n")
}
