package bot

import (
	"slices"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/campus-interview-bot/internal/stringutil"
)

type span struct {
	index  int32
	length int32
}

// selfMentions returns the spans where the bot itself is mentioned.
func selfMentions(mention *webhook.Mention) []span {
	if mention == nil {
		return nil
	}
	var spans []span
	for _, m := range mention.Mentionees {
		if um, ok := m.(webhook.UserMentionee); ok && um.IsSelf {
			spans = append(spans, span{index: um.Index, length: um.Length})
		}
	}
	return spans
}

// stripSelfMentions removes every "@bot" span from text. The second result
// reports whether the bot was mentioned at all. Indexes are rune offsets.
func stripSelfMentions(text string, mention *webhook.Mention) (string, bool) {
	spans := selfMentions(mention)
	if len(spans) == 0 {
		return text, false
	}

	// Back to front so earlier indexes stay valid.
	slices.SortFunc(spans, func(a, b span) int { return int(b.index - a.index) })

	runes := []rune(text)
	for _, s := range spans {
		start := max(int(s.index), 0)
		end := min(int(s.index+s.length), len(runes))
		if start >= end {
			continue
		}
		runes = append(runes[:start], runes[end:]...)
	}
	return stringutil.CollapseSpace(string(runes)), true
}

// IsBotMentioned reports whether msg mentions the bot itself.
func IsBotMentioned(msg webhook.TextMessageContent) bool {
	return len(selfMentions(msg.Mention)) > 0
}
