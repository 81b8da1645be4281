package bot

import (
	"strings"
	"unicode"

	"github.com/garyellow/campus-interview-bot/internal/stringutil"
)

// SanitizeInput prepares user text for the dialog engine: control and
// zero-width characters are dropped, whitespace is collapsed and the result
// is cut to maxRunes (zero means no limit). Punctuation is kept because the
// recognizer reads it.
func SanitizeInput(text string, maxRunes int) string {
	text = strings.Map(func(r rune) rune {
		switch {
		case r == '\u200b', r == '\u200c', r == '\u200d', r == '\ufeff':
			return -1
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, text)
	text = stringutil.CollapseSpace(text)
	if maxRunes > 0 {
		text = strings.TrimSpace(stringutil.TruncateRunes(text, maxRunes))
	}
	return text
}
