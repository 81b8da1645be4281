package nlu

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lowerCaser = cases.Lower(language.English)

// stopWords carry no topic signal in the exemplars and user turns.
var stopWords = map[string]struct{}{
	"a": {}, "about": {}, "an": {}, "and": {}, "are": {}, "be": {}, "can": {}, "d": {}, "do": {},
	"for": {}, "i": {}, "i'd": {}, "i'm": {}, "in": {}, "is": {}, "it": {}, "let's": {}, "lets": {},
	"like": {}, "ll": {}, "m": {}, "me": {}, "my": {}, "of": {}, "on": {}, "s": {}, "so": {},
	"talk": {}, "talking": {}, "that": {}, "the": {}, "to": {}, "want": {}, "we": {}, "what": {},
	"would": {}, "you": {}, "your": {},
}

// Tokenize normalizes text (NFKC, lower case), splits it on anything that is not a
// letter, digit or inner apostrophe, and removes stop words.
func Tokenize(text string) []string {
	text = lowerCaser.String(norm.NFKC.String(text))
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f == "" {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
