// Package yesno classifies a free-text reply as agreement or refusal.
//
// Replies are normalized and tokenized, then matched phrase by phrase against two
// disjoint vocabularies. A reply that contains phrases from both is Ambiguous,
// which lets the dialog ask again instead of guessing.
package yesno

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Result is the outcome of a classification.
type Result int

const (
	Unknown Result = iota
	Affirmative
	Negative
	Ambiguous
)

func (r Result) String() string {
	switch r {
	case Affirmative:
		return "affirmative"
	case Negative:
		return "negative"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// AffirmativePhrases are the replies accepted as "yes".
var AffirmativePhrases = []string{
	"yes", "ye", "yep", "ya", "yas", "totally", "sure", "ok", "k", "okey", "okay",
	"alright", "sounds good", "sure thing", "of course", "gladly", "definitely",
	"indeed", "absolutely", "yes please", "please",
}

// NegativePhrases are the replies accepted as "no".
var NegativePhrases = []string{
	"no", "nope", "no thanks", "unfortunately not", "apologies", "nah", "not now",
	"no can do", "no thank you",
}

type polarity uint8

const (
	polarityYes polarity = 1 << iota
	polarityNo
)

type vocabulary struct {
	phrases map[string]polarity
	maxLen  int // longest phrase, in tokens
}

var defaultVocabulary = newVocabulary(AffirmativePhrases, NegativePhrases)

func newVocabulary(yes, no []string) *vocabulary {
	v := &vocabulary{phrases: make(map[string]polarity, len(yes)+len(no))}
	add := func(list []string, p polarity) {
		for _, phrase := range list {
			tokens := Tokenize(phrase)
			if len(tokens) == 0 {
				continue
			}
			v.phrases[strings.Join(tokens, " ")] |= p
			v.maxLen = max(v.maxLen, len(tokens))
		}
	}
	add(yes, polarityYes)
	add(no, polarityNo)
	return v
}

// Classify returns the polarity of text.
func Classify(text string) Result {
	return defaultVocabulary.classify(Tokenize(text))
}

// Matches returns the phrases found in text, longest match first at each position.
func Matches(text string) []string {
	var out []string
	defaultVocabulary.scan(Tokenize(text), func(phrase string, _ polarity) {
		out = append(out, phrase)
	})
	return out
}

func (v *vocabulary) classify(tokens []string) Result {
	var seen polarity
	v.scan(tokens, func(_ string, p polarity) { seen |= p })

	switch seen {
	case polarityYes:
		return Affirmative
	case polarityNo:
		return Negative
	case polarityYes | polarityNo:
		return Ambiguous
	default:
		return Unknown
	}
}

func (v *vocabulary) scan(tokens []string, fn func(string, polarity)) {
	for i := 0; i < len(tokens); {
		matched := 0
		for n := min(v.maxLen, len(tokens)-i); n > 0; n-- {
			phrase := strings.Join(tokens[i:i+n], " ")
			if p, ok := v.phrases[phrase]; ok {
				fn(phrase, p)
				matched = n
				break
			}
		}
		if matched == 0 {
			matched = 1
		}
		i += matched
	}
}

var lower = cases.Lower(language.English)

// Tokenize normalizes text (NFKC, lower case) and splits it into words.
// Apostrophes inside a word are kept, so "can't" stays one token.
func Tokenize(text string) []string {
	text = lower.String(norm.NFKC.String(text))
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Disjoint reports whether no phrase belongs to both vocabularies.
func Disjoint() bool {
	for _, p := range defaultVocabulary.phrases {
		if p == polarityYes|polarityNo {
			return false
		}
	}
	return true
}
