package yesno

import "strings"

// LegacyClassify is the substring-containment matcher earlier versions of the bot used:
// the lower-cased reply is searched for each affirmative phrase, then each negative phrase,
// and the first hit wins. It never reports Ambiguous.
//
// It is kept for comparison only. Short phrases match inside longer words,
// so "no thanks" is read as Affirmative because it contains "k".
func LegacyClassify(text string) Result {
	text = strings.ToLower(text)
	for _, p := range AffirmativePhrases {
		if strings.Contains(text, p) {
			return Affirmative
		}
	}
	for _, p := range NegativePhrases {
		if strings.Contains(text, p) {
			return Negative
		}
	}
	return Unknown
}

// Overlap is a phrase from one vocabulary that contains a phrase of the other as a substring.
type Overlap struct {
	Phrase   string
	Contains string
	Polarity Result // vocabulary of Phrase
}

// SubstringOverlaps lists every cross-vocabulary substring containment.
// Each entry is a reply LegacyClassify can get wrong.
func SubstringOverlaps() []Overlap {
	var out []Overlap
	for _, no := range NegativePhrases {
		for _, yes := range AffirmativePhrases {
			if strings.Contains(no, yes) {
				out = append(out, Overlap{Phrase: no, Contains: yes, Polarity: Negative})
			}
		}
	}
	for _, yes := range AffirmativePhrases {
		for _, no := range NegativePhrases {
			if strings.Contains(yes, no) {
				out = append(out, Overlap{Phrase: yes, Contains: no, Polarity: Affirmative})
			}
		}
	}
	return out
}
