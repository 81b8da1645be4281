package nlu

import (
	"regexp"
	"strings"

	"github.com/garyellow/campus-interview-bot/internal/stringutil"
)

var (
	namePattern     = regexp.MustCompile(`(?i:my name is|my name's|call me|i am called|i'm called)\s+(\p{L}[\p{L}'-]*)|(?i:\bi am|\bi'm)\s+(\p{Lu}[\p{L}'-]*)`)
	moduleCode      = regexp.MustCompile(`\b([A-Z]{4}\s?\d{5}|[A-Z]{2,4}\s?\d{3,4})\b`)
	lecturerPattern = regexp.MustCompile(`\b((?:Dr|Prof|Professor|Mr|Ms|Mrs)\.?\s+[\p{Lu}][\p{L}'-]+)`)
	stagePattern    = regexp.MustCompile(`(?i)\b(first|second|third|fourth|final|1st|2nd|3rd|4th)\s+year\b`)
)

var numberWords = map[string]struct{}{
	"one": {}, "two": {}, "three": {}, "four": {}, "five": {}, "six": {}, "seven": {},
	"eight": {}, "nine": {}, "ten": {}, "eleven": {}, "twelve": {},
}

// moduleWords name what is being counted.
var moduleWords = map[string]struct{}{
	"module": {}, "modules": {}, "subject": {}, "subjects": {}, "course": {}, "courses": {},
	"class": {}, "classes": {},
}

// countFillers may surround a bare count, as in "just six" or "I'm doing five".
var countFillers = map[string]struct{}{
	"am": {}, "around": {}, "doing": {}, "got": {}, "have": {}, "just": {}, "maybe": {},
	"only": {}, "probably": {}, "take": {}, "taking": {}, "think": {}, "this": {}, "semester": {},
	"term": {}, "year": {},
}

var opinionWords = map[string]struct{}{
	"amazing": {}, "awful": {}, "bad": {}, "boring": {}, "brilliant": {}, "difficult": {},
	"easy": {}, "excellent": {}, "fun": {}, "good": {}, "great": {}, "hard": {}, "hate": {},
	"helpful": {}, "interesting": {}, "love": {}, "nice": {}, "poor": {}, "terrible": {},
}

var emotionWords = map[string]struct{}{
	"angry": {}, "anxious": {}, "bored": {}, "disappointed": {}, "excited": {}, "frustrated": {},
	"happy": {}, "lonely": {}, "sad": {}, "scared": {}, "stressed": {}, "upset": {}, "worried": {},
}

var activityWords = map[string]struct{}{
	"basketball": {}, "chess": {}, "cooking": {}, "dance": {}, "debating": {}, "drama": {},
	"football": {}, "gaa": {}, "gaming": {}, "gym": {}, "hiking": {}, "music": {}, "reading": {},
	"rugby": {}, "running": {}, "soccer": {}, "swimming": {}, "volunteering": {}, "yoga": {},
}

// extractSlots pulls entities out of text with fixed patterns and word lists.
func extractSlots(text string) Entities {
	e := Entities{}

	if m := namePattern.FindStringSubmatch(text); m != nil {
		e.Add(SlotUserName, m[1], m[2])
	}
	for _, m := range moduleCode.FindAllString(text, -1) {
		e.Add(SlotModule, m)
	}
	for _, m := range lecturerPattern.FindAllString(text, -1) {
		e.Add(SlotLecturer, m)
	}
	if m := stagePattern.FindString(text); m != "" {
		e.Add(SlotStage, strings.ToLower(m))
	}

	tokens := Tokenize(text)
	for i, tok := range tokens {
		switch {
		case isCount(tok):
			if countsModules(tokens, i) {
				e.Add(SlotNumberOfModules, tok)
			}
		case inSet(opinionWords, tok):
			e.Add(SlotOpinion, tok)
		case inSet(emotionWords, tok):
			e.Add(SlotEmotion, tok)
		case inSet(activityWords, tok):
			e.Add(SlotExtracurricular, tok)
		}
	}
	return e
}

func isCount(tok string) bool {
	return (stringutil.IsNumeric(tok) && len(tok) <= 2) || inSet(numberWords, tok)
}

// countsModules reports whether the count at tokens[i] is a number of modules:
// a module word follows within two tokens, or the reply is only the count and
// fillers. Other numbers ("60 percent") are left alone.
func countsModules(tokens []string, i int) bool {
	for j := i + 1; j < len(tokens) && j <= i+2; j++ {
		if inSet(moduleWords, tokens[j]) {
			return true
		}
	}
	for j, tok := range tokens {
		if j != i && !inSet(countFillers, tok) {
			return false
		}
	}
	return true
}

func inSet(set map[string]struct{}, tok string) bool {
	_, ok := set[tok]
	return ok
}
