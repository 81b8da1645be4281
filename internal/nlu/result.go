package nlu

import "github.com/garyellow/campus-interview-bot/internal/sliceutil"

// Entities maps a slot to the values extracted for it, in order of appearance.
type Entities map[Slot][]string

// Add appends values to slot, dropping blanks and case-insensitive duplicates.
func (e Entities) Add(slot Slot, values ...string) {
	merged := sliceutil.CompactStrings(append(append([]string(nil), e[slot]...), values...))
	if len(merged) == 0 {
		return
	}
	e[slot] = merged
}

// First returns the first value of slot or "".
func (e Entities) First(slot Slot) string {
	if vs := e[slot]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Has reports whether slot has at least one value.
func (e Entities) Has(slot Slot) bool {
	return len(e[slot]) > 0
}

// Result is what a recognizer returns for one turn.
type Result struct {
	Text      string
	TopIntent Intent
	Score     float64 // provider-specific confidence in [0, 1]
	Entities  Entities
	Provider  string
}

// NoneResult is the result used when recognition is unavailable or failed.
func NoneResult(text string) *Result {
	return &Result{Text: text, TopIntent: IntentNone, Entities: Entities{}}
}
