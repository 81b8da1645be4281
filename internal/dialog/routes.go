package dialog

import (
	"errors"
	"fmt"
	"maps"

	"github.com/garyellow/campus-interview-bot/internal/nlu"
)

// Routes maps an intent to the topic it starts. An empty target means
// the step is asked again.
type Routes map[nlu.Intent]string

// Target returns the topic for intent, or "" for a re-prompt.
// Intents missing from the table re-prompt as well.
func (r Routes) Target(intent nlu.Intent) string {
	return r[intent]
}

// With returns a copy of r with overrides applied on top.
func (r Routes) With(overrides Routes) Routes {
	merged := make(Routes, len(r)+len(overrides))
	maps.Copy(merged, r)
	maps.Copy(merged, overrides)
	return merged
}

// Validate checks that every intent has exactly one entry, that none
// re-prompts, and that every target is a known topic.
func (r Routes) Validate(hasTopic func(string) bool) error {
	var errs []error
	for intent := range r {
		if !intent.Valid() {
			errs = append(errs, fmt.Errorf("unknown intent %q", intent))
		}
	}
	for _, intent := range nlu.Intents {
		target, ok := r[intent]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("intent %s has no route", intent))
		case intent == nlu.IntentNone && target != "":
			errs = append(errs, fmt.Errorf("intent none must re-prompt, got %q", target))
		case target != "" && !hasTopic(target):
			errs = append(errs, fmt.Errorf("intent %s routes to unknown topic %q", intent, target))
		}
	}
	return errors.Join(errs...)
}
