// Package nlu defines what a recognizer returns for one user turn: the top intent
// and the entity slots, plus the offline lexical recognizer and recognizer chaining.
package nlu

import "strings"

// Intent is the recognized purpose of a turn.
type Intent string

const (
	IntentGreeting               Intent = "greeting"
	IntentDiscussModule          Intent = "discussModule"
	IntentDiscussLecturer        Intent = "discussLecturer"
	IntentDiscussCampus          Intent = "discussCampus"
	IntentDiscussExtracurricular Intent = "discussExtracurricular"
	IntentDiscussFeeling         Intent = "discussFeeling"
	IntentEndConversation        Intent = "endConversation"
	IntentNone                   Intent = "none"
)

// Intents lists every intent in a fixed order.
var Intents = []Intent{
	IntentGreeting,
	IntentDiscussModule,
	IntentDiscussLecturer,
	IntentDiscussCampus,
	IntentDiscussExtracurricular,
	IntentDiscussFeeling,
	IntentEndConversation,
	IntentNone,
}

// ParseIntent maps a label to an Intent, case-insensitively.
// Labels outside the set parse to IntentNone.
func ParseIntent(label string) Intent {
	label = strings.TrimSpace(label)
	for _, in := range Intents {
		if strings.EqualFold(string(in), label) {
			return in
		}
	}
	return IntentNone
}

// Valid reports whether i is one of Intents (exact match).
func (i Intent) Valid() bool {
	for _, in := range Intents {
		if in == i {
			return true
		}
	}
	return false
}

// Slot names an entity the recognizer can extract.
type Slot string

const (
	SlotUserName        Slot = "UserName"
	SlotModule          Slot = "Module"
	SlotLecturer        Slot = "Lecturer"
	SlotOpinion         Slot = "Opinion"
	SlotEmotion         Slot = "Emotion"
	SlotNumberOfModules Slot = "NumberOfModules"
	SlotExtracurricular Slot = "Extracurricular"
	SlotStage           Slot = "Stage"
)

// Slots lists every slot in a fixed order.
var Slots = []Slot{
	SlotUserName,
	SlotModule,
	SlotLecturer,
	SlotOpinion,
	SlotEmotion,
	SlotNumberOfModules,
	SlotExtracurricular,
	SlotStage,
}

// ParseSlot maps a name to a Slot, case-insensitively.
func ParseSlot(name string) (Slot, bool) {
	name = strings.TrimSpace(name)
	for _, s := range Slots {
		if strings.EqualFold(string(s), name) {
			return s, true
		}
	}
	return "", false
}
