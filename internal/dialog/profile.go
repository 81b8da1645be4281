package dialog

import (
	"github.com/garyellow/campus-interview-bot/internal/nlu"
	"github.com/garyellow/campus-interview-bot/internal/sliceutil"
	"github.com/garyellow/campus-interview-bot/internal/stringutil"
)

// Profile is what the interview has learned about the user so far.
// Every field is optional. Topics pass it to each other by value.
type Profile struct {
	Name            string   `json:"name,omitempty"`
	Module          string   `json:"module,omitempty"`
	Lecturer        string   `json:"lecturer,omitempty"`
	Opinion         string   `json:"opinion,omitempty"`
	Emotion         string   `json:"emotion,omitempty"`
	NumberOfModules string   `json:"number_of_modules,omitempty"`
	Extracurricular string   `json:"extracurricular,omitempty"`
	Stage           string   `json:"stage,omitempty"`
	ModulesTaken    []string `json:"modules_taken,omitempty"`
}

// Get returns the field backing slot.
func (p *Profile) Get(slot nlu.Slot) string {
	if f := p.field(slot); f != nil {
		return *f
	}
	return ""
}

// Set stores value in the field backing slot. Blank values are ignored.
// Names are capitalized and every module is also added to ModulesTaken.
func (p *Profile) Set(slot nlu.Slot, value string) {
	value = stringutil.CollapseSpace(value)
	if value == "" {
		return
	}
	f := p.field(slot)
	if f == nil {
		return
	}
	switch slot {
	case nlu.SlotUserName:
		value = stringutil.CapitalizeFirst(value)
	case nlu.SlotModule:
		p.ModulesTaken = sliceutil.CompactStrings(append(p.ModulesTaken, value))
	}
	*f = value
}

// Merge copies the entities of a turn into the profile. A slot present in e
// overwrites the field; an absent slot leaves it unchanged.
func (p *Profile) Merge(e nlu.Entities) {
	for _, slot := range nlu.Slots {
		values := e[slot]
		if len(values) == 0 {
			continue
		}
		p.Set(slot, values[0])
		if slot == nlu.SlotModule {
			p.ModulesTaken = sliceutil.CompactStrings(append(p.ModulesTaken, values...))
		}
	}
}

// Clone returns a deep copy.
func (p *Profile) Clone() Profile {
	c := *p
	c.ModulesTaken = append([]string(nil), p.ModulesTaken...)
	return c
}

func (p *Profile) field(slot nlu.Slot) *string {
	switch slot {
	case nlu.SlotUserName:
		return &p.Name
	case nlu.SlotModule:
		return &p.Module
	case nlu.SlotLecturer:
		return &p.Lecturer
	case nlu.SlotOpinion:
		return &p.Opinion
	case nlu.SlotEmotion:
		return &p.Emotion
	case nlu.SlotNumberOfModules:
		return &p.NumberOfModules
	case nlu.SlotExtracurricular:
		return &p.Extracurricular
	case nlu.SlotStage:
		return &p.Stage
	default:
		return nil
	}
}
