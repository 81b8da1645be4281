package genai

import (
	"strings"

	"google.golang.org/genai"

	"github.com/garyellow/campus-interview-bot/internal/nlu"
)

// RecognizeFunctionName is the only function the model may call.
const RecognizeFunctionName = "recognize_turn"

// slotDescriptions documents what each slot holds.
var slotDescriptions = map[nlu.Slot]string{
	nlu.SlotUserName:        "The student's first name, if they state it.",
	nlu.SlotModule:          "University modules or courses mentioned, e.g. \"Databases\", \"COMP30220\".",
	nlu.SlotLecturer:        "Lecturers named, e.g. \"Dr Smith\".",
	nlu.SlotOpinion:         "The student's opinion words, e.g. \"interesting\", \"boring\".",
	nlu.SlotEmotion:         "Feelings the student expresses, e.g. \"stressed\", \"happy\".",
	nlu.SlotNumberOfModules: "How many modules the student takes, as written (\"6\" or \"six\").",
	nlu.SlotExtracurricular: "Activities, clubs or sports outside class.",
	nlu.SlotStage:           "Year or stage of study, e.g. \"third year\".",
}

// BuildRecognizeFunction returns the declaration of recognize_turn.
// The intent parameter is an enum of every nlu.Intent; every slot is an optional list of strings.
func BuildRecognizeFunction() *genai.FunctionDeclaration {
	intents := make([]string, len(nlu.Intents))
	for i, in := range nlu.Intents {
		intents[i] = string(in)
	}

	props := map[string]*genai.Schema{
		"intent": {
			Type:        genai.TypeString,
			Enum:        intents,
			Description: "The single best intent of the message. Use none when no other intent fits.",
		},
	}
	for _, s := range nlu.Slots {
		props[string(s)] = &genai.Schema{
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: slotDescriptions[s],
		}
	}

	return &genai.FunctionDeclaration{
		Name:        RecognizeFunctionName,
		Description: "Report the intent and entities of one message from a student being interviewed about university life.",
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: props,
			Required:   []string{"intent"},
		},
	}
}

// schemaToJSON converts a genai schema to JSON Schema. genai uses upper-case
// type names ("STRING"); JSON Schema needs lower case.
func schemaToJSON(s *genai.Schema) map[string]any {
	out := map[string]any{"type": strings.ToLower(string(s.Type))}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Items != nil {
		out["items"] = schemaToJSON(s.Items)
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = schemaToJSON(p)
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}

// resultFromArgs builds an nlu.Result from recognize_turn arguments.
// Slot values may arrive as a list or, from less strict models, as a single string.
func resultFromArgs(text string, args map[string]any) *nlu.Result {
	res := &nlu.Result{
		Text:      text,
		TopIntent: nlu.IntentNone,
		Entities:  nlu.Entities{},
	}
	if label, ok := args["intent"].(string); ok {
		res.TopIntent = nlu.ParseIntent(label)
	}
	for key, raw := range args {
		slot, ok := nlu.ParseSlot(key)
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case string:
			res.Entities.Add(slot, v)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					res.Entities.Add(slot, s)
				}
			}
		case []string:
			res.Entities.Add(slot, v...)
		}
	}
	return res
}
