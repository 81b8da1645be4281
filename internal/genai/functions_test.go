package genai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/garyellow/campus-interview-bot/internal/nlu"
)

func TestBuildRecognizeFunction(t *testing.T) {
	t.Parallel()
	fd := BuildRecognizeFunction()

	assert.Equal(t, RecognizeFunctionName, fd.Name)
	require.NotNil(t, fd.Parameters)
	assert.Equal(t, []string{"intent"}, fd.Parameters.Required)

	intent := fd.Parameters.Properties["intent"]
	require.NotNil(t, intent)
	assert.Len(t, intent.Enum, len(nlu.Intents))
	assert.Contains(t, intent.Enum, "endConversation")

	for _, s := range nlu.Slots {
		p := fd.Parameters.Properties[string(s)]
		require.NotNil(t, p, "slot %s", s)
		assert.Equal(t, genai.TypeArray, p.Type)
		assert.NotEmpty(t, p.Description, "slot %s needs a description", s)
	}
}

func TestSchemaToJSON(t *testing.T) {
	t.Parallel()
	js := schemaToJSON(BuildRecognizeFunction().Parameters)

	assert.Equal(t, "object", js["type"])
	props := js["properties"].(map[string]any)
	module := props["Module"].(map[string]any)
	assert.Equal(t, "array", module["type"])
	assert.Equal(t, map[string]any{"type": "string"}, module["items"])
	assert.Equal(t, "string", props["intent"].(map[string]any)["type"])
}

func TestResultFromArgs(t *testing.T) {
	t.Parallel()
	res := resultFromArgs("hi I'm ann", map[string]any{
		"intent":   "Greeting",
		"UserName": []any{"ann", "Ann", 7},
		"Module":   "Databases",
		"Weather":  "sunny",
	})

	assert.Equal(t, nlu.IntentGreeting, res.TopIntent)
	assert.Equal(t, []string{"ann"}, res.Entities[nlu.SlotUserName])
	assert.Equal(t, "Databases", res.Entities.First(nlu.SlotModule))
	assert.Len(t, res.Entities, 2)
	assert.Equal(t, "hi I'm ann", res.Text)

	unknown := resultFromArgs("x", map[string]any{"intent": "bookFlight"})
	assert.Equal(t, nlu.IntentNone, unknown.TopIntent)
}

func TestParseGeminiResponse(t *testing.T) {
	t.Parallel()

	ok := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "thinking"},
			{FunctionCall: &genai.FunctionCall{
				Name: RecognizeFunctionName,
				Args: map[string]any{"intent": "discussLecturer", "Lecturer": []any{"Dr Smith"}},
			}},
		}},
	}}}
	res, err := parseGeminiResponse("Dr Smith", ok)
	require.NoError(t, err)
	assert.Equal(t, nlu.IntentDiscussLecturer, res.TopIntent)
	assert.Equal(t, "Dr Smith", res.Entities.First(nlu.SlotLecturer))

	_, err = parseGeminiResponse("x", &genai.GenerateContentResponse{})
	assert.Error(t, err)

	noCall := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: "hello"}}},
	}}}
	_, err = parseGeminiResponse("x", noCall)
	assert.Error(t, err)

	wrongFn := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{Name: "other"}}}},
	}}}
	_, err = parseGeminiResponse("x", wrongFn)
	assert.Error(t, err)
}
