package nlu

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/garyellow/campus-interview-bot/internal/errors"
)

func TestParseIntent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		label string
		want  Intent
	}{
		{"greeting", IntentGreeting},
		{"DiscussModule", IntentDiscussModule},
		{" endConversation ", IntentEndConversation},
		{"none", IntentNone},
		{"weather", IntentNone},
		{"", IntentNone},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseIntent(tt.label))
		})
	}
}

func TestIntentValid(t *testing.T) {
	t.Parallel()
	for _, in := range Intents {
		assert.True(t, in.Valid(), in)
	}
	assert.False(t, Intent("Greeting").Valid())
	assert.False(t, Intent("weather").Valid())
}

func TestParseSlot(t *testing.T) {
	t.Parallel()
	s, ok := ParseSlot("numberofmodules")
	assert.True(t, ok)
	assert.Equal(t, SlotNumberOfModules, s)

	_, ok = ParseSlot("Weather")
	assert.False(t, ok)
	assert.Len(t, Slots, 8)
}

func TestEntities(t *testing.T) {
	t.Parallel()
	e := Entities{}
	e.Add(SlotModule, "Databases", " databases ", "", "Networks")
	e.Add(SlotModule, "NETWORKS")
	e.Add(SlotOpinion, "  ")

	assert.Equal(t, []string{"Databases", "Networks"}, e[SlotModule])
	assert.Equal(t, "Databases", e.First(SlotModule))
	assert.Equal(t, "", e.First(SlotLecturer))
	assert.False(t, e.Has(SlotOpinion), "blank values must not create a slot")
}

func TestTokenize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"campus"}, Tokenize("I'd like to talk about the Campus!"))
	assert.Equal(t, []string{"that's", "all"}, Tokenize("That's all"))
	assert.Empty(t, Tokenize("   "))
}

func TestLexicalRecognizer_Intents(t *testing.T) {
	t.Parallel()
	r := NewLexicalRecognizer(true)
	require.True(t, r.IsConfigured())

	tests := []struct {
		text string
		want Intent
	}{
		{"hello", IntentGreeting},
		{"Let's talk about my modules", IntentDiscussModule},
		{"What about the lecturers?", IntentDiscussLecturer},
		{"the campus", IntentDiscussCampus},
		{"clubs and societies", IntentDiscussExtracurricular},
		{"the covid lockdown", IntentDiscussFeeling},
		{"goodbye", IntentEndConversation},
		{"purple elephant", IntentNone},
		{"", IntentNone},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			res, err := r.Recognize(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.TopIntent)
			assert.Equal(t, LexicalName, res.Provider)
			assert.Equal(t, tt.text, res.Text)
			if tt.want == IntentNone {
				assert.Zero(t, res.Score)
			} else {
				assert.Greater(t, res.Score, 0.0)
				assert.LessOrEqual(t, res.Score, 1.0)
			}
		})
	}
}

func TestLexicalRecognizer_Slots(t *testing.T) {
	t.Parallel()
	r := NewLexicalRecognizer(true)

	tests := []struct {
		text string
		slot Slot
		want string
	}{
		{"my name is aoife", SlotUserName, "aoife"},
		{"Hi, I'm Ciaran", SlotUserName, "Ciaran"},
		{"I am doing 6 modules", SlotNumberOfModules, "6"},
		{"six", SlotNumberOfModules, "six"},
		{"just five this semester", SlotNumberOfModules, "five"},
		{"I'm taking 4 subjects", SlotNumberOfModules, "4"},
		{"My favourite is COMP30220", SlotModule, "COMP30220"},
		{"Dr Smith teaches it", SlotLecturer, "Dr Smith"},
		{"it was really interesting", SlotOpinion, "interesting"},
		{"I feel stressed", SlotEmotion, "stressed"},
		{"I play rugby", SlotExtracurricular, "rugby"},
		{"I'm in third year", SlotStage, "third year"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			res, err := r.Recognize(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Entities.First(tt.slot))
		})
	}

	res, err := r.Recognize(context.Background(), "I'm happy")
	require.NoError(t, err)
	assert.False(t, res.Entities.Has(SlotUserName), "lower-case word after I'm is not a name")

	for _, text := range []string{"it's 60 percent", "I have 2 exams and a project", "room 12 in the library"} {
		res, err := r.Recognize(context.Background(), text)
		require.NoError(t, err)
		assert.False(t, res.Entities.Has(SlotNumberOfModules), "%q is not a module count", text)
	}
}

func TestLexicalRecognizer_CanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLexicalRecognizer(true).Recognize(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)
}

type stubRecognizer struct {
	name       string
	configured bool
	result     *Result
	err        error
	calls      int
}

func (s *stubRecognizer) IsConfigured() bool { return s.configured }
func (s *stubRecognizer) Name() string       { return s.name }
func (s *stubRecognizer) Recognize(_ context.Context, text string) (*Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	r := *s.result
	r.Text = text
	return &r, nil
}

func TestChain(t *testing.T) {
	t.Parallel()

	t.Run("first configured member wins", func(t *testing.T) {
		t.Parallel()
		off := &stubRecognizer{name: "off"}
		primary := &stubRecognizer{name: "gemini", configured: true, result: &Result{TopIntent: IntentDiscussCampus}}
		c := NewChain(nil, nil, off, primary, nil)

		require.True(t, c.IsConfigured())
		res, err := c.Recognize(context.Background(), "campus")
		require.NoError(t, err)
		assert.Equal(t, IntentDiscussCampus, res.TopIntent)
		assert.Equal(t, "gemini", res.Provider)
		assert.Zero(t, off.calls)
	})

	t.Run("falls through on error", func(t *testing.T) {
		t.Parallel()
		failing := &stubRecognizer{name: "gemini", configured: true, err: errors.New("quota")}
		local := NewLexicalRecognizer(true)
		c := NewChain(nil, nil, failing, local)

		res, err := c.Recognize(context.Background(), "goodbye")
		require.NoError(t, err)
		assert.Equal(t, IntentEndConversation, res.TopIntent)
		assert.Equal(t, LexicalName, res.Provider)
		assert.Equal(t, 1, failing.calls)
	})

	t.Run("all failing", func(t *testing.T) {
		t.Parallel()
		c := NewChain(nil, nil,
			&stubRecognizer{name: "a", configured: true, err: errors.New("boom")},
			&stubRecognizer{name: "b", configured: true, err: errors.New("bang")},
		)
		_, err := c.Recognize(context.Background(), "hi")
		require.Error(t, err)
		assert.ErrorIs(t, err, domerrors.ErrRecognizerUnavailable)
		assert.Contains(t, err.Error(), "bang")
	})

	t.Run("nothing configured", func(t *testing.T) {
		t.Parallel()
		c := NewChain(nil, nil, NewLexicalRecognizer(false))
		assert.False(t, c.IsConfigured())
		_, err := c.Recognize(context.Background(), "hi")
		assert.ErrorIs(t, err, domerrors.ErrRecognizerUnavailable)
	})
}
