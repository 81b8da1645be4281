package dialog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	domerrors "github.com/garyellow/campus-interview-bot/internal/errors"
	"github.com/garyellow/campus-interview-bot/internal/nlu"
)

//go:embed scripts.yaml
var defaultScripts []byte

// StepKind selects how a step handles the user's reply.
type StepKind string

const (
	// KindAsk accepts any reply and moves on.
	KindAsk StepKind = "ask"
	// KindConfirm branches on a yes/no answer.
	KindConfirm StepKind = "confirm"
	// KindRoute moves to the topic the recognized intent maps to.
	KindRoute StepKind = "route"
	// KindSay is sent without waiting for a reply.
	KindSay StepKind = "say"
)

// Special transition targets.
const (
	TargetDone   = "done"
	TargetResume = "resume"
)

// Step is one prompt of a topic.
type Step struct {
	ID             string   `yaml:"id"`
	Kind           StepKind `yaml:"kind"`
	Prompt         string   `yaml:"prompt"`
	FallbackPrompt string   `yaml:"fallback_prompt"`
	Needs          nlu.Slot `yaml:"needs"`
	Capture        nlu.Slot `yaml:"capture"`
	Required       bool     `yaml:"required"`
	FreeText       bool     `yaml:"free_text"`
	OnYes          string   `yaml:"on_yes"`
	OnNo           string   `yaml:"on_no"`
	YesReply       string   `yaml:"yes_reply"`
	NoReply        string   `yaml:"no_reply"`
	Routes         Routes   `yaml:"routes"`
	Next           string   `yaml:"next"`

	prompt   *template.Template
	fallback *template.Template
}

// Branching reports whether a confirm step leads to different places on yes and no.
func (s *Step) Branching() bool {
	return s.OnYes != "" || s.OnNo != ""
}

// Topic is a named sequence of steps.
type Topic struct {
	Name     string  `yaml:"name"`
	Reprompt string  `yaml:"reprompt"`
	AskRetry string  `yaml:"ask_retry"`
	Steps    []*Step `yaml:"steps"`
}

// Scripts is the validated script table.
type Scripts struct {
	Start         string   `yaml:"start"`
	Home          string   `yaml:"home"`
	End           string   `yaml:"end"`
	Fallback      string   `yaml:"fallback"`
	Farewell      string   `yaml:"farewell"`
	NotConfigured string   `yaml:"not_configured"`
	Routes        Routes   `yaml:"routes"`
	Topics        []*Topic `yaml:"topics"`

	byName map[string]*Topic
}

// DefaultScripts parses the embedded script table.
func DefaultScripts() (*Scripts, error) {
	return ParseScripts(defaultScripts)
}

// MustDefaultScripts is DefaultScripts for callers that cannot continue without it.
func MustDefaultScripts() *Scripts {
	s, err := DefaultScripts()
	if err != nil {
		panic(err)
	}
	return s
}

// LoadScripts reads a script table from a file.
func LoadScripts(path string) (*Scripts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scripts: %w", err)
	}
	return ParseScripts(data)
}

// ParseScripts decodes and validates a YAML script table.
// Unknown fields are rejected.
func ParseScripts(data []byte) (*Scripts, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scripts
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", domerrors.ErrInvalidScript)
		}
		return nil, fmt.Errorf("%w: %w", domerrors.ErrInvalidScript, err)
	}
	if err := s.compile(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Topic returns the named topic dialog.
func (s *Scripts) Topic(name string) (*TopicDialog, error) {
	t, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domerrors.ErrUnknownTopic, name)
	}
	return &TopicDialog{topic: t, scripts: s}, nil
}

// TopicNames lists the topics in table order.
func (s *Scripts) TopicNames() []string {
	names := make([]string, 0, len(s.Topics))
	for _, t := range s.Topics {
		names = append(names, t.Name)
	}
	return names
}

// RoutesFor returns the routing table of step: the global table with the
// step's overrides applied.
func (s *Scripts) RoutesFor(step *Step) Routes {
	return s.Routes.With(step.Routes)
}

func (s *Scripts) topic(name string) *Topic {
	return s.byName[name]
}

func (s *Scripts) compile() error {
	var errs []error

	if len(s.Topics) == 0 {
		return fmt.Errorf("%w: no topics", domerrors.ErrInvalidScript)
	}

	s.byName = make(map[string]*Topic, len(s.Topics))
	for _, t := range s.Topics {
		if t.Name == "" || t.Name == TargetDone || t.Name == TargetResume {
			errs = append(errs, domerrors.NewScriptError(t.Name, "", errors.New("invalid topic name")))
			continue
		}
		if _, dup := s.byName[t.Name]; dup {
			errs = append(errs, domerrors.NewScriptError(t.Name, "", errors.New("duplicate topic")))
			continue
		}
		s.byName[t.Name] = t
	}

	for _, name := range []struct{ field, value string }{
		{"start", s.Start}, {"home", s.Home}, {"end", s.End},
	} {
		if _, ok := s.byName[name.value]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s topic %q does not exist", domerrors.ErrInvalidScript, name.field, name.value))
		}
	}
	if s.Fallback == "" || s.Farewell == "" {
		errs = append(errs, fmt.Errorf("%w: fallback and farewell texts are required", domerrors.ErrInvalidScript))
	}
	if err := s.Routes.Validate(s.hasTopic); err != nil {
		errs = append(errs, fmt.Errorf("%w: routes: %w", domerrors.ErrInvalidScript, err))
	}

	for _, t := range s.Topics {
		errs = append(errs, s.compileTopic(t)...)
	}
	if end := s.byName[s.End]; end != nil {
		if len(end.Steps) != 1 || end.Steps[0].Kind != KindConfirm {
			errs = append(errs, domerrors.NewScriptError(end.Name, "", errors.New("end topic must be a single confirm step")))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	return s.checkSayChains()
}

func (s *Scripts) compileTopic(t *Topic) []error {
	var errs []error
	fail := func(step *Step, format string, args ...any) {
		id := ""
		if step != nil {
			id = step.ID
		}
		errs = append(errs, domerrors.NewScriptError(t.Name, id, fmt.Errorf(format, args...)))
	}

	if len(t.Steps) == 0 {
		fail(nil, "no steps")
		return errs
	}

	for i, step := range t.Steps {
		last := i == len(t.Steps)-1
		if step.ID == "" {
			step.ID = fmt.Sprintf("step%d", i+1)
		}
		if strings.TrimSpace(step.Prompt) == "" {
			fail(step, "empty prompt")
		}
		for _, slot := range []*nlu.Slot{&step.Capture, &step.Needs} {
			if *slot == "" {
				continue
			}
			canonical, ok := nlu.ParseSlot(string(*slot))
			if !ok {
				fail(step, "unknown slot %q", *slot)
				continue
			}
			*slot = canonical
		}
		if step.Needs != "" && step.FallbackPrompt == "" {
			fail(step, "needs %s without fallback_prompt", step.Needs)
		}
		if step.Next != "" && !s.validTarget(step.Next) {
			fail(step, "unknown next target %q", step.Next)
		}

		switch step.Kind {
		case KindAsk, KindSay:
			if last && step.Next == "" {
				fail(step, "last step needs a next target")
			}
		case KindConfirm:
			for _, target := range []string{step.OnYes, step.OnNo} {
				if target == "" {
					if last && step.Next == "" {
						fail(step, "confirm branch falls off the end of the topic")
					}
					continue
				}
				if !s.validTarget(target) {
					fail(step, "unknown transition target %q", target)
				}
			}
		case KindRoute:
			for intent, target := range step.Routes {
				if !intent.Valid() {
					fail(step, "unknown intent %q", intent)
				}
				if target != "" && !s.hasTopic(target) {
					fail(step, "route %s: unknown topic %q", intent, target)
				}
			}
		default:
			fail(step, "unknown kind %q", step.Kind)
		}

		var err error
		if step.prompt, err = template.New(step.ID).Parse(step.Prompt); err != nil {
			fail(step, "prompt: %w", err)
			continue
		}
		if step.FallbackPrompt != "" {
			if step.fallback, err = template.New(step.ID + "_fallback").Parse(step.FallbackPrompt); err != nil {
				fail(step, "fallback_prompt: %w", err)
				continue
			}
		}
		// Catches references to fields the Profile does not have.
		if _, err := step.render(Profile{}); err != nil {
			fail(step, "%w", err)
		}
		if _, err := step.render(Profile{Name: "x", Module: "x", Lecturer: "x", Opinion: "x", Emotion: "x",
			NumberOfModules: "x", Extracurricular: "x", Stage: "x"}); err != nil {
			fail(step, "%w", err)
		}
	}
	return errs
}

// checkSayChains rejects tables where a run of say steps loops back on itself,
// since say steps never wait for the user.
func (s *Scripts) checkSayChains() error {
	type cursor struct {
		topic string
		step  int
	}
	for _, t := range s.Topics {
		for i := range t.Steps {
			seen := map[cursor]bool{}
			c := cursor{t.Name, i}
			for {
				step := s.byName[c.topic].Steps[c.step]
				if step.Kind != KindSay {
					break
				}
				if seen[c] {
					return domerrors.NewScriptError(t.Name, t.Steps[i].ID, errors.New("say steps form a loop"))
				}
				seen[c] = true
				switch {
				case step.Next == TargetDone || step.Next == TargetResume:
				case step.Next != "":
					c = cursor{step.Next, 0}
					continue
				case c.step+1 < len(s.byName[c.topic].Steps):
					c.step++
					continue
				}
				break
			}
		}
	}
	return nil
}

func (s *Scripts) hasTopic(name string) bool {
	_, ok := s.byName[name]
	return ok
}

func (s *Scripts) validTarget(target string) bool {
	return target == TargetDone || target == TargetResume || s.hasTopic(target)
}

// render executes the step prompt over p, or the fallback prompt while the
// needed slot is empty.
func (s *Step) render(p Profile) (string, error) {
	tmpl := s.prompt
	if s.Needs != "" && s.fallback != nil && p.Get(s.Needs) == "" {
		tmpl = s.fallback
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render %s: %w", s.ID, err)
	}
	return buf.String(), nil
}
