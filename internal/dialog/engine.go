// Package dialog runs the interview: a set of topic dialogs driven by one
// script table, with intent routing, bounded re-prompts and a two-turn
// confirmation before the conversation ends.
package dialog

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/garyellow/campus-interview-bot/internal/logger"
	"github.com/garyellow/campus-interview-bot/internal/metrics"
	"github.com/garyellow/campus-interview-bot/internal/nlu"
	"github.com/garyellow/campus-interview-bot/internal/stringutil"
	"github.com/garyellow/campus-interview-bot/internal/yesno"
)

// DefaultMaxRetries bounds consecutive re-prompts of one step.
const DefaultMaxRetries = 3

// maxFreeTextRunes bounds what a free-text answer stores in the profile.
const maxFreeTextRunes = 120

// End reasons recorded on the state and in metrics.
const (
	EndConfirmed = "confirmed"
	EndCompleted = "completed"
	EndCancelled = "cancelled"
	EndExpired   = "expired"
)

// Config tunes an Engine.
type Config struct {
	MaxRetries int
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
}

// Engine advances conversations one turn at a time. It holds no
// per-conversation data and is safe for concurrent use.
type Engine struct {
	scripts    *Scripts
	recognizer nlu.Recognizer
	maxRetries int
	metrics    *metrics.Metrics
	logger     *logger.Logger
	now        func() time.Time
}

// NewEngine creates an engine. recognizer may be nil, which behaves like an
// unconfigured recognizer.
func NewEngine(scripts *Scripts, recognizer nlu.Recognizer, cfg Config) *Engine {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewWithWriter("error", io.Discard)
	}
	return &Engine{
		scripts:    scripts,
		recognizer: recognizer,
		maxRetries: cfg.MaxRetries,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.WithModule("dialog"),
		now:        time.Now,
	}
}

// Scripts returns the script table the engine runs.
func (e *Engine) Scripts() *Scripts {
	return e.scripts
}

// turn is the working set of one call.
type turn struct {
	ctx   context.Context
	st    *State
	text  string
	reply Reply
	err   error
}

// Begin starts a conversation on the named topic. opts seeds the profile.
func (e *Engine) Begin(ctx context.Context, topic string, opts *Profile) (Reply, State, error) {
	d, err := e.scripts.Topic(topic)
	if err != nil {
		return Reply{}, State{}, err
	}
	st := d.Begin(opts)
	st.StartedAt = e.now()
	st.UpdatedAt = st.StartedAt

	t := &turn{ctx: ctx, st: &st}
	e.emit(t)
	if t.err != nil {
		return Reply{}, State{}, t.err
	}
	return t.reply, st, nil
}

// Step processes one user message against st and returns the reply and the
// next state. st is not modified.
//
// A conversation that has not started, or has ended, is (re)started without
// consuming the message: a new one opens the start topic, an ended one
// returns to the home topic and keeps the profile.
func (e *Engine) Step(ctx context.Context, st State, text string) (Reply, State, error) {
	now := e.now()
	st.Profile = st.Profile.Clone()
	t := &turn{ctx: ctx, st: &st, text: stringutil.CollapseSpace(text)}

	switch {
	case !st.Started():
		st = State{Topic: e.scripts.Start, Phase: PhaseAsking, StartedAt: now}
		e.metrics.RecordTransition("new", e.scripts.Start)
		e.emit(t)
	case st.Done():
		st = State{
			Topic:     e.scripts.Home,
			Phase:     PhaseAsking,
			Profile:   st.Profile,
			StartedAt: now,
		}
		e.metrics.RecordTransition(TargetDone, e.scripts.Home)
		e.emit(t)
	default:
		e.handle(t)
	}

	st.UpdatedAt = now
	if t.err != nil {
		return Reply{}, st, t.err
	}
	return t.reply, st, nil
}

// Result returns the profile of an ended conversation, or nil while it is
// still running.
func (e *Engine) Result(st State) *Profile {
	if !st.Done() || st.EndReason == EndCancelled {
		return nil
	}
	p := st.Profile.Clone()
	return &p
}

// Cancel ends the conversation without a farewell. It always returns nil:
// a cancelled conversation has no result.
func (e *Engine) Cancel(st *State) *Profile {
	if st.Started() && !st.Done() {
		e.metrics.RecordConversationEnded(EndCancelled)
	}
	st.Phase = PhaseDone
	st.EndReason = EndCancelled
	st.Retries = 0
	st.ResumeTopic, st.ResumeStep = "", 0
	st.UpdatedAt = e.now()
	return nil
}

func (e *Engine) handle(t *turn) {
	st := t.st
	d, step, ok := e.cursor(st)
	if !ok {
		e.logger.WarnContext(t.ctx, "Conversation points at a missing step, restarting",
			"topic", st.Topic, "step", st.Step)
		e.metrics.RecordTransition(st.Topic, e.scripts.Home)
		e.enterTopic(t, e.scripts.Home)
		return
	}
	// Without a recognizer no answer can be understood, so the conversation
	// stays where it is.
	if e.recognizer == nil || !e.recognizer.IsConfigured() {
		t.reply.add(e.scripts.NotConfigured)
		e.emit(t)
		return
	}
	st.Turns++

	res := e.recognize(t)

	if st.Phase == PhaseConfirming {
		e.handleConfirm(t, d, step, res)
		return
	}
	if res.TopIntent == nlu.IntentEndConversation {
		e.beginEnd(t, st.Topic, st.Step)
		return
	}

	st.Profile.Merge(res.Entities)
	switch step.Kind {
	case KindAsk:
		e.handleAsk(t, d, step, res)
	case KindConfirm:
		e.handleConfirm(t, d, step, res)
	case KindRoute:
		e.handleRoute(t, d, step, res)
	default:
		e.advance(t)
	}
}

// recognize returns the turn's intent and entities. Failures count as none.
func (e *Engine) recognize(t *turn) *nlu.Result {
	res, err := e.recognizer.Recognize(t.ctx, t.text)
	if err == nil && res == nil {
		err = errors.New("recognizer returned no result")
	}
	if err != nil {
		e.logger.WithError(err).WarnContext(t.ctx, "Recognition failed, treating turn as none",
			"topic", t.st.Topic)
		res = nlu.NoneResult(t.text)
	}
	if !res.TopIntent.Valid() {
		res.TopIntent = nlu.ParseIntent(string(res.TopIntent))
	}
	if res.Entities == nil {
		res.Entities = nlu.Entities{}
	}
	e.metrics.RecordIntent(string(res.TopIntent))
	return res
}

func (e *Engine) handleAsk(t *turn, d *TopicDialog, step *Step, res *nlu.Result) {
	p := &t.st.Profile
	// A free-text answer replaces what an earlier visit or a seeded profile left in the slot.
	if step.Capture != "" && step.FreeText && res.TopIntent == nlu.IntentNone && !res.Entities.Has(step.Capture) {
		p.Set(step.Capture, stringutil.TruncateRunes(t.text, maxFreeTextRunes))
	}
	if step.Required && step.Capture != "" && p.Get(step.Capture) == "" && res.TopIntent == nlu.IntentNone {
		if e.reprompt(t, d, d.reprompt(), "missing_"+strings.ToLower(string(step.Capture))) {
			return
		}
	}
	e.advance(t)
}

func (e *Engine) handleConfirm(t *turn, d *TopicDialog, step *Step, res *nlu.Result) {
	st := t.st
	confirming := st.Phase == PhaseConfirming

	answer := yesno.Classify(t.text)
	if confirming && answer == yesno.Unknown && res.TopIntent == nlu.IntentEndConversation {
		answer = yesno.Affirmative
	}
	e.metrics.RecordYesNo(answer.String())

	switch answer {
	case yesno.Affirmative:
		if step.Capture != "" {
			st.Profile.Set(step.Capture, "yes")
		}
		t.reply.add(step.YesReply)
		e.follow(t, step.OnYes)
	case yesno.Negative:
		if step.Capture != "" {
			st.Profile.Set(step.Capture, "no")
		}
		t.reply.add(step.NoReply)
		e.follow(t, step.OnNo)
	default:
		if e.reprompt(t, d, d.askRetry(), "yesno_"+answer.String()) {
			return
		}
		switch {
		case confirming:
			// Never end a conversation on an answer that was not understood.
			t.reply.add(step.NoReply)
			e.resume(t)
		case !step.Branching():
			e.advance(t)
		default:
			t.reply.add(e.scripts.Fallback)
			e.goTo(t, e.scripts.Home)
		}
	}
}

func (e *Engine) handleRoute(t *turn, d *TopicDialog, step *Step, res *nlu.Result) {
	target := e.scripts.RoutesFor(step).Target(res.TopIntent)
	if target != "" {
		e.goTo(t, target)
		return
	}
	if e.reprompt(t, d, d.reprompt(), "intent_"+string(res.TopIntent)) {
		return
	}
	t.reply.add(e.scripts.Fallback)
	e.goTo(t, e.scripts.Home)
}

// reprompt asks the current step again after text. It returns false without
// replying when the retry bound is reached; the caller then leaves the step.
func (e *Engine) reprompt(t *turn, d *TopicDialog, text, reason string) bool {
	st := t.st
	if st.Retries+1 >= e.maxRetries {
		st.Retries = 0
		e.metrics.RecordRetriesExhausted(d.Name())
		e.logger.DebugContext(t.ctx, "Retries exhausted", "topic", d.Name(), "step", st.Step, "reason", reason)
		return false
	}
	st.Retries++
	e.metrics.RecordReprompt(d.Name(), reason)
	t.reply.add(text)
	e.emit(t)
	return true
}

// follow moves to target, or to the next step when target is empty.
func (e *Engine) follow(t *turn, target string) {
	if target == "" {
		e.advance(t)
		return
	}
	e.goTo(t, target)
}

func (e *Engine) advance(t *turn) {
	st := t.st
	d, step, ok := e.cursor(st)
	if !ok {
		e.goTo(t, e.scripts.Home)
		return
	}
	st.Retries = 0
	switch {
	case step.Next != "":
		e.goTo(t, step.Next)
	case st.Step+1 < len(d.Steps()):
		st.Step++
		e.emit(t)
	default:
		e.goTo(t, e.scripts.Home)
	}
}

func (e *Engine) goTo(t *turn, target string) {
	switch target {
	case TargetDone:
		e.finish(t)
	case TargetResume:
		e.resume(t)
	case e.scripts.End:
		e.beginEnd(t, e.scripts.Home, 0)
	default:
		e.metrics.RecordTransition(t.st.Topic, target)
		e.enterTopic(t, target)
	}
}

func (e *Engine) enterTopic(t *turn, name string) {
	st := t.st
	st.Topic, st.Step, st.Retries, st.Phase = name, 0, 0, PhaseAsking
	st.ResumeTopic, st.ResumeStep = "", 0
	e.emit(t)
}

// beginEnd asks for confirmation before ending and remembers where to pick up
// if the user declines.
func (e *Engine) beginEnd(t *turn, resumeTopic string, resumeStep int) {
	st := t.st
	e.metrics.RecordTransition(st.Topic, e.scripts.End)
	st.ResumeTopic, st.ResumeStep = resumeTopic, resumeStep
	st.Topic, st.Step, st.Retries, st.Phase = e.scripts.End, 0, 0, PhaseConfirming
	e.emit(t)
}

func (e *Engine) resume(t *turn) {
	st := t.st
	topic, step := st.ResumeTopic, st.ResumeStep
	if d := e.scripts.topic(topic); d == nil || step < 0 || step >= len(d.Steps) {
		topic, step = e.scripts.Home, 0
	}
	e.metrics.RecordTransition(st.Topic, topic)
	st.Topic, st.Step, st.Retries, st.Phase = topic, step, 0, PhaseAsking
	st.ResumeTopic, st.ResumeStep = "", 0
	e.emit(t)
}

func (e *Engine) finish(t *turn) {
	st := t.st
	reason := EndCompleted
	if st.Phase == PhaseConfirming {
		reason = EndConfirmed
	}
	e.metrics.RecordTransition(st.Topic, TargetDone)
	e.metrics.RecordConversationEnded(reason)

	t.reply.add(e.scripts.Farewell)
	t.reply.QuickReply = QuickReplyNone
	st.Phase, st.EndReason, st.Retries = PhaseDone, reason, 0
	st.ResumeTopic, st.ResumeStep = "", 0
}

// emit renders the current step. Say steps are followed straight away by
// whatever comes after them.
func (e *Engine) emit(t *turn) {
	st := t.st
	_, step, ok := e.cursor(st)
	if !ok {
		t.err = errors.Join(t.err, errors.New("dialog: cursor out of range at "+st.Topic))
		return
	}
	text, err := step.render(st.Profile)
	if err != nil {
		t.err = errors.Join(t.err, err)
		return
	}
	t.reply.add(text)

	switch step.Kind {
	case KindSay:
		e.advance(t)
	case KindConfirm:
		t.reply.QuickReply = QuickReplyYesNo
	default:
		t.reply.QuickReply = QuickReplyNone
	}
}

func (e *Engine) cursor(st *State) (*TopicDialog, *Step, bool) {
	topic := e.scripts.topic(st.Topic)
	if topic == nil || st.Step < 0 || st.Step >= len(topic.Steps) {
		return nil, nil, false
	}
	return &TopicDialog{topic: topic, scripts: e.scripts}, topic.Steps[st.Step], true
}
