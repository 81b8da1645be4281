package bot

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/campus-interview-bot/internal/config"
	"github.com/garyellow/campus-interview-bot/internal/dialog"
	domerrors "github.com/garyellow/campus-interview-bot/internal/errors"
	"github.com/garyellow/campus-interview-bot/internal/lineutil"
	"github.com/garyellow/campus-interview-bot/internal/metrics"
	"github.com/garyellow/campus-interview-bot/internal/nlu"
	"github.com/garyellow/campus-interview-bot/internal/ratelimit"
	"github.com/garyellow/campus-interview-bot/internal/session"
	"github.com/garyellow/campus-interview-bot/internal/storage"
)

const (
	namePrompt    = "Let's start off with getting to know you, what is your name?"
	confirmPrompt = "Are you sure you want to end our conversation?"
	farewell      = "It was great talking to you! Enjoy the rest of your day!"
)

type fakeRecognizer struct {
	results map[string]*nlu.Result
}

func (f *fakeRecognizer) IsConfigured() bool { return true }

func (f *fakeRecognizer) Recognize(_ context.Context, text string) (*nlu.Result, error) {
	if r, ok := f.results[strings.ToLower(text)]; ok {
		out := *r
		out.Text = text
		return &out, nil
	}
	return nlu.NoneResult(text), nil
}

func newFakeRecognizer() *fakeRecognizer {
	name := nlu.Entities{}
	name.Add(nlu.Slot("UserName"), "ann")
	return &fakeRecognizer{results: map[string]*nlu.Result{
		"hello":   {TopIntent: nlu.IntentGreeting},
		"i'm ann": {TopIntent: nlu.IntentGreeting, Entities: name},
		"bye":     {TopIntent: nlu.IntentEndConversation},
	}}
}

type testEnv struct {
	p     *Processor
	db    *storage.DB
	store session.Store
}

func newTestEnv(t *testing.T, limiter *ratelimit.TurnLimiter) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, err := storage.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := metrics.New(prometheus.NewRegistry())
	store := session.NewSQLiteStore(db, time.Hour, m)
	engine := dialog.NewEngine(dialog.MustDefaultScripts(), newFakeRecognizer(), dialog.Config{Metrics: m})

	p := NewProcessor(ProcessorConfig{
		Engine:   engine,
		Store:    store,
		Recorder: session.NewRecorder(db, db),
		Limiter:  limiter,
		Metrics:  m,
		BotConfig: &config.BotConfig{
			WebhookTimeout:      5 * time.Second,
			MaxMessagesPerReply: 5,
			MaxMessageLength:    2000,
			MaxInputLength:      500,
			TranscriptLimit:     200,
		},
	})
	return &testEnv{p: p, db: db, store: store}
}

func texts(t *testing.T, msgs []messaging_api.MessageInterface) []string {
	t.Helper()
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		tm, ok := m.(*messaging_api.TextMessage)
		require.True(t, ok, "unexpected message type %T", m)
		out = append(out, tm.Text)
	}
	return out
}

func userText(userID, text string) webhook.MessageEvent {
	return webhook.MessageEvent{
		Source:  webhook.UserSource{UserId: userID},
		Message: webhook.TextMessageContent{Text: text},
	}
}

func (e *testEnv) say(t *testing.T, userID, text string) []string {
	t.Helper()
	msgs, err := e.p.ProcessMessage(context.Background(), userText(userID, text))
	require.NoError(t, err)
	return texts(t, msgs)
}

func TestProcessFollow_StartsInterview(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	ctx := context.Background()

	msgs, err := env.p.ProcessFollow(ctx, webhook.FollowEvent{Source: webhook.UserSource{UserId: "U1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{namePrompt}, texts(t, msgs))

	conv, err := env.store.Load(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "UserProfile", conv.State.Topic)
	assert.Equal(t, "U1", conv.UserID)
	require.Len(t, conv.Transcript, 1)
	assert.Equal(t, session.RoleBot, conv.Transcript[0].Role)
}

func TestProcessMessage_InterviewIsRecorded(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	ctx := context.Background()

	assert.Equal(t, []string{namePrompt}, env.say(t, "U1", "hello"))
	assert.Equal(t,
		[]string{"Thanks Ann, it's great to meet you!", "How many modules are you doing?"},
		env.say(t, "U1", "I'm Ann"))

	msgs, err := env.p.ProcessMessage(ctx, userText("U1", "bye"))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{confirmPrompt}, texts(t, msgs))
	assert.NotNil(t, msgs[0].(*messaging_api.TextMessage).QuickReply, "confirmation offers Yes/No")

	msgs, err = env.p.ProcessPostback(ctx, webhook.PostbackEvent{
		Source:   webhook.UserSource{UserId: "U1"},
		Postback: &webhook.PostbackContent{Data: lineutil.AnswerYes.Encode()},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{farewell}, texts(t, msgs))

	conv, err := env.store.Load(ctx, "U1")
	require.NoError(t, err)
	assert.True(t, conv.State.Done())

	total, unarchived, err := env.db.CountTranscripts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, unarchived)

	recs, err := env.db.GetUnarchivedTranscripts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, dialog.EndConfirmed, recs[0].EndReason)
	assert.Equal(t, conv.SessionID, recs[0].SessionID)
	// 4 user turns and 5 bot messages
	var entries []session.Entry
	require.NoError(t, json.Unmarshal(recs[0].Entries, &entries))
	assert.Len(t, entries, 9)

	profile, err := env.db.GetProfile(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", profile.Name)
}

func TestProcessMessage_AfterFarewellStartsNewSession(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.say(t, "U1", "hello")
	env.say(t, "U1", "bye")
	env.say(t, "U1", "yes")
	first, err := env.store.Load(ctx, "U1")
	require.NoError(t, err)
	require.True(t, first.State.Done())

	got := env.say(t, "U1", "hello again")
	assert.Equal(t, []string{"So what would you like to talk about? For example we can talk about extracurricular activities or UCD campus?"}, got)

	second, err := env.store.Load(ctx, "U1")
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, "Main", second.State.Topic)
	assert.Len(t, second.Transcript, 2)
}

func TestProcessFollow_SeedsReturningUser(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.db.SaveProfile(ctx, &storage.ProfileRecord{UserID: "U9", Name: "Bea", Module: "Networks"}))

	_, err := env.p.ProcessFollow(ctx, webhook.FollowEvent{Source: webhook.UserSource{UserId: "U9"}})
	require.NoError(t, err)

	conv, err := env.store.Load(ctx, "U9")
	require.NoError(t, err)
	assert.Equal(t, "Bea", conv.State.Profile.Name)
	assert.Equal(t, "Networks", conv.State.Profile.Module)
}

func TestProcessUnfollow_RecordsCancelledConversation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.say(t, "U1", "hello")
	require.NoError(t, env.p.ProcessUnfollow(ctx, webhook.UnfollowEvent{Source: webhook.UserSource{UserId: "U1"}}))

	_, err := env.store.Load(ctx, "U1")
	require.ErrorIs(t, err, domerrors.ErrNotFound)

	recs, err := env.db.GetUnarchivedTranscripts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, dialog.EndCancelled, recs[0].EndReason)

	// Nothing left to cancel.
	require.NoError(t, env.p.ProcessUnfollow(ctx, webhook.UnfollowEvent{Source: webhook.UserSource{UserId: "U1"}}))
}

func TestProcessMessage_Groups(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	ctx := context.Background()
	group := webhook.GroupSource{GroupId: "G1", UserId: "U1"}

	msgs, err := env.p.ProcessMessage(ctx, webhook.MessageEvent{
		Source:  group,
		Message: webhook.TextMessageContent{Text: "hello everyone"},
	})
	require.NoError(t, err)
	assert.Empty(t, msgs, "groups need a mention")

	msgs, err = env.p.ProcessMessage(ctx, webhook.MessageEvent{
		Source:  group,
		Message: webhook.StickerMessageContent{},
	})
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = env.p.ProcessMessage(ctx, webhook.MessageEvent{
		Source: group,
		Message: webhook.TextMessageContent{
			Text: "@Bot hello",
			Mention: &webhook.Mention{Mentionees: []webhook.MentioneeInterface{
				webhook.UserMentionee{Index: 0, Length: 4, IsSelf: true},
			}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{namePrompt}, texts(t, msgs))

	conv, err := env.store.Load(ctx, "G1")
	require.NoError(t, err)
	require.NotEmpty(t, conv.Transcript)
	assert.Equal(t, "hello", conv.Transcript[0].Text)
}

func TestProcessMessage_RejectsUnusableInput(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	ctx := context.Background()

	msgs, err := env.p.ProcessMessage(ctx, webhook.MessageEvent{
		Source:  webhook.UserSource{UserId: "U1"},
		Message: webhook.StickerMessageContent{},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{textOnlyText}, texts(t, msgs))

	assert.Equal(t, []string{tooLongText}, env.say(t, "U1", strings.Repeat("a", 2001)))
	assert.Empty(t, env.say(t, "U1", " \t\u200b "))

	_, err = env.store.Load(ctx, "U1")
	assert.ErrorIs(t, err, domerrors.ErrNotFound, "rejected input must not open a conversation")
}

func TestProcessMessage_RateLimited(t *testing.T) {
	t.Parallel()
	limiter := ratelimit.NewTurnLimiter(ratelimit.TurnConfig{UserBurst: 1, UserRefillRate: 0.001})
	t.Cleanup(limiter.Stop)
	env := newTestEnv(t, limiter)

	assert.Equal(t, []string{namePrompt}, env.say(t, "U1", "hello"))
	assert.Equal(t, []string{rateLimitedText}, env.say(t, "U1", "I'm Ann"))
}

func TestProcessPostback_IgnoresUnknownData(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	for _, data := range []string{"", "course:search$x", "dialog:answer$maybe", strings.Repeat("x", 400)} {
		msgs, err := env.p.ProcessPostback(context.Background(), webhook.PostbackEvent{
			Source:   webhook.UserSource{UserId: "U1"},
			Postback: &webhook.PostbackContent{Data: data},
		})
		require.NoError(t, err)
		assert.Empty(t, msgs, "data %q", data)
	}
}

type brokenStore struct{ session.Store }

func (brokenStore) Load(context.Context, string) (*session.Conversation, error) {
	return nil, errors.New("disk on fire")
}

func TestProcessMessage_StoreFailureApologizes(t *testing.T) {
	t.Parallel()
	engine := dialog.NewEngine(dialog.MustDefaultScripts(), newFakeRecognizer(), dialog.Config{})
	p := NewProcessor(ProcessorConfig{Engine: engine, Store: brokenStore{}})

	msgs, err := p.ProcessMessage(context.Background(), userText("U1", "hello"))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].(*messaging_api.TextMessage).Text, "something went wrong")
}
