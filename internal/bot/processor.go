// Package bot turns LINE events into dialog turns: it loads the chat's
// conversation, runs the engine, records finished interviews and renders
// the reply as LINE messages.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"golang.org/x/sync/singleflight"

	"github.com/garyellow/campus-interview-bot/internal/config"
	"github.com/garyellow/campus-interview-bot/internal/ctxutil"
	"github.com/garyellow/campus-interview-bot/internal/dialog"
	domerrors "github.com/garyellow/campus-interview-bot/internal/errors"
	"github.com/garyellow/campus-interview-bot/internal/lineutil"
	"github.com/garyellow/campus-interview-bot/internal/logger"
	"github.com/garyellow/campus-interview-bot/internal/metrics"
	"github.com/garyellow/campus-interview-bot/internal/ratelimit"
	"github.com/garyellow/campus-interview-bot/internal/sentry"
	"github.com/garyellow/campus-interview-bot/internal/session"
)

const (
	rateLimitedText = "You're sending messages a bit fast. Give me a moment and try again."
	textOnlyText    = "I can only read text messages. Please type your answer."
	tooLongText     = "That message is too long for me. Could you keep it shorter?"
)

// Processor handles the LINE events that drive conversations.
type Processor struct {
	engine   *dialog.Engine
	store    session.Store
	recorder *session.Recorder
	limiter  *ratelimit.TurnLimiter
	logger   *logger.Logger
	metrics  *metrics.Metrics
	sender   *messaging_api.Sender

	locks    *keyedMutex
	profiles singleflight.Group
	turn     TurnFunc

	webhookTimeout   time.Duration
	maxMessages      int
	maxMessageLength int
	maxInputLength   int
	transcriptLimit  int
}

// ProcessorConfig holds configuration for creating a new Processor.
// Recorder, Limiter and Metrics are optional.
type ProcessorConfig struct {
	Engine    *dialog.Engine
	Store     session.Store
	Recorder  *session.Recorder
	Limiter   *ratelimit.TurnLimiter
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
	Sender    *messaging_api.Sender
	BotConfig *config.BotConfig
}

// NewProcessor creates a new event processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewWithWriter("error", io.Discard)
	}
	botCfg := cfg.BotConfig
	if botCfg == nil {
		botCfg = &config.BotConfig{}
	}

	p := &Processor{
		engine:           cfg.Engine,
		store:            cfg.Store,
		recorder:         cfg.Recorder,
		limiter:          cfg.Limiter,
		logger:           cfg.Logger.WithModule("bot"),
		metrics:          cfg.Metrics,
		sender:           cfg.Sender,
		locks:            newKeyedMutex(),
		webhookTimeout:   botCfg.WebhookTimeout,
		maxMessages:      botCfg.MaxMessagesPerReply,
		maxMessageLength: botCfg.MaxMessageLength,
		maxInputLength:   botCfg.MaxInputLength,
		transcriptLimit:  botCfg.TranscriptLimit,
	}
	if p.webhookTimeout <= 0 {
		p.webhookTimeout = 25 * time.Second
	}
	if p.maxMessages <= 0 || p.maxMessages > lineutil.MaxMessagesPerReply {
		p.maxMessages = lineutil.MaxMessagesPerReply
	}
	p.turn = Chain(p.runTurn, RecoveryMiddleware(p.logger), LoggingMiddleware(p.logger))
	return p
}

// ProcessMessage handles a message event.
// Groups and rooms are only answered when the bot is mentioned.
func (p *Processor) ProcessMessage(ctx context.Context, event webhook.MessageEvent) ([]messaging_api.MessageInterface, error) {
	chatID := GetChatID(event.Source)
	if chatID == "" {
		return nil, nil
	}
	personal := IsPersonalChat(event.Source)

	textMsg, ok := event.Message.(webhook.TextMessageContent)
	if !ok {
		if personal {
			return []messaging_api.MessageInterface{lineutil.NewTextMessage(textOnlyText, p.sender)}, nil
		}
		return nil, nil
	}

	text := textMsg.Text
	if p.maxMessageLength > 0 && len(text) > p.maxMessageLength {
		p.logger.WithField("length", len(text)).Warn("Text message too long")
		if personal {
			return []messaging_api.MessageInterface{lineutil.NewTextMessage(tooLongText, p.sender)}, nil
		}
		return nil, nil
	}
	if !personal {
		var mentioned bool
		if text, mentioned = stripSelfMentions(text, textMsg.Mention); !mentioned {
			return nil, nil
		}
	}

	text = SanitizeInput(text, p.maxInputLength)
	if text == "" {
		return nil, nil
	}

	return p.process(ctx, event.Source, Turn{
		ChatID:   chatID,
		UserID:   GetUserID(event.Source),
		Text:     text,
		Personal: personal,
	})
}

// ProcessPostback handles the Yes/No quick reply buttons.
func (p *Processor) ProcessPostback(ctx context.Context, event webhook.PostbackEvent) ([]messaging_api.MessageInterface, error) {
	chatID := GetChatID(event.Source)
	if chatID == "" || event.Postback == nil {
		return nil, nil
	}

	data := strings.TrimSpace(event.Postback.Data)
	if data == "" || len(data) > lineutil.MaxPostbackData {
		p.logger.WithField("data_length", len(data)).Warn("Invalid postback data")
		return nil, nil
	}

	pb, err := lineutil.ParsePostback(data)
	if err != nil || pb.Module != lineutil.AnswerYes.Module || pb.Action != lineutil.AnswerYes.Action {
		p.logger.WithField("data", data).Debug("Ignoring unknown postback")
		return nil, nil
	}

	var text string
	switch pb.Param(0) {
	case lineutil.AnswerYes.Param(0):
		text = "yes"
	case lineutil.AnswerNo.Param(0):
		text = "no"
	default:
		return nil, nil
	}

	return p.process(ctx, event.Source, Turn{
		ChatID:   chatID,
		UserID:   GetUserID(event.Source),
		Text:     text,
		Personal: IsPersonalChat(event.Source),
	})
}

// ProcessFollow greets a new friend by starting the interview.
func (p *Processor) ProcessFollow(ctx context.Context, event webhook.FollowEvent) ([]messaging_api.MessageInterface, error) {
	chatID := GetChatID(event.Source)
	if chatID == "" {
		return nil, nil
	}
	p.logger.Info("New user followed the bot")

	return p.process(ctx, event.Source, Turn{
		ChatID:   chatID,
		UserID:   GetUserID(event.Source),
		Personal: true,
		Start:    true,
	})
}

// ProcessUnfollow cancels the running conversation and keeps its transcript.
// LINE does not accept replies to unfollow events.
func (p *Processor) ProcessUnfollow(ctx context.Context, event webhook.UnfollowEvent) error {
	chatID := GetChatID(event.Source)
	if chatID == "" {
		return nil
	}
	ctx = ctxutil.WithChatID(ctx, chatID)

	unlock := p.locks.Lock(chatID)
	defer unlock()

	conv, err := p.store.Load(ctx, chatID)
	if errors.Is(err, domerrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}

	if !conv.State.Done() && conv.State.Started() {
		p.engine.Cancel(&conv.State)
		p.record(ctx, conv)
	}
	if err := p.store.Delete(ctx, chatID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	p.logger.WithField("session_id", conv.SessionID).InfoContext(ctx, "User unfollowed, conversation cancelled")
	return nil
}

// process applies the rate limit and runs t under the webhook timeout.
func (p *Processor) process(ctx context.Context, source webhook.SourceInterface, t Turn) ([]messaging_api.MessageInterface, error) {
	ctx = ctxutil.WithChatID(ctx, t.ChatID)
	if t.UserID != "" {
		ctx = ctxutil.WithUserID(ctx, t.UserID)
	}

	if p.limiter != nil {
		if allowed, name := p.limiter.Allow(t.ChatID); !allowed {
			p.logger.WithField("limiter", name).
				WithField("chat_type", chatKind(source)).
				WarnContext(ctx, "Turn rate limited")
			if t.Personal {
				return []messaging_api.MessageInterface{lineutil.NewTextMessage(rateLimitedText, p.sender)}, nil
			}
			return nil, nil
		}
	}

	turnCtx, cancel := context.WithTimeout(ctxutil.PreserveTracing(ctx), p.webhookTimeout)
	defer cancel()

	reply, err := p.turn(turnCtx, t)
	if err != nil {
		sentry.CaptureTurnError(ctx, err, sentry.TurnInfo{ChatID: t.ChatID, Component: "processor"})
		return []messaging_api.MessageInterface{lineutil.ErrorMessage(p.sender)}, nil
	}
	return lineutil.RenderReply(reply, p.sender, p.maxMessages), nil
}

// runTurn loads the conversation, advances it and saves it back.
// Turns of the same chat run one at a time.
func (p *Processor) runTurn(ctx context.Context, t Turn) (dialog.Reply, error) {
	unlock := p.locks.Lock(t.ChatID)
	defer unlock()

	conv, err := p.load(ctx, t)
	if err != nil {
		return dialog.Reply{}, err
	}
	ctx = ctxutil.WithSessionID(ctx, conv.SessionID)

	var (
		reply dialog.Reply
		next  dialog.State
	)
	switch {
	case t.Start, !conv.State.Started():
		if t.Start && conv.State.Started() && !conv.State.Done() {
			p.engine.Cancel(&conv.State)
			p.record(ctx, conv)
		}
		conv.Renew()
		if !t.Start {
			conv.Append(p.transcriptLimit, session.Entry{Role: session.RoleUser, Text: t.Text, At: time.Now()})
		}
		reply, next, err = p.engine.Begin(ctx, p.engine.Scripts().Start, p.seedProfile(ctx, t.UserID))
	default:
		if conv.State.Done() {
			conv.Renew()
		}
		now := time.Now()
		conv.Append(p.transcriptLimit, session.Entry{Role: session.RoleUser, Text: t.Text, At: now})
		reply, next, err = p.engine.Step(ctx, conv.State, t.Text)
	}
	if err != nil {
		return dialog.Reply{}, fmt.Errorf("dialog: %w", err)
	}

	now := time.Now()
	for _, msg := range reply.Messages {
		conv.Append(p.transcriptLimit, session.Entry{Role: session.RoleBot, Text: msg, At: now})
	}
	conv.State = next
	if t.UserID != "" {
		conv.UserID = t.UserID
	}

	if next.Done() {
		p.record(ctx, conv)
	}
	if err := p.store.Save(ctx, conv); err != nil {
		return dialog.Reply{}, fmt.Errorf("save conversation: %w", err)
	}
	return reply, nil
}

func (p *Processor) load(ctx context.Context, t Turn) (*session.Conversation, error) {
	conv, err := p.store.Load(ctx, t.ChatID)
	switch {
	case err == nil:
		return conv, nil
	case errors.Is(err, domerrors.ErrNotFound):
		return session.NewConversation(t.ChatID, t.UserID), nil
	default:
		return nil, fmt.Errorf("load conversation: %w", err)
	}
}

// seedProfile returns the stored profile of a returning user, or nil.
// Concurrent lookups for the same user share one query.
func (p *Processor) seedProfile(ctx context.Context, userID string) *dialog.Profile {
	if userID == "" || p.recorder == nil {
		return nil
	}
	v, err, shared := p.profiles.Do(userID, func() (any, error) {
		return p.recorder.Profile(ctx, userID)
	})
	if shared {
		p.metrics.RecordSingleflightDedup()
	}
	if err != nil {
		if !errors.Is(err, domerrors.ErrNotFound) {
			p.logger.WithError(err).WarnContext(ctx, "Failed to load stored profile")
		}
		return nil
	}
	return v.(*dialog.Profile)
}

// record stores a finished conversation. Failures are logged, never shown
// to the user.
func (p *Processor) record(ctx context.Context, conv *session.Conversation) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(ctx, conv); err != nil {
		p.logger.WithError(err).ErrorContext(ctx, "Failed to record conversation")
		sentry.CaptureTurnError(ctx, err, sentry.TurnInfo{
			ChatID:    conv.ChatID,
			Topic:     conv.State.Topic,
			Component: "recorder",
		})
	}
}
