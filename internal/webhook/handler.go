// Package webhook receives LINE webhook callbacks and hands each event to
// the bot processor, replying asynchronously.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"golang.org/x/sync/semaphore"

	"github.com/garyellow/campus-interview-bot/internal/bot"
	"github.com/garyellow/campus-interview-bot/internal/ctxutil"
	"github.com/garyellow/campus-interview-bot/internal/logger"
	"github.com/garyellow/campus-interview-bot/internal/metrics"
	"github.com/garyellow/campus-interview-bot/internal/ratelimit"
)

// LINE delivers at most this many events per callback.
const (
	maxEventsPerWebhook = 100
	minReplyTokenLength = 10
)

// EventProcessor turns events into reply messages. *bot.Processor implements it.
type EventProcessor interface {
	ProcessMessage(ctx context.Context, event webhook.MessageEvent) ([]messaging_api.MessageInterface, error)
	ProcessPostback(ctx context.Context, event webhook.PostbackEvent) ([]messaging_api.MessageInterface, error)
	ProcessFollow(ctx context.Context, event webhook.FollowEvent) ([]messaging_api.MessageInterface, error)
	ProcessUnfollow(ctx context.Context, event webhook.UnfollowEvent) error
}

var _ EventProcessor = (*bot.Processor)(nil)

// Handler handles LINE webhook events
type Handler struct {
	channelSecret string
	messenger     Messenger
	processor     EventProcessor
	metrics       *metrics.Metrics
	logger        *logger.Logger
	replyLimiter  *ratelimit.Limiter
	batches       *semaphore.Weighted // callbacks processed at once
	wg            sync.WaitGroup

	maxMessagesPerReply int
}

// HandlerConfig holds configuration for creating a new Handler.
// Messenger defaults to the LINE API client for ChannelToken.
type HandlerConfig struct {
	ChannelSecret       string
	ChannelToken        string
	Messenger           Messenger
	Processor           EventProcessor
	Metrics             *metrics.Metrics
	Logger              *logger.Logger
	GlobalRateRPS       float64
	MaxMessagesPerReply int
	// Concurrency bounds the callbacks processed at once; later ones wait.
	Concurrency int
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Processor == nil {
		return nil, errors.New("webhook: processor is required")
	}
	if cfg.Messenger == nil {
		m, err := NewLineMessenger(cfg.ChannelToken)
		if err != nil {
			return nil, err
		}
		cfg.Messenger = m
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewWithWriter("error", io.Discard)
	}
	if cfg.GlobalRateRPS <= 0 {
		cfg.GlobalRateRPS = 100
	}
	if cfg.MaxMessagesPerReply <= 0 {
		cfg.MaxMessagesPerReply = 5
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}

	return &Handler{
		channelSecret:       cfg.ChannelSecret,
		messenger:           cfg.Messenger,
		processor:           cfg.Processor,
		metrics:             cfg.Metrics,
		logger:              cfg.Logger.WithModule("webhook"),
		replyLimiter:        ratelimit.New(cfg.GlobalRateRPS, cfg.GlobalRateRPS),
		batches:             semaphore.NewWeighted(int64(cfg.Concurrency)),
		maxMessagesPerReply: cfg.MaxMessagesPerReply,
	}, nil
}

// Handle is the Gin handler for the webhook endpoint
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("Invalid webhook signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).Error("Failed to parse webhook request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	// LINE expects 200 right away; replies go out with the reply token.
	c.Status(http.StatusOK)

	start := time.Now()
	h.metrics.RecordWebhook("batch", "received", 0)

	if len(cb.Events) > maxEventsPerWebhook {
		h.logger.WithField("event_count", len(cb.Events)).Warn("Too many events in webhook batch; truncating")
		cb.Events = cb.Events[:maxEventsPerWebhook]
	}
	events := make([]webhook.EventInterface, len(cb.Events))
	copy(events, cb.Events)

	h.wg.Go(func() {
		// Acquire with a background context never fails.
		_ = h.batches.Acquire(context.Background(), 1)
		defer h.batches.Release(1)
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async event processing")
			}
		}()
		for _, event := range events {
			h.processEvent(context.Background(), event, start)
		}
	})
}

// processEvent handles a single webhook event.
func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface, batchStart time.Time) {
	eventStart := time.Now()

	eventID, isRedelivery := extractEventMeta(event)
	log := h.logger
	if eventID != "" {
		ctx = ctxutil.WithRequestID(ctx, eventID)
		log = log.WithRequestID(eventID)
	}
	if isRedelivery {
		log = log.WithField("is_redelivery", true)
	}

	if chatID := chatIDOf(event); chatID != "" && shouldShowLoading(event) {
		if err := h.messenger.ShowLoading(ctx, chatID); err != nil {
			log.WithError(err).Debug("Failed to show loading animation")
		}
	}

	var (
		eventType string
		messages  []messaging_api.MessageInterface
		err       error
	)
	switch e := event.(type) {
	case webhook.MessageEvent:
		eventType = "message"
		messages, err = h.processor.ProcessMessage(ctx, e)
	case webhook.PostbackEvent:
		eventType = "postback"
		messages, err = h.processor.ProcessPostback(ctx, e)
	case webhook.FollowEvent:
		eventType = "follow"
		messages, err = h.processor.ProcessFollow(ctx, e)
	case webhook.UnfollowEvent:
		eventType = "unfollow"
		err = h.processor.ProcessUnfollow(ctx, e)
	default:
		log.WithField("event_type", fmt.Sprintf("%T", e)).Debug("Unsupported event type")
		return
	}

	status := "success"
	if err != nil {
		status = "error"
		log.WithError(err).WithField("event_type", eventType).Error("Failed to handle event")
	}
	h.metrics.RecordWebhook(eventType, status, time.Since(eventStart))

	if err == nil && len(messages) > 0 {
		h.reply(ctx, log, event, eventType, messages)
	}

	log.WithField("event_type", eventType).
		WithField("event_duration_ms", time.Since(eventStart).Milliseconds()).
		WithField("batch_duration_ms", time.Since(batchStart).Milliseconds()).
		Info("Event processed")
}

func (h *Handler) reply(ctx context.Context, log *logger.Logger, event webhook.EventInterface, eventType string, messages []messaging_api.MessageInterface) {
	replyToken := replyTokenOf(event)
	if len(replyToken) < minReplyTokenLength {
		log.WithField("token_length", len(replyToken)).Debug("Missing or invalid reply token, skipping reply")
		return
	}

	if len(messages) > h.maxMessagesPerReply {
		log.WithField("message_count", len(messages)).Warn("Message count exceeds limit; truncating")
		messages = messages[:h.maxMessagesPerReply]
	}

	if !h.replyLimiter.Allow() {
		h.metrics.RecordRateLimiterDrop("reply")
		log.Warn("Reply rate limit exceeded; waiting")
		if err := h.replyLimiter.Wait(ctx); err != nil {
			return
		}
	}

	start := time.Now()
	if err := h.messenger.Reply(ctx, replyToken, messages); err != nil {
		if strings.Contains(err.Error(), "Invalid reply token") {
			log.WithError(err).Debug("Reply token already used or expired")
		} else {
			log.WithError(err).Error("Failed to send reply")
		}
		h.metrics.RecordWebhook(eventType, "reply_error", time.Since(start))
	}
}

// Shutdown waits for in-flight events. It returns ctx.Err() if ctx ends first.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func extractEventMeta(event webhook.EventInterface) (string, bool) {
	var (
		id string
		dc *webhook.DeliveryContext
	)
	switch e := event.(type) {
	case webhook.MessageEvent:
		id, dc = e.WebhookEventId, e.DeliveryContext
	case webhook.PostbackEvent:
		id, dc = e.WebhookEventId, e.DeliveryContext
	case webhook.FollowEvent:
		id, dc = e.WebhookEventId, e.DeliveryContext
	case webhook.UnfollowEvent:
		id, dc = e.WebhookEventId, e.DeliveryContext
	}
	return id, dc != nil && dc.IsRedelivery
}

// shouldShowLoading is false for events that never get a reply.
func shouldShowLoading(event webhook.EventInterface) bool {
	switch e := event.(type) {
	case webhook.MessageEvent:
		if bot.IsPersonalChat(e.Source) {
			return true
		}
		textMsg, ok := e.Message.(webhook.TextMessageContent)
		return ok && bot.IsBotMentioned(textMsg)
	case webhook.PostbackEvent, webhook.FollowEvent:
		return true
	}
	return false
}

func replyTokenOf(event webhook.EventInterface) string {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return e.ReplyToken
	case webhook.PostbackEvent:
		return e.ReplyToken
	case webhook.FollowEvent:
		return e.ReplyToken
	}
	return ""
}

func chatIDOf(event webhook.EventInterface) string {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return bot.GetChatID(e.Source)
	case webhook.PostbackEvent:
		return bot.GetChatID(e.Source)
	case webhook.FollowEvent:
		return bot.GetChatID(e.Source)
	case webhook.UnfollowEvent:
		return bot.GetChatID(e.Source)
	}
	return ""
}
