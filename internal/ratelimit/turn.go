package ratelimit

import (
	"time"

	"github.com/garyellow/campus-interview-bot/internal/metrics"
)

// Limiter names reported with drops.
const (
	LimiterUser   = "user"
	LimiterGlobal = "global"
)

// TurnConfig configures a TurnLimiter.
type TurnConfig struct {
	UserBurst      float64
	UserRefillRate float64 // tokens per second
	GlobalRPS      float64 // zero disables the global bucket
	CleanupPeriod  time.Duration
	Metrics        *metrics.Metrics
}

// TurnLimiter decides whether an inbound message may start a dialog turn.
type TurnLimiter struct {
	user    *KeyedLimiter
	global  *Limiter
	metrics *metrics.Metrics
}

// NewTurnLimiter creates the per-chat and global buckets.
func NewTurnLimiter(cfg TurnConfig) *TurnLimiter {
	tl := &TurnLimiter{
		user: NewKeyedLimiter(KeyedConfig{
			Name:          LimiterUser,
			Burst:         cfg.UserBurst,
			RefillRate:    cfg.UserRefillRate,
			CleanupPeriod: cfg.CleanupPeriod,
		}),
		metrics: cfg.Metrics,
	}
	if cfg.GlobalRPS > 0 {
		tl.global = New(cfg.GlobalRPS, cfg.GlobalRPS)
	}
	return tl
}

// Allow checks the chat bucket first, then the global bucket.
// A global rejection refunds the chat token so the user is not charged for it.
// On rejection it returns the name of the limiter that dropped the turn.
func (tl *TurnLimiter) Allow(chatID string) (bool, string) {
	if !tl.user.Allow(chatID) {
		tl.metrics.RecordRateLimiterDrop(LimiterUser)
		return false, LimiterUser
	}
	if tl.global != nil && !tl.global.Allow() {
		tl.user.Refund(chatID)
		tl.metrics.RecordRateLimiterDrop(LimiterGlobal)
		return false, LimiterGlobal
	}
	return true, ""
}

// ActiveChats returns the number of chats with a live bucket.
func (tl *TurnLimiter) ActiveChats() int {
	return tl.user.ActiveCount()
}

// Stop releases the cleanup goroutine.
func (tl *TurnLimiter) Stop() {
	tl.user.Stop()
}
