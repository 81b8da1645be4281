package ratelimit

import (
	"sync"
	"time"
)

// KeyedConfig configures a KeyedLimiter.
type KeyedConfig struct {
	// Name labels drops in metrics ("user").
	Name string

	Burst      float64 // bucket capacity per key
	RefillRate float64 // tokens per second per key

	// CleanupPeriod controls how often idle (full) buckets are dropped.
	CleanupPeriod time.Duration
}

// KeyedLimiter keeps one bucket per key (chat ID) and drops idle buckets periodically.
type KeyedLimiter struct {
	mu      sync.RWMutex
	entries map[string]*Limiter
	config  KeyedConfig
	now     func() time.Time
	stopCh  chan struct{}
	stopped sync.Once
}

// NewKeyedLimiter starts a limiter. Call Stop to end its cleanup goroutine.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	kl := &KeyedLimiter{
		entries: make(map[string]*Limiter),
		config:  cfg,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	if cfg.CleanupPeriod > 0 {
		go kl.cleanupLoop()
	}
	return kl
}

// Allow consumes one token from key's bucket. An empty key is never limited.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	return kl.entry(key).Allow()
}

// Refund gives a token back to key's bucket.
func (kl *KeyedLimiter) Refund(key string) {
	if key == "" {
		return
	}
	kl.mu.RLock()
	l, ok := kl.entries[key]
	kl.mu.RUnlock()
	if ok {
		l.Refund()
	}
}

func (kl *KeyedLimiter) entry(key string) *Limiter {
	kl.mu.RLock()
	l, ok := kl.entries[key]
	kl.mu.RUnlock()
	if ok {
		return l
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()
	if l, ok = kl.entries[key]; ok {
		return l
	}
	l = newWithClock(kl.config.Burst, kl.config.RefillRate, kl.now)
	kl.entries[key] = l
	return l
}

// ActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) ActiveCount() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.entries)
}

// Sweep drops buckets that have refilled completely and returns how many remain.
func (kl *KeyedLimiter) Sweep() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	for key, l := range kl.entries {
		if l.IsFull() {
			delete(kl.entries, key)
		}
	}
	return len(kl.entries)
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.Sweep()
		}
	}
}

// Stop ends the cleanup goroutine. Safe to call multiple times.
func (kl *KeyedLimiter) Stop() {
	kl.stopped.Do(func() { close(kl.stopCh) })
}
