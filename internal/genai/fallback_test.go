package genai

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/campus-interview-bot/internal/metrics"
	"github.com/garyellow/campus-interview-bot/internal/nlu"
)

type mockRecognizer struct {
	name  string
	calls atomic.Int32
	fn    func(ctx context.Context, text string) (*nlu.Result, error)
}

func (m *mockRecognizer) Name() string       { return m.name }
func (m *mockRecognizer) IsConfigured() bool { return true }
func (m *mockRecognizer) Recognize(ctx context.Context, text string) (*nlu.Result, error) {
	m.calls.Add(1)
	return m.fn(ctx, text)
}

func ok(intent nlu.Intent) func(context.Context, string) (*nlu.Result, error) {
	return func(_ context.Context, text string) (*nlu.Result, error) {
		return &nlu.Result{Text: text, TopIntent: intent, Entities: nlu.Entities{}}, nil
	}
}

func failing(err error) func(context.Context, string) (*nlu.Result, error) {
	return func(context.Context, string) (*nlu.Result, error) { return nil, err }
}

var fastRetry = RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestFallbackRecognizer_PrimarySuccess(t *testing.T) {
	t.Parallel()
	primary := &mockRecognizer{name: "gemini", fn: ok(nlu.IntentGreeting)}
	fallback := &mockRecognizer{name: "openai", fn: ok(nlu.IntentNone)}
	f := NewFallbackRecognizer(primary, fallback, fastRetry, time.Second, nil)

	res, err := f.Recognize(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, nlu.IntentGreeting, res.TopIntent)
	assert.EqualValues(t, 1, primary.calls.Load())
	assert.EqualValues(t, 0, fallback.calls.Load())
	assert.Equal(t, "gemini", f.Name())
	assert.True(t, f.IsConfigured())
}

func TestFallbackRecognizer_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()
	var n atomic.Int32
	primary := &mockRecognizer{name: "gemini", fn: func(_ context.Context, text string) (*nlu.Result, error) {
		if n.Add(1) < 3 {
			return nil, &LLMError{Err: errors.New("busy"), StatusCode: 503}
		}
		return ok(nlu.IntentDiscussModule)(context.Background(), text)
	}}
	f := NewFallbackRecognizer(primary, nil, fastRetry, time.Second, nil)

	res, err := f.Recognize(context.Background(), "modules")
	require.NoError(t, err)
	assert.Equal(t, nlu.IntentDiscussModule, res.TopIntent)
	assert.EqualValues(t, 3, primary.calls.Load())
}

func TestFallbackRecognizer_FallsBackAfterRetries(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	primary := &mockRecognizer{name: "gemini", fn: failing(&LLMError{Err: errors.New("busy"), StatusCode: 503})}
	fallback := &mockRecognizer{name: "openai", fn: ok(nlu.IntentEndConversation)}
	f := NewFallbackRecognizer(primary, fallback, fastRetry, time.Second, m)

	res, err := f.Recognize(context.Background(), "bye")
	require.NoError(t, err)
	assert.Equal(t, nlu.IntentEndConversation, res.TopIntent)
	assert.EqualValues(t, 3, primary.calls.Load())
	assert.EqualValues(t, 1, fallback.calls.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(m.RecognizerFallbackTotal.WithLabelValues("gemini", "openai")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.RecognizerRequestsTotal.WithLabelValues("gemini", "error")), 0)
}

func TestFallbackRecognizer_ChainCountsEachCallOnce(t *testing.T) {
	t.Parallel()

	t.Run("primary", func(t *testing.T) {
		t.Parallel()
		m := metrics.New(prometheus.NewRegistry())
		primary := &mockRecognizer{name: "gemini", fn: ok(nlu.IntentGreeting)}
		chain := nlu.NewChain(m, nil, NewFallbackRecognizer(primary, nil, fastRetry, time.Second, m))

		_, err := chain.Recognize(context.Background(), "hi")
		require.NoError(t, err)
		assert.InDelta(t, 1, testutil.ToFloat64(m.RecognizerRequestsTotal.WithLabelValues("gemini", "success")), 0)
	})

	t.Run("fallback", func(t *testing.T) {
		t.Parallel()
		m := metrics.New(prometheus.NewRegistry())
		primary := &mockRecognizer{name: "gemini", fn: failing(errors.New("quota exceeded"))}
		fallback := &mockRecognizer{name: "openai", fn: ok(nlu.IntentNone)}
		chain := nlu.NewChain(m, nil, NewFallbackRecognizer(primary, fallback, fastRetry, time.Second, m))

		_, err := chain.Recognize(context.Background(), "x")
		require.NoError(t, err)
		assert.InDelta(t, 0, testutil.ToFloat64(m.RecognizerRequestsTotal.WithLabelValues("gemini", "success")), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(m.RecognizerRequestsTotal.WithLabelValues("gemini", "error")), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(m.RecognizerRequestsTotal.WithLabelValues("openai", "success")), 0)
	})
}

func TestFallbackRecognizer_QuotaSkipsRetry(t *testing.T) {
	t.Parallel()
	primary := &mockRecognizer{name: "gemini", fn: failing(errors.New("quota exceeded"))}
	fallback := &mockRecognizer{name: "openai", fn: ok(nlu.IntentNone)}
	f := NewFallbackRecognizer(primary, fallback, fastRetry, time.Second, nil)

	_, err := f.Recognize(context.Background(), "x")
	require.NoError(t, err)
	assert.EqualValues(t, 1, primary.calls.Load())
}

func TestFallbackRecognizer_PermanentErrorFails(t *testing.T) {
	t.Parallel()
	primary := &mockRecognizer{name: "gemini", fn: failing(&LLMError{Err: errors.New("bad"), StatusCode: 400})}
	fallback := &mockRecognizer{name: "openai", fn: ok(nlu.IntentNone)}
	f := NewFallbackRecognizer(primary, fallback, fastRetry, time.Second, nil)

	_, err := f.Recognize(context.Background(), "x")
	require.Error(t, err)
	assert.EqualValues(t, 1, primary.calls.Load())
	assert.EqualValues(t, 0, fallback.calls.Load())
}

func TestFallbackRecognizer_BothFail(t *testing.T) {
	t.Parallel()
	primary := &mockRecognizer{name: "gemini", fn: failing(errors.New("quota exceeded"))}
	fallback := &mockRecognizer{name: "openai", fn: failing(errors.New("billing hard limit"))}
	f := NewFallbackRecognizer(primary, fallback, fastRetry, time.Second, nil)

	_, err := f.Recognize(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all providers failed")
}

func TestFallbackRecognizer_PerCallTimeout(t *testing.T) {
	t.Parallel()
	slow := &mockRecognizer{name: "gemini", fn: func(ctx context.Context, _ string) (*nlu.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	f := NewFallbackRecognizer(slow, nil, RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}, 10*time.Millisecond, nil)

	_, err := f.Recognize(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 2, slow.calls.Load())
}

func TestFallbackRecognizer_Nil(t *testing.T) {
	t.Parallel()
	var f *FallbackRecognizer
	assert.False(t, f.IsConfigured())
	_, err := f.Recognize(context.Background(), "x")
	assert.Error(t, err)
}

func TestNewRecognizer(t *testing.T) {
	t.Parallel()

	none, err := NewRecognizer(context.Background(), Config{Primary: ProviderGemini}, nil)
	require.NoError(t, err)
	assert.Nil(t, none)

	cfg := Config{
		Primary:  ProviderGemini, // no key: the next configured provider is promoted
		Fallback: ProviderOpenAI,
		OpenAI:   ProviderConfig{APIKey: "k"},
		Groq:     ProviderConfig{APIKey: "g"},
		Retry:    DefaultRetryConfig(),
		Timeout:  time.Second,
	}
	r, err := NewRecognizer(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "openai", r.primary.Name())
	require.NotNil(t, r.fallback)
	assert.Equal(t, "groq", r.fallback.Name())
}
