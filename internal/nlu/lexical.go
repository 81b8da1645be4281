package nlu

import (
	"context"
	"fmt"
	"sync"

	bm25 "github.com/iwilltry42/bm25-go"
)

// LexicalName is the provider name reported by LexicalRecognizer.
const LexicalName = "local"

// LexicalRecognizer is an offline recognizer. It ranks the turn against per-intent
// exemplar utterances with BM25 and extracts slots with fixed patterns.
type LexicalRecognizer struct {
	enabled bool

	once    sync.Once
	index   *bm25.BM25Okapi
	labels  []Intent // document index -> intent
	initErr error
}

// NewLexicalRecognizer returns a recognizer that reports IsConfigured() == enabled.
func NewLexicalRecognizer(enabled bool) *LexicalRecognizer {
	return &LexicalRecognizer{enabled: enabled}
}

// IsConfigured implements Recognizer.
func (r *LexicalRecognizer) IsConfigured() bool { return r != nil && r.enabled }

// Name implements Named.
func (r *LexicalRecognizer) Name() string { return LexicalName }

func (r *LexicalRecognizer) build() error {
	r.once.Do(func() {
		var corpus []string
		for _, in := range Intents {
			for _, ex := range exemplars[in] {
				corpus = append(corpus, ex)
				r.labels = append(r.labels, in)
			}
		}
		r.index, r.initErr = bm25.NewBM25Okapi(corpus, Tokenize, 1.5, 0.75, nil)
	})
	return r.initErr
}

// Recognize implements Recognizer.
func (r *LexicalRecognizer) Recognize(ctx context.Context, text string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.build(); err != nil {
		return nil, fmt.Errorf("build lexical index: %w", err)
	}

	res := &Result{
		Text:      text,
		TopIntent: IntentNone,
		Entities:  extractSlots(text),
		Provider:  LexicalName,
	}

	query := Tokenize(text)
	if len(query) == 0 {
		return res, nil
	}
	scores, err := r.index.GetScores(query)
	if err != nil {
		return nil, fmt.Errorf("BM25 scoring failed: %w", err)
	}

	// Best score per intent; ties keep the earlier intent.
	best := make(map[Intent]float64, len(Intents))
	for doc, score := range scores {
		if score <= 0 {
			continue
		}
		if in := r.labels[doc]; score > best[in] {
			best[in] = score
		}
	}

	var total, top float64
	for _, in := range Intents {
		s := best[in]
		total += s
		if s > top {
			top = s
			res.TopIntent = in
		}
	}
	if top > 0 {
		res.Score = top / total
	}
	return res, nil
}
