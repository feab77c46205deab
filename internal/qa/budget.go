package qa

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"studyscribe/internal/logging"
)

const contextEncoding = "cl100k_base"

// TokenCounter measures prompt text.
type TokenCounter interface {
	CountTokens(text string) int
}

// EstimateCounter approximates tokens as one per three runes.
type EstimateCounter struct{}

// CountTokens implements TokenCounter.
func (EstimateCounter) CountTokens(text string) int {
	return EstimateTokens(text)
}

// EstimateTokens approximates a token count without a tokenizer.
func EstimateTokens(text string) int {
	n := len([]rune(text))
	return (n + 2) / 3
}

type tiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

func (t *tiktokenCounter) CountTokens(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}

var (
	defaultCounterOnce sync.Once
	defaultCounter     TokenCounter
)

// DefaultCounter returns a cl100k_base tokenizer, or the rune estimate when
// the encoding cannot be loaded (it is fetched on first use).
func DefaultCounter(logger *slog.Logger) TokenCounter {
	defaultCounterOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(contextEncoding)
		if err != nil {
			logging.WarnWithContext(logger, "tokenizer unavailable; estimating context size", "tokenizer_unavailable",
				logging.Error(err),
				logging.String(logging.FieldImpact, "context budget uses a rune-based estimate"),
			)
			defaultCounter = EstimateCounter{}
			return
		}
		defaultCounter = &tiktokenCounter{encoding: enc}
	})
	return defaultCounter
}

// FitToBudget keeps sources in rank order while their rendered context fits
// within maxTokens. The top source is always kept so a small budget never
// empties a non-empty context. maxTokens <= 0 disables trimming.
func FitToBudget(sources []Source, maxTokens int, counter TokenCounter) []Source {
	if maxTokens <= 0 || len(sources) == 0 {
		return sources
	}
	if counter == nil {
		counter = EstimateCounter{}
	}
	used := 0
	for i, source := range sources {
		used += counter.CountTokens(contextEntry(source))
		if used > maxTokens && i > 0 {
			return sources[:i]
		}
	}
	return sources
}
