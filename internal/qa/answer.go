package qa

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"studyscribe/internal/logging"
	"studyscribe/internal/retrieval"
	"studyscribe/internal/services"
)

// NoContextAnswer is returned when retrieval found nothing to ground on.
const NoContextAnswer = "No relevant context found"

// Generator produces a JSON reply for a prompt. *llm.Client satisfies it.
type Generator interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Answer is the result of a question.
type Answer struct {
	Question       string   `json:"question"`
	Answer         string   `json:"answer"`
	AnswerMarkdown string   `json:"answer_markdown"`
	Sources        []Source `json:"sources"`
	Cited          []int    `json:"cited"`
}

// CitedSources returns the sources the model referenced, in number order.
func (a Answer) CitedSources() []Source {
	out := make([]Source, 0, len(a.Cited))
	for _, n := range a.Cited {
		if n >= 1 && n <= len(a.Sources) {
			out = append(out, a.Sources[n-1])
		}
	}
	return out
}

// Answerer turns ranked context into a cited answer.
type Answerer struct {
	generator Generator
	counter   TokenCounter
	maxTokens int
	logger    *slog.Logger
}

// Option customizes an Answerer.
type Option func(*Answerer)

// WithTokenCounter overrides the tokenizer used for the context budget.
func WithTokenCounter(counter TokenCounter) Option {
	return func(a *Answerer) {
		if counter != nil {
			a.counter = counter
		}
	}
}

// WithMaxContextTokens bounds the rendered context. Zero disables trimming.
func WithMaxContextTokens(n int) Option {
	return func(a *Answerer) {
		a.maxTokens = max(n, 0)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Answerer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAnswerer constructs an Answerer backed by generator.
func NewAnswerer(generator Generator, opts ...Option) *Answerer {
	a := &Answerer{
		generator: generator,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.NewComponentLogger(a.logger, "qa")
	if a.counter == nil {
		a.counter = DefaultCounter(a.logger)
	}
	return a
}

// Ask answers question from results, which must already be ranked.
func (a *Answerer) Ask(ctx context.Context, question string, results []retrieval.Result) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, services.Wrap(services.ErrValidation, "ask", "A question is required", nil)
	}
	sources := BuildSources(results)
	if len(sources) == 0 {
		return Answer{
			Question:       question,
			Answer:         NoContextAnswer,
			AnswerMarkdown: NoContextAnswer,
			Sources:        []Source{},
			Cited:          []int{},
		}, nil
	}
	if a.generator == nil {
		return Answer{}, services.Wrap(services.ErrConfiguration, "ask",
			"Answer generation is not configured; set llm.api_key and llm.model", nil)
	}

	fitted := FitToBudget(sources, a.maxTokens, a.counter)
	if len(fitted) < len(sources) {
		a.logger.Debug("context trimmed to token budget",
			logging.Int("offered", len(sources)),
			logging.Int("kept", len(fitted)),
			logging.Int("max_tokens", a.maxTokens),
		)
	}
	system, user := BuildPrompt(question, fitted)

	started := time.Now()
	content, err := a.generator.CompleteJSON(ctx, system, user)
	if err != nil {
		return Answer{}, err
	}
	reply := ParseReply(content, len(fitted))
	logging.WithContext(ctx, a.logger).Info("question answered",
		logging.Int("sources", len(fitted)),
		logging.Int("cited", len(reply.Cited)),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "question_answered"),
	)
	return Answer{
		Question:       question,
		Answer:         reply.Answer,
		AnswerMarkdown: reply.AnswerMarkdown,
		Sources:        fitted,
		Cited:          reply.Cited,
	}, nil
}
