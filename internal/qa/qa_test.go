package qa_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"studyscribe/internal/qa"
	"studyscribe/internal/retrieval"
	"studyscribe/internal/services"
)

type fakeGenerator struct {
	reply  string
	err    error
	calls  int
	system string
	user   string
}

func (f *fakeGenerator) CompleteJSON(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.system = system
	f.user = user
	return f.reply, f.err
}

func rankedFixture() []retrieval.Result {
	return []retrieval.Result{
		{Score: 3, Chunk: retrieval.Chunk{ID: 4, Text: "baz qux is the answer", Start: 61.5, End: 125, SegmentIDs: []int{7, 8}, Session: "/data/s1"}},
		{Score: 1, Chunk: retrieval.Chunk{ID: 0, Text: "hello world", Start: 0, End: 5, SegmentIDs: []int{0}}},
	}
}

func TestBuildSources(t *testing.T) {
	sources := qa.BuildSources(rankedFixture())
	require.Len(t, sources, 2)

	first := sources[0]
	require.Equal(t, 1, first.ID)
	require.Equal(t, "src_1", first.SourceID)
	require.Equal(t, qa.KindTranscript, first.Kind)
	require.Equal(t, "Transcript [01:01-02:05]", first.Title)
	require.Equal(t, "baz qux is the answer", first.Excerpt)
	require.Equal(t, qa.Locator{
		Type:       "transcript",
		SessionDir: "/data/s1",
		ChunkID:    4,
		SegmentID:  7,
		TStart:     61.5,
		TEnd:       125,
		TStartMS:   61500,
		TEndMS:     125000,
		Anchor:     "seg-7",
	}, first.Locator)
	require.Equal(t, "src_2", sources[1].SourceID)
}

func TestBuildSourcesTruncatesExcerpt(t *testing.T) {
	long := strings.Repeat("é", 300)
	sources := qa.BuildSources([]retrieval.Result{{Score: 1, Chunk: retrieval.Chunk{Text: long, SegmentIDs: []int{2}}}})
	require.Len(t, []rune(sources[0].Excerpt), qa.ExcerptChars)
	require.Equal(t, long, sources[0].Text())
}

func TestFormatTimestamp(t *testing.T) {
	require.Equal(t, "00:00", qa.FormatTimestamp(-3))
	require.Equal(t, "00:59", qa.FormatTimestamp(59.9))
	require.Equal(t, "75:00", qa.FormatTimestamp(4500))
}

func TestAskWithoutContextSkipsModel(t *testing.T) {
	gen := &fakeGenerator{}
	answerer := qa.NewAnswerer(gen, qa.WithTokenCounter(qa.EstimateCounter{}))

	answer, err := answerer.Ask(context.Background(), "what is qux?", nil)
	require.NoError(t, err)
	require.Equal(t, qa.NoContextAnswer, answer.Answer)
	require.Empty(t, answer.Sources)
	require.Zero(t, gen.calls)
}

func TestAskParsesJSONReply(t *testing.T) {
	gen := &fakeGenerator{reply: `{"answer":"It is baz qux [1].","answer_markdown":"It is **baz qux** [1].","cited":[1,9,1]}`}
	answerer := qa.NewAnswerer(gen, qa.WithTokenCounter(qa.EstimateCounter{}))

	answer, err := answerer.Ask(context.Background(), "  what is qux?  ", rankedFixture())
	require.NoError(t, err)
	require.Equal(t, "what is qux?", answer.Question)
	require.Equal(t, "It is baz qux [1].", answer.Answer)
	require.Equal(t, "It is **baz qux** [1].", answer.AnswerMarkdown)
	require.Equal(t, []int{1}, answer.Cited)
	require.Len(t, answer.CitedSources(), 1)
	require.Equal(t, "src_1", answer.CitedSources()[0].SourceID)

	require.Equal(t, 1, gen.calls)
	require.Contains(t, gen.system, "ONLY")
	require.Contains(t, gen.user, "Question:\nwhat is qux?")
	require.Contains(t, gen.user, "[1] Transcript [01:01-02:05] baz qux is the answer")
	require.Contains(t, gen.user, "[2] Transcript [00:00-00:05] hello world")
}

func TestAskPropagatesGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: services.Wrap(services.ErrGenerationFailure, "llm complete", "", errors.New("boom"))}
	answerer := qa.NewAnswerer(gen, qa.WithTokenCounter(qa.EstimateCounter{}))

	_, err := answerer.Ask(context.Background(), "q", rankedFixture())
	require.ErrorIs(t, err, services.ErrGenerationFailure)
}

func TestAskRequiresQuestion(t *testing.T) {
	answerer := qa.NewAnswerer(&fakeGenerator{}, qa.WithTokenCounter(qa.EstimateCounter{}))
	_, err := answerer.Ask(context.Background(), "   ", rankedFixture())
	require.ErrorIs(t, err, services.ErrValidation)
}

func TestAskWithoutGeneratorIsConfigurationError(t *testing.T) {
	answerer := qa.NewAnswerer(nil, qa.WithTokenCounter(qa.EstimateCounter{}))
	_, err := answerer.Ask(context.Background(), "q", rankedFixture())
	require.ErrorIs(t, err, services.ErrConfiguration)
}

func TestAskTrimsContextToBudget(t *testing.T) {
	gen := &fakeGenerator{reply: `{"answer":"a","answer_markdown":"a","cited":[2]}`}
	answerer := qa.NewAnswerer(gen,
		qa.WithTokenCounter(qa.EstimateCounter{}),
		qa.WithMaxContextTokens(15),
	)
	answer, err := answerer.Ask(context.Background(), "q", rankedFixture())
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	require.NotContains(t, gen.user, "hello world")
	// Citation 2 no longer refers to an offered source.
	require.Empty(t, answer.Cited)
}

func TestFitToBudgetKeepsTopSource(t *testing.T) {
	sources := qa.BuildSources(rankedFixture())
	require.Len(t, qa.FitToBudget(sources, 1, qa.EstimateCounter{}), 1)
	require.Len(t, qa.FitToBudget(sources, 0, qa.EstimateCounter{}), 2)
	require.Len(t, qa.FitToBudget(sources, 10_000, qa.EstimateCounter{}), 2)
}

func TestEstimateTokens(t *testing.T) {
	require.Equal(t, 0, qa.EstimateTokens(""))
	require.Equal(t, 1, qa.EstimateTokens("abc"))
	require.Equal(t, 2, qa.EstimateTokens("abcd"))
	require.Equal(t, 1, qa.EstimateTokens("日本"))
}
