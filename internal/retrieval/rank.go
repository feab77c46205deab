package retrieval

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultTopK is used when a caller asks for zero or fewer results.
const DefaultTopK = 8

// Result is a chunk paired with its relevance score.
type Result struct {
	Chunk Chunk
	Score float64
}

// RankOptions tunes Rank.
type RankOptions struct {
	TopK int
	// LengthNormalize divides each score by the square root of the chunk's
	// token count so long chunks do not win by size alone.
	LengthNormalize bool
}

// Tokenize lowercases text with Unicode case folding and splits it into runs
// of letters and digits.
func Tokenize(text string) []string {
	folded := cases.Fold().String(norm.NFKC.String(text))
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func termCounts(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	return counts
}

// Rank scores chunks against query and returns at most TopK results with a
// positive score. For every distinct query term the score adds the term's
// query count times its count in the chunk. Ties go to the earliest t_start,
// then the lower chunk id, then input order. Duplicate chunks are ranked once.
func Rank(query string, chunks []Chunk, opts RankOptions) []Result {
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	queryCounts := termCounts(Tokenize(query))
	if len(queryCounts) == 0 {
		return []Result{}
	}

	type candidate struct {
		result Result
		order  int
	}
	seen := make(map[string]struct{}, 2*len(chunks))
	candidates := make([]candidate, 0, len(chunks))
	for i, chunk := range chunks {
		idKey, contentKey := dedupKeys(chunk)
		_, dupID := seen[idKey]
		_, dupContent := seen[contentKey]
		if dupID || dupContent {
			continue
		}
		seen[idKey] = struct{}{}
		seen[contentKey] = struct{}{}

		tokens := Tokenize(chunk.Text)
		chunkCounts := termCounts(tokens)
		score := 0.0
		for term, qf := range queryCounts {
			score += float64(qf * chunkCounts[term])
		}
		if score <= 0 {
			continue
		}
		if opts.LengthNormalize {
			score /= math.Sqrt(float64(len(tokens)))
		}
		candidates = append(candidates, candidate{result: Result{Chunk: chunk, Score: score}, order: i})
	}

	slices.SortFunc(candidates, func(a, b candidate) int {
		if c := cmp.Compare(b.result.Score, a.result.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.result.Chunk.Start, b.result.Chunk.Start); c != 0 {
			return c
		}
		if c := cmp.Compare(a.result.Chunk.ID, b.result.Chunk.ID); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	})

	results := make([]Result, 0, min(topK, len(candidates)))
	for _, c := range candidates[:min(topK, len(candidates))] {
		results = append(results, c.result)
	}
	return results
}

// dedupKeys returns the two identities of a chunk: its session and id, and
// its text and time range.
func dedupKeys(chunk Chunk) (string, string) {
	return fmt.Sprintf("id\x00%s\x00%d", chunk.Session, chunk.ID),
		fmt.Sprintf("text\x00%s\x00%g\x00%g", chunk.Text, chunk.Start, chunk.End)
}
