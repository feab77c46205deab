package qa

import (
	"fmt"
	"strings"

	"studyscribe/internal/retrieval"
)

const (
	// ExcerptChars bounds the display excerpt of a source.
	ExcerptChars = 220
	// KindTranscript marks sources drawn from a transcript.
	KindTranscript = "transcript"
)

// Locator points a citation back to the transcript.
type Locator struct {
	Type       string  `json:"type"`
	SessionDir string  `json:"session_dir,omitempty"`
	ChunkID    int     `json:"chunk_id"`
	SegmentID  int     `json:"segment_id"`
	TStart     float64 `json:"t_start"`
	TEnd       float64 `json:"t_end"`
	TStartMS   int64   `json:"t_start_ms"`
	TEndMS     int64   `json:"t_end_ms"`
	Anchor     string  `json:"anchor"`
}

// Source is one numbered piece of context offered to the model.
type Source struct {
	ID       int     `json:"id"`
	SourceID string  `json:"source_id"`
	Kind     string  `json:"kind"`
	Title    string  `json:"title"`
	Excerpt  string  `json:"excerpt"`
	Score    float64 `json:"score"`
	Locator  Locator `json:"locator"`

	text string
}

// Text returns the full chunk text behind the source.
func (s Source) Text() string {
	return s.text
}

// BuildSources numbers ranked results from 1 in rank order.
func BuildSources(results []retrieval.Result) []Source {
	sources := make([]Source, 0, len(results))
	for i, result := range results {
		id := i + 1
		chunk := result.Chunk
		segmentID := -1
		if len(chunk.SegmentIDs) > 0 {
			segmentID = chunk.SegmentIDs[0]
		}
		sources = append(sources, Source{
			ID:       id,
			SourceID: fmt.Sprintf("src_%d", id),
			Kind:     KindTranscript,
			Title:    fmt.Sprintf("Transcript [%s-%s]", FormatTimestamp(chunk.Start), FormatTimestamp(chunk.End)),
			Excerpt:  excerpt(chunk.Text, ExcerptChars),
			Score:    result.Score,
			Locator: Locator{
				Type:       KindTranscript,
				SessionDir: chunk.Session,
				ChunkID:    chunk.ID,
				SegmentID:  segmentID,
				TStart:     chunk.Start,
				TEnd:       chunk.End,
				TStartMS:   int64(chunk.Start * 1000),
				TEndMS:     int64(chunk.End * 1000),
				Anchor:     fmt.Sprintf("seg-%d", segmentID),
			},
			text: chunk.Text,
		})
	}
	return sources
}

// FormatTimestamp renders seconds as mm:ss; minutes are not wrapped at 60.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
