package retrieval

import (
	"strings"
	"unicode/utf8"

	"studyscribe/internal/transcript"
)

// Chunk is a retrieval window over consecutive transcript segments.
type Chunk struct {
	ID         int     `json:"chunk_id"`
	Text       string  `json:"text"`
	Start      float64 `json:"t_start"`
	End        float64 `json:"t_end"`
	SegmentIDs []int   `json:"segment_ids"`
	// Session is the session directory the chunk was loaded from. It is only
	// set at query time when several sessions are searched together.
	Session string `json:"session,omitempty"`
}

// Params sizes the chunk windows, in characters.
type Params struct {
	TargetChars  int
	OverlapChars int
}

// normalized clamps sizes so every chunk makes progress.
func (p Params) normalized() Params {
	if p.TargetChars < 1 {
		p.TargetChars = 1
	}
	if p.OverlapChars < 0 {
		p.OverlapChars = 0
	}
	if p.OverlapChars >= p.TargetChars {
		p.OverlapChars = p.TargetChars - 1
	}
	return p
}

// BuildChunks groups consecutive segments into chunks of at least
// TargetChars characters. Each chunk after the first starts by re-including
// trailing segments of its predecessor until at least OverlapChars of text
// is shared, at most back to the predecessor's first segment. A segment is
// never split, so one long segment may form a chunk on its own.
// Empty segments contribute no text but keep their id.
func BuildChunks(segments []transcript.Segment, params Params) []Chunk {
	params = params.normalized()
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = strings.TrimSpace(seg.Text)
	}

	chunks := make([]Chunk, 0)
	start, prevEnd := 0, 0
	for start < len(segments) {
		end := start
		var acc textLen
		for end < len(segments) {
			acc.add(texts[end])
			end++
			if end > prevEnd && acc.total() >= params.TargetChars {
				break
			}
		}
		chunks = append(chunks, newChunk(len(chunks), segments[start:end], texts[start:end]))
		if end >= len(segments) {
			break
		}

		next := end
		var overlap textLen
		for next > start && overlap.total() < params.OverlapChars {
			next--
			overlap.add(texts[next])
		}
		start, prevEnd = next, end
	}
	return chunks
}

func newChunk(id int, segments []transcript.Segment, texts []string) Chunk {
	ids := make([]int, len(segments))
	parts := make([]string, 0, len(segments))
	for i, seg := range segments {
		ids[i] = seg.ID
		if texts[i] != "" {
			parts = append(parts, texts[i])
		}
	}
	return Chunk{
		ID:         id,
		Text:       strings.Join(parts, " "),
		Start:      segments[0].Start,
		End:        segments[len(segments)-1].End,
		SegmentIDs: ids,
	}
}

// textLen tracks the rune length of non-empty texts joined by single spaces.
type textLen struct {
	runes int
	parts int
}

func (l *textLen) add(text string) {
	if text == "" {
		return
	}
	l.runes += utf8.RuneCountInString(text)
	l.parts++
}

func (l textLen) total() int {
	if l.parts == 0 {
		return 0
	}
	return l.runes + l.parts - 1
}
