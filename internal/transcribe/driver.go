package transcribe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"studyscribe/internal/audio"
	"studyscribe/internal/services"
	"studyscribe/internal/transcript"
)

// Transcribe runs engine over windows in order and returns one ordered
// sequence of segments on the session timeline. The first failing window
// fails the whole run; no partial result is returned.
func Transcribe(ctx context.Context, engine Engine, windows []audio.Window, workDir string, report Reporter) ([]transcript.Segment, error) {
	if engine == nil {
		return nil, services.Wrap(services.ErrInferenceBackendUnavailable, "transcribe", "",
			errors.New("no transcription engine configured"))
	}
	if report == nil {
		report = nopReporter{}
	}
	total := len(windows)
	var out []transcript.Segment
	lastEnd := 0.0
	carry := ""
	for i, window := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := engine.Transcribe(ctx, window.Path, workDir)
		if err != nil {
			return nil, classifyEngineError(err, window)
		}
		var rebased []transcript.Segment
		rebased, carry = rebase(raw, window, lastEnd, carry)
		for _, seg := range rebased {
			seg.ID = len(out)
			out = append(out, seg)
			lastEnd = seg.End
		}
		if carry != "" && len(out) > 0 {
			out[len(out)-1].Text = joinText(out[len(out)-1].Text, carry)
			carry = ""
		}
		done := i + 1
		percent := int(math.Round(100 * float64(done) / float64(total)))
		if err := report.Progress(ctx, percent, fmt.Sprintf("Transcribing chunk %d/%d", done, total)); err != nil {
			return nil, fmt.Errorf("report progress: %w", err)
		}
	}
	if carry != "" {
		out = append(out, transcript.Segment{ID: len(out), Start: lastEnd, End: lastEnd + minSegmentSeconds, Text: carry})
	}
	if out == nil {
		out = []transcript.Segment{}
	}
	return out, nil
}

// minSegmentSeconds is the width given to recognized text whose own timing
// collapsed to nothing after clamping.
const minSegmentSeconds = 0.01

// rebase shifts window-relative segments onto the session timeline. Times are
// clamped to the window and to notBefore so windows can never overlap.
// Recognized text is never dropped: a segment that clamping leaves without
// width gets a minimal slot inside the window, or joins its neighbour when
// the window has no room left. carry is text from earlier windows still
// waiting for a segment; whatever cannot be placed is returned the same way.
func rebase(raw []transcript.Segment, window audio.Window, notBefore float64, carry string) ([]transcript.Segment, string) {
	sorted := slices.Clone(raw)
	slices.SortStableFunc(sorted, func(a, b transcript.Segment) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})

	windowEnd := math.Inf(1)
	if window.Duration > 0 {
		windowEnd = window.Offset + window.Duration
	}
	out := make([]transcript.Segment, 0, len(sorted))
	pending := carry
	cursor := max(notBefore, window.Offset)
	for _, seg := range sorted {
		text := strings.TrimSpace(seg.Text)
		start := window.Offset + max(seg.Start, 0)
		end := window.Offset + seg.End
		if math.IsNaN(start) {
			start = cursor
		}
		if math.IsNaN(end) {
			end = start
		}
		start = max(start, cursor)
		end = min(end, windowEnd)
		if !(start < end) {
			if text == "" {
				continue
			}
			start = max(cursor, min(start, windowEnd-minSegmentSeconds))
			end = min(start+minSegmentSeconds, windowEnd)
			if !(start < end) {
				if n := len(out); n > 0 {
					out[n-1].Text = joinText(out[n-1].Text, text)
				} else {
					pending = joinText(pending, text)
				}
				continue
			}
		}
		out = append(out, transcript.Segment{
			Start: start,
			End:   end,
			Text:  joinText(pending, text),
		})
		pending = ""
		cursor = end
	}
	return out, pending
}

func joinText(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}

func classifyEngineError(err error, window audio.Window) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if services.KindOf(err) != services.KindUnknown {
		return err
	}
	return services.Wrap(services.ErrInferenceFailure,
		fmt.Sprintf("transcribe chunk %d", window.Index), "", err)
}
