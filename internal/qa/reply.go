package qa

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"studyscribe/internal/services/llm"
)

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// Reply is the parsed model output.
type Reply struct {
	Answer         string
	AnswerMarkdown string
	Cited          []int
}

type replyPayload struct {
	Answer         string `json:"answer"`
	AnswerMarkdown string `json:"answer_markdown"`
	Cited          []int  `json:"cited"`
}

// ParseReply decodes the model output. Non-JSON replies are used verbatim as
// the answer. Citations come from the "cited" field when present, otherwise
// from [n] markers in the answer; numbers outside 1..sourceCount are dropped.
func ParseReply(content string, sourceCount int) Reply {
	var payload replyPayload
	if err := llm.DecodeLLMJSON(content, &payload); err != nil || (payload.Answer == "" && payload.AnswerMarkdown == "") {
		text := llm.StripCodeFence(content)
		payload = replyPayload{Answer: text, AnswerMarkdown: text}
	}
	reply := Reply{
		Answer:         strings.TrimSpace(payload.Answer),
		AnswerMarkdown: strings.TrimSpace(payload.AnswerMarkdown),
	}
	if reply.Answer == "" {
		reply.Answer = reply.AnswerMarkdown
	}
	if reply.AnswerMarkdown == "" {
		reply.AnswerMarkdown = reply.Answer
	}

	cited := payload.Cited
	if len(cited) == 0 {
		cited = extractCitations(reply.AnswerMarkdown + "\n" + reply.Answer)
	}
	reply.Cited = normalizeCitations(cited, sourceCount)
	return reply
}

func extractCitations(text string) []int {
	var out []int
	for _, match := range citationPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(match[1])
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}

func normalizeCitations(cited []int, sourceCount int) []int {
	out := make([]int, 0, len(cited))
	for _, n := range cited {
		if n < 1 || n > sourceCount || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
