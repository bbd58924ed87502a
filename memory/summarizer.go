package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/voxhall/ensemble/core"
)

// Defaults for the in-process summarizer.
const (
	// DefaultSummaryRatio is the fraction of overflow messages condensed
	// into the summary; the remainder is dropped outright.
	DefaultSummaryRatio = 0.5

	// DefaultKeepRecent is the number of most-recent messages always
	// preserved verbatim.
	DefaultKeepRecent = 6

	// summaryExcerptLen bounds the excerpt taken from each summarized
	// message.
	summaryExcerptLen = 100
)

// Summarizer is the pure in-process HistoryManager used when no memory is
// configured. When a transcript grows past the verbatim window it condenses
// the newest DefaultSummaryRatio share of the overflow into a single
// assistant summary message and drops the rest, always preserving the
// keepRecent most-recent messages untouched.
type Summarizer struct {
	ratio      float64
	keepRecent int
}

// NewSummarizer constructs a Summarizer with the fixed default ratio and
// verbatim window.
func NewSummarizer() *Summarizer {
	return &Summarizer{ratio: DefaultSummaryRatio, keepRecent: DefaultKeepRecent}
}

// Compact implements HistoryManager.
func (s *Summarizer) Compact(_ context.Context, msgs []core.Message) ([]core.Message, error) {
	if len(msgs) <= s.keepRecent {
		return core.CloneMessages(msgs), nil
	}

	overflow := msgs[:len(msgs)-s.keepRecent]
	recent := msgs[len(msgs)-s.keepRecent:]

	summarized := int(float64(len(overflow)) * s.ratio)
	if summarized < 1 {
		summarized = 1
	}
	// Condense the newest part of the overflow; the oldest part is dropped.
	condensed := overflow[len(overflow)-summarized:]

	var b strings.Builder
	b.WriteString("Conversation summary:\n")
	for _, m := range condensed {
		text := m.Text()
		if text == "" {
			continue
		}
		if len(text) > summaryExcerptLen {
			text = text[:summaryExcerptLen] + "…"
		}
		fmt.Fprintf(&b, "- %s: %s\n", m.Role, text)
	}

	out := make([]core.Message, 0, len(recent)+1)
	out = append(out, core.NewAssistantMessage(b.String()))
	out = append(out, recent...)
	return out, nil
}
