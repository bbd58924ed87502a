package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/voxhall/ensemble/agent"
	"github.com/voxhall/ensemble/core"
	"github.com/voxhall/ensemble/logging"
	"github.com/voxhall/ensemble/session"
)

// DefaultModelTimeout is the single generous timeout applied to a turn's
// model work. It is not overridable per tool call.
const DefaultModelTimeout = 5 * time.Minute

// AttachmentSummarizer pre-processes document attachments into text before
// the model sees them. The summarization engine itself is an external
// collaborator.
type AttachmentSummarizer interface {
	Summarize(ctx context.Context, doc core.DocumentPart) (string, error)
}

// Options holds dependency overrides passed to New.
type Options struct {
	Logger       logging.Logger
	Summarizer   AttachmentSummarizer
	ModelTimeout time.Duration
}

// Pipeline executes one turn end to end. Delivery is streaming-first: any
// error on the streaming path re-invokes the same instance as a blocking call
// and re-segments the full text into pseudo-chunks. The caller always
// receives either substantive content or a prefixed error chunk; a turn is
// never silently dropped.
type Pipeline struct {
	registry   *session.Registry
	summarizer AttachmentSummarizer
	timeout    time.Duration
	logger     logging.Logger
}

// New constructs a Pipeline over the session registry.
func New(registry *session.Registry, optFns ...func(o *Options)) *Pipeline {
	opts := Options{Logger: logging.NoOpLogger{}, ModelTimeout: DefaultModelTimeout}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Pipeline{
		registry:   registry,
		summarizer: opts.Summarizer,
		timeout:    opts.ModelTimeout,
		logger:     opts.Logger,
	}
}

// Run executes the turn and returns the chunk stream. The channel is closed
// when the turn completes, in either a success or an error terminal state.
func (p *Pipeline) Run(ctx context.Context, req *TurnRequest) <-chan core.Chunk {
	out := make(chan core.Chunk, 16)
	go func() {
		defer close(out)
		p.run(ctx, req, out)
	}()
	return out
}

func (p *Pipeline) run(ctx context.Context, req *TurnRequest, out chan<- core.Chunk) {
	start := time.Now()
	params := req.normalize()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	end := p.registry.BeginTurn(params.sessionID)
	defer end()

	tc := core.NewTurnContext(ctx, params.sessionID, params.memoryID, params.personaName, p.logger)

	inst, err := p.registry.Resolve(params.sessionID, params.personaName, params.memoryID)
	if err != nil {
		p.logger.Error("session resolution failed",
			"session_id", params.sessionID, "persona", params.personaName, "error", err.Error())
		out <- core.TextChunk(core.ErrorPrefix + err.Error())
		return
	}

	input, err := p.buildInput(ctx, req, inst)
	if err != nil {
		p.logger.Error("input assembly failed",
			"session_id", params.sessionID, "error", err.Error())
		out <- core.TextChunk(core.ErrorPrefix + err.Error())
		return
	}
	inst.SubmitInput(ctx, input)

	chunks, fallback, err := p.deliver(tc, inst, params.stream, out)
	if err != nil {
		out <- core.TextChunk(core.FatalErrorPrefix + err.Error())
	} else if !tc.Collector.Empty() {
		out <- core.SourcesChunk{Type: "sources", Sources: tc.Collector.Snapshot()}
	}

	p.logTurn(tc, inst, chunks, fallback, time.Since(start), err)
}

// deliver runs the STREAM state and, on any streaming error, the blocking
// fallback. Returns the number of content chunks emitted and whether the
// fallback path ran.
func (p *Pipeline) deliver(tc *core.TurnContext, inst *agent.Instance, stream bool, out chan<- core.Chunk) (int, bool, error) {
	chunks := 0

	if stream {
		respCh, errCh := inst.Stream(tc)
		for resp := range respCh {
			if strings.TrimSpace(resp.Content.Text()) == "" {
				continue
			}
			out <- core.MessageChunk{
				Message:  resp.Content,
				TeamName: inst.Config().TeamName,
				TurnID:   tc.TurnID,
			}
			chunks++
		}
		streamErr := <-errCh
		if streamErr == nil {
			return chunks, false, nil
		}
		p.logger.Warn("stream failed, falling back to blocking invocation",
			"session_id", tc.SessionID, "persona", tc.PersonaName, "error", streamErr.Error())
	}

	text, err := inst.Complete(tc)
	if err != nil {
		p.logger.Error("blocking fallback failed",
			"session_id", tc.SessionID, "persona", tc.PersonaName, "error", err.Error())
		return chunks, stream, fmt.Errorf("%v: %w", err, core.ErrFallbackFailure)
	}
	for _, seg := range Segment(text) {
		out <- core.TextChunk(seg)
		chunks++
	}
	return chunks, stream, nil
}

// buildInput assembles the turn's user message: prompt text, the
// pre-processed context block for attachments, and a trailing cache point
// when the persona supports prompt caching.
func (p *Pipeline) buildInput(ctx context.Context, req *TurnRequest, inst *agent.Instance) (core.Message, error) {
	parts, err := req.promptParts()
	if err != nil {
		return core.Message{}, err
	}

	var text strings.Builder
	var summaries []string
	for _, part := range parts {
		if part.Text != "" {
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(part.Text)
		}
		if part.Document != nil {
			summary := p.summarizeDocument(ctx, part.Document)
			if summary != "" {
				summaries = append(summaries, summary)
			}
		}
	}
	if len(summaries) > 0 {
		text.WriteString("\n\nPre-processed context:\n")
		text.WriteString(strings.Join(summaries, "\n"))
	}

	msgParts := []core.Part{core.TextPart{Text: text.String()}}
	if inst.Config().SupportsCaching {
		msgParts = append(msgParts, core.CachePointPart{})
	}
	return core.Message{Role: core.RoleUser, Parts: msgParts}, nil
}

func (p *Pipeline) summarizeDocument(ctx context.Context, ref *DocumentRef) string {
	doc := core.DocumentPart{Name: ref.Name, Format: ref.Format, Bytes: ref.Bytes}
	if p.summarizer == nil {
		p.logger.Warn("no attachment summarizer configured, skipping document", "name", ref.Name)
		return ""
	}
	summary, err := p.summarizer.Summarize(ctx, doc)
	if err != nil {
		p.logger.Warn("attachment summarization failed, skipping document",
			"name", ref.Name, "error", err.Error())
		return ""
	}
	return fmt.Sprintf("[%s] %s", ref.Name, summary)
}

func (p *Pipeline) logTurn(tc *core.TurnContext, inst *agent.Instance, chunks int, fallback bool, dur time.Duration, err error) {
	if tl, ok := p.logger.(*logging.TurnLogger); ok {
		tl.WithSession(tc.SessionID, tc.TurnID).LogTurn(inst.Name(), chunks, fallback, dur, err)
		return
	}
	p.logger.Info("turn completed",
		"session_id", tc.SessionID, "turn_id", tc.TurnID, "persona", inst.Name(),
		"chunks", chunks, "fallback", fallback, "duration_ms", dur.Milliseconds(), "error", err != nil)
}
