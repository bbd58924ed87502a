// Package agent holds the live persona instances and the factory that builds
// them from resolved configuration, the memory adapter and the declarative
// tool registry.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/voxhall/ensemble/core"
	"github.com/voxhall/ensemble/logging"
	"github.com/voxhall/ensemble/memory"
	"github.com/voxhall/ensemble/model"
	"github.com/voxhall/ensemble/persona"
	"github.com/voxhall/ensemble/tool"
)

// callLogger is the optional richer logging surface satisfied by
// *logging.TurnLogger. Instances record tool and model call metrics through
// it when available.
type callLogger interface {
	LogToolCall(tool string, dur time.Duration, success bool, err error)
	LogModelCall(model string, tokens int, dur time.Duration, success bool, err error)
}

// InstanceConfig bundles everything an Instance needs at construction.
type InstanceConfig struct {
	Persona   *persona.Config
	Model     model.Model
	Tools     []tool.Tool
	Memory    *memory.Adapter
	SessionID string
	MemoryID  string
	Invoker   core.SpecialistInvoker
	Logger    logging.Logger
}

// Instance is one live persona bound to a (persona, session, memory) triple.
// It owns the mutable transcript, fires memory hooks on every appended
// message, compacts history before each model call and runs the tool
// execution loop. An Instance serializes its own invocations; concurrent
// turns against the same instance queue up on its mutex.
type Instance struct {
	mu sync.Mutex

	cfg     *persona.Config
	mdl     model.Model
	tools   []tool.Tool
	byName  map[string]tool.Tool
	mem     *memory.Adapter
	invoker core.SpecialistInvoker
	logger  logging.Logger

	sessionID  string
	memoryID   string
	hooks      []memory.Hook
	history    memory.HistoryManager
	transcript []core.Message
}

// NewInstance builds a live instance from the given configuration.
func NewInstance(c InstanceConfig) *Instance {
	i := &Instance{
		cfg:     c.Persona,
		mdl:     c.Model,
		tools:   c.Tools,
		byName:  make(map[string]tool.Tool, len(c.Tools)),
		mem:     c.Memory,
		invoker: c.Invoker,
		logger:  c.Logger,
	}
	if i.logger == nil {
		i.logger = logging.NoOpLogger{}
	}
	for _, t := range c.Tools {
		i.byName[t.Name()] = t
	}
	i.rebind(c.SessionID, c.MemoryID)
	return i
}

// Name returns the persona name this instance serves.
func (i *Instance) Name() string { return i.cfg.Name }

// Config returns the resolved persona configuration.
func (i *Instance) Config() *persona.Config { return i.cfg }

// SessionID returns the session the instance is currently bound to.
func (i *Instance) SessionID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.sessionID
}

// rebind derives the memory hooks and history manager for the identifiers.
// Caller holds the lock except during construction.
func (i *Instance) rebind(sessionID, memoryID string) {
	i.sessionID = sessionID
	i.memoryID = memoryID
	if i.mem != nil {
		i.hooks = i.mem.BuildHooks(i.cfg.Name, sessionID, memoryID)
		i.history = i.mem.BuildHistoryManager(i.cfg.Name, sessionID, memoryID)
	}
}

// RefreshIdentifiers rebinds the instance to new session/memory identifiers,
// keeping the transcript. Used when the registry reuses a cached instance for
// a new turn of the same persona.
func (i *Instance) RefreshIdentifiers(sessionID, memoryID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.sessionID != sessionID || i.memoryID != memoryID {
		i.rebind(sessionID, memoryID)
	}
}

// SeedTranscript replaces the transcript, used when restoring a persona's
// saved context after a switch back. Hooks do not fire: the messages were
// already observed when first appended.
func (i *Instance) SeedTranscript(msgs []core.Message) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.transcript = core.CloneMessages(msgs)
}

// Transcript returns a copy of the current transcript.
func (i *Instance) Transcript() []core.Message {
	i.mu.Lock()
	defer i.mu.Unlock()
	return core.CloneMessages(i.transcript)
}

// SubmitInput appends the turn's input message to the transcript, firing
// memory hooks. Call once per turn before Stream or Complete so a blocking
// fallback re-invocation does not duplicate the input.
func (i *Instance) SubmitInput(ctx context.Context, msg core.Message) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.append(ctx, msg)
}

// append adds a message and fires hooks. Caller holds the lock.
func (i *Instance) append(ctx context.Context, msg core.Message) {
	i.transcript = append(i.transcript, msg)
	for _, h := range i.hooks {
		h.OnMessageAdded(ctx, msg)
	}
}

// buildRequest compacts history and assembles the model request. Caller
// holds the lock.
func (i *Instance) buildRequest(ctx context.Context, stream bool) (model.Request, error) {
	msgs := i.transcript
	if i.history != nil {
		compacted, err := i.history.Compact(ctx, msgs)
		if err != nil {
			return model.Request{}, fmt.Errorf("compact history: %w", err)
		}
		i.transcript = compacted
		msgs = compacted
	}

	req := model.Request{
		Instructions: i.cfg.Instructions,
		Messages:     core.CloneMessages(msgs),
		Stream:       stream,
		Params:       i.cfg.Params,
	}
	for _, t := range i.tools {
		req.Tools = append(req.Tools, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return req, nil
}

// Complete runs the blocking generation loop from the current transcript
// until the model produces a final text response, executing requested tools
// in between turns. Returns the final assistant text.
func (i *Instance) Complete(tc *core.TurnContext) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for {
		req, err := i.buildRequest(tc.Context, false)
		if err != nil {
			return "", err
		}

		final, err := i.drain(tc.Context, req)
		if err != nil {
			return "", err
		}

		i.append(tc.Context, final.Content)
		calls := final.Content.FunctionCalls()
		if len(calls) == 0 {
			return final.Content.Text(), nil
		}
		i.executeCalls(tc, calls)
	}
}

// Stream runs the generation loop in streaming mode, forwarding partial
// responses as they arrive. The returned channels are closed when the loop
// finishes; a value on the error channel means the stream broke and the
// caller should fall back to Complete.
func (i *Instance) Stream(tc *core.TurnContext) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 16)
	errOut := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errOut)

		i.mu.Lock()
		defer i.mu.Unlock()

		for {
			req, err := i.buildRequest(tc.Context, true)
			if err != nil {
				errOut <- err
				return
			}

			final, err := i.forward(tc.Context, req, out)
			if err != nil {
				errOut <- fmt.Errorf("%v: %w", err, core.ErrStreamFailure)
				return
			}

			i.append(tc.Context, final.Content)
			calls := final.Content.FunctionCalls()
			if len(calls) == 0 {
				return
			}
			i.executeCalls(tc, calls)
		}
	}()

	return out, errOut
}

// logModelCall records latency and token usage for one model call when the
// configured logger supports it.
func (i *Instance) logModelCall(start time.Time, final *model.Response, err error) {
	cl, ok := i.logger.(callLogger)
	if !ok {
		return
	}
	tokens := 0
	if final != nil && final.Usage != nil {
		tokens = final.Usage.TotalTokens
	}
	cl.LogModelCall(i.mdl.Info().Name, tokens, time.Since(start), err == nil, err)
}

// drain consumes one blocking model call and returns its final response.
func (i *Instance) drain(ctx context.Context, req model.Request) (final *model.Response, err error) {
	start := time.Now()
	defer func() { i.logModelCall(start, final, err) }()

	respCh, errCh := i.mdl.Generate(ctx, req)
	for {
		select {
		case resp, ok := <-respCh:
			if !ok {
				if final == nil {
					return nil, fmt.Errorf("model returned no response")
				}
				return final, nil
			}
			if !resp.Partial {
				r := resp
				final = &r
			}
		case err, ok := <-errCh:
			if ok && err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// forward consumes one streaming model call, copying partial responses to out
// and returning the final response.
func (i *Instance) forward(ctx context.Context, req model.Request, out chan<- model.Response) (final *model.Response, err error) {
	start := time.Now()
	defer func() { i.logModelCall(start, final, err) }()

	respCh, errCh := i.mdl.Generate(ctx, req)
	for {
		select {
		case resp, ok := <-respCh:
			if !ok {
				if final == nil {
					return nil, fmt.Errorf("stream ended without a final response")
				}
				return final, nil
			}
			if resp.Partial {
				select {
				case out <- resp:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			} else {
				r := resp
				final = &r
			}
		case err, ok := <-errCh:
			if ok && err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// executeCalls runs each requested tool and appends the tool responses to the
// transcript. Tool failures become error payloads in the response message;
// they never abort the turn. Caller holds the lock.
func (i *Instance) executeCalls(tc *core.TurnContext, calls []core.FunctionCall) {
	for _, call := range calls {
		start := time.Now()
		result, err := i.executeOne(tc, call)
		if cl, ok := i.logger.(callLogger); ok {
			cl.LogToolCall(call.Name, time.Since(start), err == nil, err)
		} else {
			i.logger.Info("tool executed",
				"persona", i.cfg.Name, "tool", call.Name,
				"duration_ms", time.Since(start).Milliseconds(), "error", err != nil)
		}

		fr := core.FunctionResponse{ID: call.ID, Name: call.Name}
		if err != nil {
			fr.Error = err.Error()
		} else {
			fr.Response = result
		}
		i.append(tc.Context, core.Message{
			Role:  core.RoleTool,
			Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: fr}},
		})
	}
}

func (i *Instance) executeOne(tc *core.TurnContext, call core.FunctionCall) (any, error) {
	t, ok := i.byName[call.Name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q: %w", call.Name, core.ErrToolFailure)
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return nil, fmt.Errorf("decode arguments for %q: %w", call.Name, err)
		}
	}

	toolCtx := core.NewToolContext(tc, call.ID, i.invoker)
	return t.Call(toolCtx, args)
}
