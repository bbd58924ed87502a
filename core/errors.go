package core

import "errors"

// Failure taxonomy. Errors are matched with errors.Is so wrapping with
// fmt.Errorf("%w") preserves the category.
var (
	// ErrConfigurationMissing marks an absent or unreadable configuration
	// source (application config file, persona definition tree). Per-persona
	// gaps inside a loaded tree degrade to placeholder guidance instead.
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrConstructionFailure marks a failed model or instance build. The
	// turn cannot proceed and aborts with a caller-visible error chunk.
	ErrConstructionFailure = errors.New("instance construction failed")

	// ErrStreamFailure marks a recoverable streaming failure that triggers
	// the blocking fallback.
	ErrStreamFailure = errors.New("stream failed")

	// ErrFallbackFailure marks the terminal case where both streaming and
	// the blocking fallback failed.
	ErrFallbackFailure = errors.New("fallback invocation failed")

	// ErrToolFailure marks a failed tool invocation. Caught at the tool
	// boundary and surfaced inline so the parent turn continues.
	ErrToolFailure = errors.New("tool invocation failed")

	// ErrDepthExceeded marks a specialist invocation chain deeper than
	// MaxSpecialistDepth. Fails closed.
	ErrDepthExceeded = errors.New("specialist invocation depth exceeded")
)

// Caller-visible error prefixes. Every failed turn ends with a chunk carrying
// one of these; the pipeline never silently drops a turn.
const (
	ErrorPrefix      = "❌ ERROR: "
	FatalErrorPrefix = "❌ FATAL ERROR: "
)
