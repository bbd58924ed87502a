// Package core contains the shared primitives of Ensemble: role-based
// messages and their typed content parts, the response chunk envelope
// delivered to callers, the per-turn source collector, and the turn/tool
// execution contexts threaded through persona invocations.
//
// Higher level packages (agent, tool, session, pipeline) depend on core;
// core depends only on logging.
package core
