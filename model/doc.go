// Package model defines the normalized request/response contract between
// persona instances and language model providers, plus a scriptable MockModel
// for tests. Provider adapters live in the anthropic and openai subpackages.
package model
