// Package llm wraps an OpenAI-compatible chat completions endpoint with
// retry, backoff, and Retry-After handling.
//
// The client exposes free-form and JSON-mode completions plus the transcript
// summarization used by the digest stage. DecodeLLMJSON tolerates the common
// formatting quirks of model output (code fences, prose around the JSON
// object) so callers get a parsed payload or a descriptive error.
//
// Transport-level retry here is plumbing only; stage-level retry stays with
// the pipeline caller.
package llm
