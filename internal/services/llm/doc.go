// Package llm wraps an OpenAI-compatible chat completion endpoint used to
// synthesize answers from retrieved transcript context.
//
// The client always requests JSON output. Calls rejected with HTTP 408, 429
// or 5xx are retried with exponential backoff; any other failure is returned
// tagged as a generation failure. A missing key or model is a configuration
// error and no request is sent.
//
// DecodeLLMJSON tolerates the usual model quirks (code fences, prose around
// the object) when decoding replies.
package llm
