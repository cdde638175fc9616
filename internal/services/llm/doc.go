// Package llm provides an OpenAI-compatible chat client (OpenRouter by
// default) and the transcript Translator built on it.
//
// # Entry Points
//
// NewClient: construct a client from Config.
// Client.CompleteJSON: send system/user prompts, receive a JSON payload.
// NewTranslator / Translator.Translate: chunked JSON-mode translation.
//
// # Retry Behaviour
//
// Requests are retried on HTTP 408/429/5xx, empty completions and network
// timeouts with exponential backoff (base 1s, max 10s, 5 attempts by
// default). A Retry-After header wins over the computed delay. Context
// cancellation aborts retries immediately.
package llm
