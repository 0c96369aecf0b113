// Package llm provides the chat-completion client used for both metadata
// inference and validation. The backend is any OpenAI-compatible endpoint;
// the expected deployment is a local Ollama server. Requests are JSON-only
// and responses pass through DecodeLLMJSON, which tolerates the formatting
// quirks local models produce (code fences, prose around the object).
package llm
