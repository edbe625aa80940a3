// Package translation translates folders of chunk files through a pluggable
// backend. OpenAI and Gemini chat models are supported, plus an identity
// backend for dry runs. Backends can be wrapped with a circuit breaker, a
// fallback backend and an in-memory or SQLite translation cache.
package translation
