// Package endpoint implements the runtime contract generated form
// handlers serve: a strict, sequential request state machine covering
// origin policy, a field allow-list, honeypot spam dropping, per-field
// sanitizing and validation, an upload pipeline with content sniffing,
// fixed-window rate limiting with a fail-open store, and plain-text or
// multipart mail dispatch.
//
// Generated programs construct a Handler from the compiled
// configuration embedded at generation time; the handler holds no
// other state, so any number of form endpoints can run side by side
// sharing nothing but the counter store they are configured with.
package endpoint
