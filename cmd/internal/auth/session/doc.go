// Package session implements tube's authentication session lifecycle.
//
// It issues short-lived signed access tokens and long-lived rotating refresh
// tokens, validates them on protected requests, and enforces the single-slot
// session model: exactly one refresh token is live per user at any time,
// stored on the user record itself. A successful refresh atomically replaces
// the stored token; presenting a superseded or cleared token is treated as
// reuse and rejected.
package session
