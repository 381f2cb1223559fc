// Package httpjson is tube's HTTP JSON codec: one response envelope and one
// strict request decoder, shared by every API package so clients see a
// single wire contract.
//
// Errors serialize as {"error": {"code": "...", "message": "..."}}. Codes
// are stable machine-readable identifiers; messages are human-readable and
// never carry internals.
package httpjson

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// ErrorBody is the error payload carried inside the envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope wraps an ErrorBody on the wire.
type Envelope struct {
	Error ErrorBody `json:"error"`
}

// Decode failure sentinels, matchable with errors.Is.
var (
	// ErrEmptyBody is returned for a request without a body.
	ErrEmptyBody = errors.New("httpjson: empty body")

	// ErrTooLarge is returned when the body exceeds the byte limit.
	ErrTooLarge = errors.New("httpjson: body too large")

	// ErrTrailingData is returned when bytes follow the first JSON value.
	ErrTrailingData = errors.New("httpjson: trailing data after JSON value")
)

// Write encodes v as the response body. Auth and session payloads flow
// through here, so every response is marked non-cacheable.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes the error envelope.
func Error(w http.ResponseWriter, status int, code, msg string) {
	Write(w, status, Envelope{Error: ErrorBody{Code: code, Message: msg}})
}

// Decode reads a single JSON value into dst. The body is capped at maxBytes,
// unknown fields are rejected, and nothing may follow the first value.
func Decode(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrTooLarge
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return ErrTrailingData
	}
	return nil
}
