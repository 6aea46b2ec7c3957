package model

import (
	"encoding/json"
	"fmt"
)

// Result is either a successful payload or a failure message from an upstream
// collaborator (search, scrape, transcript, generation). Failures are carried as
// data so the rest of the pipeline can render them instead of aborting.
type Result[T any] struct {
	value   T
	message string
	ok      bool
}

// Success wraps a payload
func Success[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Failure wraps an upstream failure message
func Failure[T any](message string) Result[T] {
	return Result[T]{message: message}
}

// Failuref is Failure with formatting
func Failuref[T any](format string, args ...interface{}) Result[T] {
	return Failure[T](fmt.Sprintf(format, args...))
}

// Get returns the payload and whether the result is a success
func (r Result[T]) Get() (T, bool) {
	return r.value, r.ok
}

// OK reports whether the result is a success
func (r Result[T]) OK() bool {
	return r.ok
}

// Message returns the failure message (empty on success)
func (r Result[T]) Message() string {
	return r.message
}

type resultJSON[T any] struct {
	OK    bool   `json:"ok"`
	Value *T     `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// MarshalJSON encodes the result as {"ok":true,"value":...} or {"ok":false,"error":"..."}
func (r Result[T]) MarshalJSON() ([]byte, error) {
	out := resultJSON[T]{OK: r.ok, Error: r.message}
	if r.ok {
		v := r.value
		out.Value = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the MarshalJSON form
func (r *Result[T]) UnmarshalJSON(data []byte) error {
	var in resultJSON[T]
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.OK {
		var v T
		if in.Value != nil {
			v = *in.Value
		}
		*r = Success(v)
		return nil
	}
	*r = Failure[T](in.Error)
	return nil
}
