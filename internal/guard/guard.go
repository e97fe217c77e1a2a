// Package guard implements the authorization checks that run before a
// gateway operation, and the chain that composes them.
package guard

import (
	"context"
	"encoding/json"

	"accountd/internal/token"
)

// Request is the per-request bag guards read from. It is constructed fresh
// for every request and never persisted.
type Request struct {
	// RawToken is the bearer token as supplied by the caller, "" when absent.
	RawToken string
	// Claims are decoded without verification so guards and handlers can
	// read them optimistically. Authenticated is the authoritative check.
	Claims token.Claims
	// IP is the caller address as seen by the transport layer.
	IP string
	// RequestID identifies the request in logs and error reports.
	RequestID string
}

// Result is the outcome of a single guard.
type Result struct {
	err error
}

// Continue lets the chain proceed to the next guard.
func Continue() Result { return Result{} }

// Skip reports that the guard has no objection. It behaves exactly like
// Continue; the name survives from the sentinel-value combinator this
// replaced, where "skip" meant pass-through.
func Skip() Result { return Result{} }

// Deny stops the chain with the given error. Remaining guards and the
// handler do not run.
func Deny(err error) Result { return Result{err: err} }

// Denied reports whether the guard rejected the request.
func (r Result) Denied() bool { return r.err != nil }

// Err returns the rejection error, nil unless Denied.
func (r Result) Err() error { return r.err }

// Guard is a single authorization check. Guards see only the shared request
// context, never each other's output.
type Guard func(ctx context.Context, req *Request) Result

// Handler executes a gateway operation once every guard has passed.
type Handler func(ctx context.Context, req *Request, vars json.RawMessage) (any, error)

// Chain folds the guards over the handler in declaration order. Evaluation
// is strictly sequential and fail-fast: the first denial propagates and
// nothing after it runs.
func Chain(h Handler, guards ...Guard) Handler {
	return func(ctx context.Context, req *Request, vars json.RawMessage) (any, error) {
		for _, g := range guards {
			if res := g(ctx, req); res.Denied() {
				return nil, res.Err()
			}
		}
		return h(ctx, req, vars)
	}
}
