// Package cos provides common low-level types and utilities shared across
// critter, the way aistore's cmn/cos does for the teacher codebase — here
// narrowed to the §7 error taxonomy and a handful of numeric helpers.
/*
 * Copyright (c) 2020-2026, Critter Authors. All rights reserved.
 */
package cos

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind enumerates the §7 error taxonomy.
type Kind int

const (
	KindDuplicateRequest Kind = iota
	KindUnknownRequest
	KindCostModelDomain
	KindProbeFailed
	KindStreamIOFailure
)

func (k Kind) String() string {
	switch k {
	case KindDuplicateRequest:
		return "duplicate-request"
	case KindUnknownRequest:
		return "unknown-request"
	case KindCostModelDomain:
		return "cost-model-domain"
	case KindProbeFailed:
		return "probe-failed"
	case KindStreamIOFailure:
		return "stream-io-failure"
	default:
		return "unknown"
	}
}

// Err is the one error type every §7 condition is reported as; Kind lets
// callers branch with errors.As without string-matching messages.
type Err struct {
	Kind   Kind
	Detail string
	cause  error
}

func (e *Err) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("critter: %s: %s: %v", e.Kind, e.Detail, e.cause)
	}
	return fmt.Sprintf("critter: %s: %s", e.Kind, e.Detail)
}

func (e *Err) Unwrap() error { return e.cause }

func newErr(k Kind, format string, args ...any) *Err {
	return &Err{Kind: k, Detail: fmt.Sprintf(format, args...)}
}

func NewDuplicateRequest(req any) error {
	return errors.WithStack(newErr(KindDuplicateRequest, "request handle %v already registered", req))
}

func NewUnknownRequest(req any) error {
	return errors.WithStack(newErr(KindUnknownRequest, "request handle %v not found", req))
}

func NewCostModelDomain(format string, args ...any) error {
	return errors.WithStack(newErr(KindCostModelDomain, format, args...))
}

func NewProbeFailed(routine string, cause error) error {
	e := newErr(KindProbeFailed, "synchronizing probe failed for %s", routine)
	e.cause = cause
	return errors.WithStack(e)
}

func NewStreamIOFailure(path string, cause error) error {
	e := newErr(KindStreamIOFailure, "visualisation stream I/O failed for %s", path)
	e.cause = cause
	return errors.WithStack(e)
}

// Is reports whether err carries the given Kind, unwrapping pkg/errors
// stack wrappers the way the teacher's IsErrConnectionX helpers unwrap
// syscall errors.
func Is(err error, k Kind) bool {
	var e *Err
	return errors.As(err, &e) && e.Kind == k
}

// NonZero returns a if non-zero, else b — mirrors cos.NonZero's
// first-non-default-wins idiom used throughout the teacher's config code.
func NonZero[T comparable](a, b T) T {
	var zero T
	if a != zero {
		return a
	}
	return b
}

// ClampNonNeg is cos.ClampDuration's float analogue: a measured duration
// or cost component is never allowed to go negative (§8 non-negativity).
func ClampNonNeg(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
