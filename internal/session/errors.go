package session

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected        = errors.New("no wallet connected")
	ErrInvalidAddress      = errors.New("invalid recipient address")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidFeeTier      = errors.New("invalid fee tier")
)

// ValidationError reports bad user input, detected before any network call.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Send stages, in order.
const (
	StageFeeEstimate = "fee estimate"
	StageNonce       = "nonce"
	StageSign        = "sign"
	StageBroadcast   = "broadcast"
)

// SendError reports a send that failed after validation. No pending entry
// is recorded for a failed send.
type SendError struct {
	Stage string
	Err   error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send failed at %s: %v", e.Stage, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
