package search

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced synchronously to the caller before any batch
// is dispatched (ErrNoComputeDevice), or as the session's terminal error
// (ErrAllDevicesFailed).
var (
	// ErrNoComputeDevice means device enumeration produced an empty
	// active set at session start. Fatal and non-retryable; there is no
	// silent CPU fallback.
	ErrNoComputeDevice = errors.New("search: no compute device available")

	// ErrAllDevicesFailed means every device was removed from the active
	// set mid-session. The session ends; already-delivered results remain
	// valid.
	ErrAllDevicesFailed = errors.New("search: all compute devices failed")
)

// SpecError reports a malformed or unsatisfiable Spec. It is returned by
// Spec.Validate and by Run before any work begins.
type SpecError struct {
	Field  string
	Reason string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("search: invalid spec: %s: %s", e.Field, e.Reason)
}

// IsInvalidSpec reports whether err is a spec validation failure.
func IsInvalidSpec(err error) bool {
	var se *SpecError
	return errors.As(err, &se)
}

// DeviceError reports that a single device became unusable mid-session.
// It is delivered at most once per device on the session's warnings
// channel; the session continues on the remaining devices.
type DeviceError struct {
	DeviceID string
	Err      error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("search: device %s failed: %v", e.DeviceID, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// DerivationError reports a candidate whose host-side re-derivation did
// not reproduce a valid matching keypair. Given fixed 32-byte seeds this
// should be unreachable; when it occurs the affected batch is aborted and
// the error surfaces as a warning, not a session failure.
type DerivationError struct {
	DeviceID string
	Offset   uint64
	Err      error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("search: device %s: candidate at offset %d failed derivation: %v", e.DeviceID, e.Offset, e.Err)
}

func (e *DerivationError) Unwrap() error { return e.Err }
