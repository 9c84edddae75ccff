// Package errors defines the error taxonomy of the snapshot engine.
//
// The engine distinguishes two failure scopes: run-level failures
// (SharedInputUnavailable, PersistenceFailure, Unauthorized) abort the whole
// run before or after any per-device work, while DeviceSkipped is a
// per-device, non-fatal condition that only increments a counter. Callers
// must never be able to confuse the two, so they are distinct types.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rig-profit/internal/types"
)

// UnauthorizedError means the trigger credential was rejected; no work is done.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized trigger: %s", e.Reason)
}

// NewUnauthorizedError creates an unauthorized trigger error
func NewUnauthorizedError(reason string) *UnauthorizedError {
	return &UnauthorizedError{Reason: reason}
}

// SharedInputError means a global precondition of the run failed: the payout
// feed was unreachable, or both reference-price tiers were unusable. The whole
// run aborts with zero snapshots written.
type SharedInputError struct {
	Input string // "payout_feed", "reference_price", "fx_rates"
	Cause error
}

func (e *SharedInputError) Error() string {
	return fmt.Sprintf("shared input unavailable: %s: %v", e.Input, e.Cause)
}

func (e *SharedInputError) Unwrap() error {
	return e.Cause
}

// NewSharedInputError creates a shared-input failure for the named input
func NewSharedInputError(input string, cause error) *SharedInputError {
	return &SharedInputError{Input: input, Cause: cause}
}

// DeviceSkippedError marks a single device that could not be computed. The
// orchestrator counts it and continues the loop.
type DeviceSkippedError struct {
	DeviceID string
	Reason   types.SkipReason
	Cause    error
}

func (e *DeviceSkippedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("device %s skipped: %s: %v", e.DeviceID, e.Reason, e.Cause)
	}
	return fmt.Sprintf("device %s skipped: %s", e.DeviceID, e.Reason)
}

func (e *DeviceSkippedError) Unwrap() error {
	return e.Cause
}

// NewDeviceSkippedError creates a per-device skip error
func NewDeviceSkippedError(deviceID string, reason types.SkipReason, cause error) *DeviceSkippedError {
	return &DeviceSkippedError{DeviceID: deviceID, Reason: reason, Cause: cause}
}

// PersistenceError means the final batch write failed. The run is reported
// failed even though computation succeeded, since nothing was durably recorded.
type PersistenceError struct {
	Operation string
	Cause     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Operation, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// NewPersistenceError creates a persistence failure error
func NewPersistenceError(operation string, cause error) *PersistenceError {
	return &PersistenceError{Operation: operation, Cause: cause}
}

// PriceUnavailableError means both the live fetch and the persisted fallback
// were unusable for the reference price.
type PriceUnavailableError struct {
	Cause error
}

func (e *PriceUnavailableError) Error() string {
	return fmt.Sprintf("reference price unavailable: %v", e.Cause)
}

func (e *PriceUnavailableError) Unwrap() error {
	return e.Cause
}

// NewPriceUnavailableError creates a price-unavailable error
func NewPriceUnavailableError(cause error) *PriceUnavailableError {
	return &PriceUnavailableError{Cause: cause}
}

// IsUnauthorized reports whether err is a trigger authorization failure
func IsUnauthorized(err error) bool {
	var target *UnauthorizedError
	return errors.As(err, &target)
}

// IsSharedInput reports whether err is a run-level shared-input failure
func IsSharedInput(err error) bool {
	var target *SharedInputError
	return errors.As(err, &target)
}

// IsDeviceSkipped reports whether err is a per-device skip
func IsDeviceSkipped(err error) bool {
	var target *DeviceSkippedError
	return errors.As(err, &target)
}

// IsPersistence reports whether err is a batch-write failure
func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

// SkipReasonOf extracts the skip reason from a device-skipped error, or
// SkipComputeError when err is some other per-device failure.
func SkipReasonOf(err error) types.SkipReason {
	var target *DeviceSkippedError
	if errors.As(err, &target) {
		return target.Reason
	}
	return types.SkipComputeError
}

// HTTPStatus maps an engine error to the status code of the trigger endpoint.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsUnauthorized(err):
		return http.StatusUnauthorized
	case IsSharedInput(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode maps an engine error to a stable machine-readable code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case IsUnauthorized(err):
		return "UNAUTHORIZED"
	case IsSharedInput(err):
		return "SHARED_INPUT_UNAVAILABLE"
	case IsPersistence(err):
		return "PERSISTENCE_FAILURE"
	default:
		return "INTERNAL_ERROR"
	}
}
