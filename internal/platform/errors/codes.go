// Package errors provides structured error handling with stable machine codes.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Shift errors
	CodeShiftInvalidRequest    Code = "SHIFT_INVALID_REQUEST"
	CodeShiftInvalidTransition Code = "SHIFT_INVALID_TRANSITION"
	CodeShiftNotFound          Code = "SHIFT_NOT_FOUND"
	CodeShiftAlreadyStarted    Code = "SHIFT_ALREADY_STARTED"

	// Event journal errors
	CodeEventVersionConflict Code = "EVENT_VERSION_CONFLICT"
	CodeEventUnknownKind     Code = "EVENT_UNKNOWN_KIND"

	// Stats query errors
	CodeStatsInvalidYear   Code = "STATS_INVALID_YEAR"
	CodeStatsInvalidMonth  Code = "STATS_INVALID_MONTH"
	CodeStatsInvalidWorker Code = "STATS_INVALID_WORKER"
	CodeStatsNotFound      Code = "STATS_NOT_FOUND"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// BadRequest - validation failures and commands the current state disallows
	case CodeShiftInvalidRequest,
		CodeShiftInvalidTransition,
		CodeStatsInvalidYear,
		CodeStatsInvalidMonth,
		CodeStatsInvalidWorker:
		return http.StatusBadRequest

	// Conflict - duplicate starts and raced appends; callers can retry the whole command
	case CodeShiftAlreadyStarted,
		CodeEventVersionConflict:
		return http.StatusConflict

	// NotFound - missing streams or derived records
	case CodeShiftNotFound,
		CodeStatsNotFound,
		CodeNotFound:
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}
