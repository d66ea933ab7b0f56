// Package errors provides structured domain errors that map onto gRPC
// statuses and chat error frames.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Command errors
	CodeCommandEmpty    Code = "COMMAND_EMPTY"
	CodeCommandUnknown  Code = "COMMAND_UNKNOWN"
	CodeCommandUsage    Code = "COMMAND_USAGE"
	CodeActorIDRequired Code = "ACTOR_ID_REQUIRED"
	CodeGroupRequired   Code = "GROUP_REQUIRED"

	// Dice errors
	CodeDiceMissing           Code = "DICE_MISSING"
	CodeDiceInvalidSpec       Code = "DICE_INVALID_SPEC"
	CodeDualityInvalidDie     Code = "DUALITY_INVALID_DIE"
	CodeDualityInvalidDiff    Code = "DUALITY_INVALID_DIFFICULTY"
	CodeDualityInvalidAttrKey Code = "DUALITY_INVALID_ATTRIBUTE"

	// Storage errors
	CodeNotFound         Code = "NOT_FOUND"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeCommandEmpty,
		CodeCommandUnknown,
		CodeCommandUsage,
		CodeActorIDRequired,
		CodeDiceMissing,
		CodeDiceInvalidSpec,
		CodeDualityInvalidDie,
		CodeDualityInvalidDiff,
		CodeDualityInvalidAttrKey:
		return codes.InvalidArgument

	case CodeGroupRequired:
		return codes.FailedPrecondition

	case CodeNotFound:
		return codes.NotFound

	case CodeStoreUnavailable:
		return codes.Unavailable

	default:
		return codes.Internal
	}
}

// Retryable reports whether a caller may repeat the request unchanged.
func (c Code) Retryable() bool {
	return c == CodeStoreUnavailable
}
