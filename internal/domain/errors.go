package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound is returned when a requested transaction doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrExecutionInProgress is returned when an execution command is issued
	// while another run is still in flight
	ErrExecutionInProgress = errors.New("execution already in progress")

	// ErrInvalidTransition is returned when a status change is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrRecordNotFound is returned by storage backends when no record is stored
	ErrRecordNotFound = errors.New("record not found")

	// ErrUnknownNetwork is returned when a network name is not configured
	ErrUnknownNetwork = errors.New("unknown network")

	// ErrInvalidAddress is returned when an Ethereum address is invalid
	ErrInvalidAddress = errors.New("invalid address")

	// ErrSignerNotFound is returned when no signer is registered for an account
	ErrSignerNotFound = errors.New("signer not found")
)

// MissingFieldError is returned when a transaction lacks data required for execution
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// RevertError carries the decoded reason of a reverted call
type RevertError struct {
	Reason string
	Data   string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return fmt.Sprintf("execution reverted: %s", e.Reason)
}
