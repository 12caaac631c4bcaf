package domain

import (
	"errors"
	"fmt"
)

var (
	// Input errors: never retried, never compensated.
	ErrInvalidPublicationInput = errors.New("invalid publication input")
	ErrValueMismatch           = errors.New("offered value does not match required price")
	ErrInvalidResalePrice      = errors.New("resale price must be positive")

	// Pre-commitment failures: retryable until a ledger write exists.
	ErrUploadTransport      = errors.New("upload transport failure")
	ErrPayloadTooLarge      = errors.New("payload exceeds upload size limit")
	ErrMediaUploadFailed    = errors.New("media upload failed after retries")
	ErrStoreUnavailable     = errors.New("metadata store unavailable")
	ErrValidationFailed     = errors.New("metadata store rejected record")
	ErrMetadataRejected     = errors.New("metadata record rejected after ledger confirmation")
	ErrRecordNotFound       = errors.New("event record not found")
	ErrEventNotFound        = errors.New("event not found")
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrOrganizationNotFound = errors.New("organization not found")

	ErrPublicationRequiresWallet   = errors.New("publication requires a signing identity")
	ErrResaleNoLongerAvailable     = errors.New("resale listing no longer available")
	ErrAnalyticsUnavailable        = errors.New("analytics unavailable")
	ErrCannotCancelAfterSubmission = errors.New("cannot cancel after ledger submission")
)

// IndeterminateError reports a ledger write whose outcome is unknown: the
// transaction was submitted but did not confirm within the deadline. It may
// still confirm later, so the caller must not retry the write; the handle is
// carried for out-of-band polling.
type IndeterminateError struct {
	Stage string
	Tx    TxHandle
	Cause error
}

func (e *IndeterminateError) Error() string {
	return fmt.Sprintf("%s outcome indeterminate (tx %s): %v", e.Stage, e.Tx, e.Cause)
}

func (e *IndeterminateError) Unwrap() error { return e.Cause }

// CompensationFailedError reports the one state this system cannot repair on
// its own: a confirmed event with no metadata record whose deactivation also
// failed. EventAddress is the uncompensated event; an operator or retry job
// must deactivate it.
type CompensationFailedError struct {
	EventAddress Address
	Tx           TxHandle
	Cause        error
}

func (e *CompensationFailedError) Error() string {
	return fmt.Sprintf("compensation failed for event %s: %v", e.EventAddress, e.Cause)
}

func (e *CompensationFailedError) Unwrap() error { return e.Cause }

// SubmittedOutcomeUnknownError reports a lifecycle write that failed after a
// transaction handle existed. Retrying would risk a duplicate ledger effect,
// so the handle is surfaced for the caller to poll instead.
type SubmittedOutcomeUnknownError struct {
	Op    string
	Tx    TxHandle
	Cause error
}

func (e *SubmittedOutcomeUnknownError) Error() string {
	return fmt.Sprintf("%s submitted but outcome unknown (tx %s): %v", e.Op, e.Tx, e.Cause)
}

func (e *SubmittedOutcomeUnknownError) Unwrap() error { return e.Cause }
