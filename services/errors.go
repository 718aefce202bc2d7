package services

import "errors"

// Sentinel errors for the scheduling core. Controllers map these onto HTTP
// statuses; services wrap them with context via fmt.Errorf and %w.
var (
	// ErrNotFound — unknown request, collaboration, mentor or sub-request id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState — a transition attempted on a terminal record: accepting
	// a resolved request, resolving a resolved sub-request, cancelling a
	// cancelled collaboration.
	ErrInvalidState = errors.New("invalid state")

	// ErrValidation — malformed or missing input that binding-level checks
	// cannot catch (bad object ids, empty slot shapes).
	ErrValidation = errors.New("validation failed")

	// ErrConflict — a concurrent writer won the race; detected when an atomic
	// conditional update matches nothing although the record exists.
	ErrConflict = errors.New("conflict")

	// ErrSlotTaken — the requested slots overlap the mentor's locked slots.
	ErrSlotTaken = errors.New("slot already booked")

	// ErrPaymentFailure — the gateway rejected a charge or refund. Distinct
	// from storage errors so clients can tell "your card failed" from "try
	// again later".
	ErrPaymentFailure = errors.New("payment failure")

	// ErrRefundPending — cancellation was recorded but the refund did not go
	// through; the discrepancy is surfaced, never silently dropped.
	ErrRefundPending = errors.New("refund pending")
)
