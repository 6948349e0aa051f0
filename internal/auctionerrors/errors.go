package auctionerrors

import "errors"

// Error kinds for the auction site core. Services wrap these with context
// using fmt.Errorf("...: %w"); handlers map them to HTTP statuses with
// errors.Is.
var (
	// ErrInvalidArgument indicates malformed, missing or out-of-range input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnauthorized indicates an operation forbidden for the caller,
	// such as a seller bidding on their own auction.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidState indicates an operation against an ended, deleted or
	// expired entity, or a double logout.
	ErrInvalidState = errors.New("invalid state")

	// ErrAlreadyExists indicates a uniqueness violation within a site.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound indicates the referenced entity is absent.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable indicates unreachable storage; it always wraps the
	// underlying cause and is never retried by the core.
	ErrUnavailable = errors.New("storage unavailable")
)
