package domain

import "errors"

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateReview is returned when a user already has a live review
	// for the movie they are reviewing
	ErrDuplicateReview = errors.New("user has already reviewed this movie")

	// ErrLegacyReview is returned when a caller attempts to modify or
	// delete an imported legacy review
	ErrLegacyReview = errors.New("legacy reviews cannot be modified")

	// ErrAlreadyExists is returned when a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden is returned when the requester is not allowed to perform
	// the operation
	ErrForbidden = errors.New("operation not permitted")

	// ErrUnauthorized is returned when a request lacks a valid session
	ErrUnauthorized = errors.New("not authenticated")

	// ErrSuspended is returned when a suspended account attempts an
	// operation that requires an active account
	ErrSuspended = errors.New("account is suspended")

	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)
