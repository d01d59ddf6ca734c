package errors

import "errors"

// Discovery errors.
var (
	ErrContentRootNotFound = errors.New("content root not found")
	ErrDuplicateSlug       = errors.New("duplicate document slug")
	ErrReadTimeout         = errors.New("document read timed out")
)

// Lookup and access errors.
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInsufficientTier = errors.New("subscription tier too low")
	ErrInvalidAPIKey    = errors.New("invalid API key")
)
