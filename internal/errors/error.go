package errors

import "errors"

var (
	ErrOrphanBranchPoint   = errors.New("variation branches off a move that was never recorded")
	ErrUnknownSequence     = errors.New("unknown sequence")
	ErrMalformedTree       = errors.New("malformed sequence tree")
	ErrRecordNotFound      = errors.New("record not found")
	ErrUnsupportedEncoding = errors.New("unsupported source encoding")
	ErrEmptyRecord         = errors.New("record contains no moves")
	ErrMoveNotFound        = errors.New("move not found in sequence")
	ErrRecordTooLarge      = errors.New("record exceeds the upload limit")
	ErrInvalidPage         = errors.New("page must be a positive integer")
	ErrInternal            = errors.New("internal error")
)
