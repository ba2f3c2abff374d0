package repository

import "errors"

// ErrNotFound is returned when a single-document lookup or a required update
// matches nothing. Handlers translate it into 404.
var ErrNotFound = errors.New("document not found")

// ErrInvalidID is returned for ids that cannot be document ids. Handlers
// translate it into 400.
var ErrInvalidID = errors.New("invalid document id")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate it into 403.
var ErrForbidden = errors.New("forbidden")
