package corpus

import "errors"

var (
	// ErrInvalidDocument marks a document that cannot be indexed,
	// typically because it has no text.
	ErrInvalidDocument = errors.New("invalid document")
)
