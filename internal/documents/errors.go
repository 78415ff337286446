package documents

import "errors"

var (
	// ErrValidation marks bad or missing caller input.
	ErrValidation = errors.New("validation error")
	// ErrRecognition marks a text-recognition backend failure.
	ErrRecognition = errors.New("recognition failed")
	// ErrExtraction marks a language-model backend failure or unusable output.
	ErrExtraction = errors.New("extraction failed")
	// ErrStorage marks an artifact or catalog read/write failure.
	ErrStorage = errors.New("storage error")
	// ErrNotFound is returned when the referenced artifact or record is absent.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a filename is already cataloged.
	ErrDuplicate = errors.New("document already exists")
	// ErrInvalidTransition is returned for a status change the workflow forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)
