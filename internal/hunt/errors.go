package hunt

import "errors"

// Progression rejections. All of them leave the sequence untouched; handlers
// map them to HTTP conflict responses, so a caller can retry with corrected
// input.
var (
	ErrWrongLevel  = errors.New("not at the correct level")
	ErrFinished    = errors.New("all levels completed")
	ErrNotFinished = errors.New("previous levels not completed")
	ErrBadSecret   = errors.New("invalid end sequence")
)
