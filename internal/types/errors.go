package types

import "errors"

// Error kinds shared by the store, the scanner and the command layer.
//
// Callers wrap these with context and check them with errors.Is():
//
//	if errors.Is(err, types.ErrNotFound) {
//	    // the course, video or path does not exist
//	}
var (
	// ErrNotFound is returned when a referenced path, course, module,
	// video, note or bookmark does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIOFailure is returned when a filesystem read fails during a scan.
	ErrIOFailure = errors.New("filesystem read failed")

	// ErrConstraint is returned when a write violates a schema constraint
	// such as a missing parent row or a duplicate unique value.
	ErrConstraint = errors.New("store constraint violated")

	// ErrInvalidInput is returned when an argument is malformed.
	ErrInvalidInput = errors.New("invalid input")
)

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsIOFailure reports whether err is (or wraps) ErrIOFailure.
func IsIOFailure(err error) bool {
	return errors.Is(err, ErrIOFailure)
}

// IsConstraint reports whether err is (or wraps) ErrConstraint.
func IsConstraint(err error) bool {
	return errors.Is(err, ErrConstraint)
}

// IsInvalidInput reports whether err is (or wraps) ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
