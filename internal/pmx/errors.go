package pmx

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when a read runs past the end of the input.
	ErrTruncated = errors.New("pmx: truncated input")

	// ErrInvalidHeader is returned when the header is structurally wrong
	// (bad magic, bad index widths, bad encoding flag).
	ErrInvalidHeader = errors.New("pmx: invalid header")

	// ErrUnsupportedVersion is returned for version tags other than 2.0/2.1.
	ErrUnsupportedVersion = errors.New("pmx: unsupported version")
)

// CorruptSectionError reports an implausible or inconsistent section.
type CorruptSectionError struct {
	Section string
	Reason  string
}

func (e *CorruptSectionError) Error() string {
	return fmt.Sprintf("pmx: corrupt %s section: %s", e.Section, e.Reason)
}

// InvalidWeightTypeError reports an unrecognized skin-binding tag.
type InvalidWeightTypeError struct {
	Tag uint8
}

func (e *InvalidWeightTypeError) Error() string {
	return fmt.Sprintf("pmx: invalid weight type %d", e.Tag)
}

// DanglingIndexError reports a mandatory reference to a missing element.
type DanglingIndexError struct {
	Kind  string
	Index int32
}

func (e *DanglingIndexError) Error() string {
	return fmt.Sprintf("pmx: dangling %s index %d", e.Kind, e.Index)
}
