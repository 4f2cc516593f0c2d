package domain

import (
	"strconv"
	"strings"
)

// Marker is the dedup state carried in a subject prefix. The sheet has no
// dedicated column for it, so the prefix is the wire format.
type Marker int

const (
	// MarkerNone means the row has not been reviewed.
	MarkerNone Marker = iota
	// MarkerConfirmed means the row is confirmed not to be a duplicate.
	MarkerConfirmed
	// MarkerDuplicate means the row was flagged as a duplicate of another row.
	MarkerDuplicate
)

const (
	ConfirmedPrefix = "!"
	DuplicatePrefix = "?dupof("
)

func (m Marker) String() string {
	switch m {
	case MarkerConfirmed:
		return "confirmed"
	case MarkerDuplicate:
		return "duplicate"
	default:
		return "none"
	}
}

// ParseMarker recognizes the marker by prefix only.
func ParseMarker(subject string) Marker {
	switch {
	case strings.HasPrefix(subject, ConfirmedPrefix):
		return MarkerConfirmed
	case strings.HasPrefix(subject, DuplicatePrefix):
		return MarkerDuplicate
	default:
		return MarkerNone
	}
}

// ConfirmSubject stamps subject with the confirmed marker.
func ConfirmSubject(subject string) string {
	return ConfirmedPrefix + subject
}

// DuplicateSubject builds the subject of a row flagged as a duplicate of the
// row at originalIndex. The previous subject is kept after a single space.
func DuplicateSubject(originalIndex int, subject string) string {
	marked := DuplicatePrefix + strconv.Itoa(originalIndex) + ")"
	if subject == "" {
		return marked
	}
	return marked + " " + subject
}

// DuplicateOf returns the original row index of a flagged subject.
func DuplicateOf(subject string) (int, bool) {
	if !strings.HasPrefix(subject, DuplicatePrefix) {
		return 0, false
	}
	rest := subject[len(DuplicatePrefix):]
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
