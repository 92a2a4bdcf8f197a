package metro

import (
	"errors"
	"fmt"
)

// IntegrityKind classifies a DataIntegrityError.
type IntegrityKind string

const (
	KindShortLine        IntegrityKind = "short_line"
	KindRepeatedStation  IntegrityKind = "repeated_station"
	KindUnknownStation   IntegrityKind = "unknown_station"
	KindDuplicateStation IntegrityKind = "duplicate_station"
	KindDuplicateLine    IntegrityKind = "duplicate_line"
	KindDuplicateAlias   IntegrityKind = "duplicate_alias"
	KindBadInterchange   IntegrityKind = "bad_interchange"
	KindUnknownSegment   IntegrityKind = "unknown_segment"
	KindUnknownDayType   IntegrityKind = "unknown_day_type"
	KindNegativeDuration IntegrityKind = "negative_duration"
	KindUnorderedTimes   IntegrityKind = "unordered_departures"
)

// DataIntegrityError reports malformed network or timetable data. A load that
// returns it produces no network at all.
type DataIntegrityError struct {
	Kind   IntegrityKind
	Detail string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("metro: data integrity (%s): %s", e.Kind, e.Detail)
}

func integrity(kind IntegrityKind, format string, args ...interface{}) error {
	return &DataIntegrityError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// IsDataIntegrity reports whether err is (or wraps) a DataIntegrityError.
func IsDataIntegrity(err error) bool {
	var die *DataIntegrityError
	return errors.As(err, &die)
}
