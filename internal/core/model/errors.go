package model

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrDegenerateScale signals that quantile cut points collapsed. It never
// leaves the binscale package; the caller switches to a linear scale.
var ErrDegenerateScale = errors.New("degenerate quantile scale")

type NotFoundKind string

const (
	NotFoundRegion NotFoundKind = "region"
	NotFoundYear   NotFoundKind = "year"
)

type NotFoundError struct {
	Kind NotFoundKind
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

func UnknownYear(year int) *NotFoundError {
	return &NotFoundError{Kind: NotFoundYear, Key: strconv.Itoa(year)}
}

func UnknownRegion(region string) *NotFoundError {
	return &NotFoundError{Kind: NotFoundRegion, Key: region}
}

type MissingValueError struct {
	Region string
	Year   int
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("no data for %s in %d", e.Region, e.Year)
}

type EmptyColumnError struct {
	Year int
}

func (e *EmptyColumnError) Error() string {
	return fmt.Sprintf("year %d has no values", e.Year)
}

type ErrorKind string

const (
	KindNotFound       ErrorKind = "not_found"
	KindMissingValue   ErrorKind = "missing_value"
	KindEmptyColumn    ErrorKind = "empty_column"
	KindInvalidRequest ErrorKind = "invalid_request"
	KindInternal       ErrorKind = "internal"
)

// ErrInvalidRequest marks caller mistakes such as a bin count below 2.
var ErrInvalidRequest = errors.New("invalid request")

// KindOf classifies err for presentation.
func KindOf(err error) ErrorKind {
	var nf *NotFoundError
	var mv *MissingValueError
	var ec *EmptyColumnError
	switch {
	case errors.As(err, &nf):
		return KindNotFound
	case errors.As(err, &mv):
		return KindMissingValue
	case errors.As(err, &ec):
		return KindEmptyColumn
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	default:
		return KindInternal
	}
}
