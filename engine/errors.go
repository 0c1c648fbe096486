package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// NotFoundError reports that no usable CPI point exists for the requested
// date under the chosen policy. Callers may retry with a looser policy.
type NotFoundError struct {
	SeriesID string
	Region   string
	Date     time.Time
	Policy   Policy
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no CPI data for %s/%s at %s under policy %s", e.SeriesID, e.Region, e.Date.Format("2006-01-02"), e.Policy)
}

// InvalidCPIDataError reports a retrieved point with a malformed index
// value. It is a data-quality fault and is never coerced to a default.
type InvalidCPIDataError struct {
	SeriesID string
	Region   string
	Date     time.Time
	Value    decimal.Decimal
}

func (e *InvalidCPIDataError) Error() string {
	return fmt.Sprintf("invalid CPI index value %s for %s/%s at %s", e.Value, e.SeriesID, e.Region, e.Date.Format("2006-01-02"))
}

// InvalidRequestError reports malformed input rejected before any store
// call is made.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// UnavailableError reports that the series store call failed or was
// cancelled. Distinct from NotFoundError: the data may exist but be
// unreachable.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("series store unavailable during %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsInvalidCPIData reports whether err is an InvalidCPIDataError.
func IsInvalidCPIData(err error) bool {
	var target *InvalidCPIDataError
	return errors.As(err, &target)
}

// IsInvalidRequest reports whether err is an InvalidRequestError.
func IsInvalidRequest(err error) bool {
	var target *InvalidRequestError
	return errors.As(err, &target)
}

// IsUnavailable reports whether err is an UnavailableError.
func IsUnavailable(err error) bool {
	var target *UnavailableError
	return errors.As(err, &target)
}

func invalidRequestf(format string, args ...interface{}) error {
	return &InvalidRequestError{Reason: fmt.Sprintf(format, args...)}
}
