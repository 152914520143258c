package location

import (
	"errors"
	"fmt"
)

// Kind is the reason a location request failed.
type Kind int

const (
	KindUnknown Kind = iota
	KindPermissionDenied
	KindPositionUnavailable
	KindTimeout
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindPositionUnavailable:
		return "PositionUnavailable"
	case KindTimeout:
		return "Timeout"
	case KindUnsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// Error is returned by Provider.GetCurrentLocation.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("location %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("location %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTimeout) and friends match on Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrPermissionDenied    = &Error{Kind: KindPermissionDenied, Message: "user denied the request for geolocation"}
	ErrPositionUnavailable = &Error{Kind: KindPositionUnavailable, Message: "location information is unavailable"}
	ErrTimeout             = &Error{Kind: KindTimeout, Message: "the request to get user location timed out"}
	ErrUnsupported         = &Error{Kind: KindUnsupported, Message: "geolocation is not supported on this platform"}
)

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUnknown
}

// ErrorCode mirrors the numeric codes of the platform geolocation API.
type ErrorCode int

const (
	PermissionDenied    ErrorCode = 1
	PositionUnavailable ErrorCode = 2
	Timeout             ErrorCode = 3
)

// PositionError is what a Geolocation capability reports on failure.
type PositionError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (p PositionError) toError() *Error {
	e := &Error{Message: p.Message, Err: p.Err}
	switch p.Code {
	case PermissionDenied:
		e.Kind = KindPermissionDenied
		if e.Message == "" {
			e.Message = ErrPermissionDenied.Message
		}
	case PositionUnavailable:
		e.Kind = KindPositionUnavailable
		if e.Message == "" {
			e.Message = ErrPositionUnavailable.Message
		}
	case Timeout:
		e.Kind = KindTimeout
		if e.Message == "" {
			e.Message = ErrTimeout.Message
		}
	default:
		e.Kind = KindUnknown
		if e.Message == "" {
			e.Message = "an unknown error occurred while fetching location"
		}
	}
	return e
}

// ParseErrorCode accepts both the symbolic names and the numeric codes of the platform API.
func ParseErrorCode(s string) (ErrorCode, bool) {
	switch s {
	case "PERMISSION_DENIED", "1":
		return PermissionDenied, true
	case "POSITION_UNAVAILABLE", "2":
		return PositionUnavailable, true
	case "TIMEOUT", "3":
		return Timeout, true
	}
	return 0, false
}
