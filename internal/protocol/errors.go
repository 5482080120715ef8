package protocol

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a protocol failure
type ErrorType int

const (
	// ErrTypeRange indicates a numeric field outside its allowed bounds
	ErrTypeRange ErrorType = iota
	// ErrTypeMalformedLine indicates a missing delimiter, bad token or suffix mismatch
	ErrTypeMalformedLine
	// ErrTypeUnknownDevice indicates a device type line not present in the dialect table
	ErrTypeUnknownDevice
	// ErrTypeUnknownFirmware indicates a software revision not present in the dialect table
	ErrTypeUnknownFirmware
	// ErrTypeChecksumMismatch indicates the trailer checksum differs from the running sum
	ErrTypeChecksumMismatch
	// ErrTypeTimeout indicates the device stopped sending before the session completed
	ErrTypeTimeout
)

// Sentinel errors for errors.Is classification.
var (
	ErrRange            = errors.New("protocol: value out of range")
	ErrMalformedLine    = errors.New("protocol: malformed line")
	ErrUnknownDevice    = errors.New("protocol: unknown device")
	ErrUnknownFirmware  = errors.New("protocol: unknown firmware revision")
	ErrChecksumMismatch = errors.New("protocol: checksum mismatch")
	ErrTimeout          = errors.New("protocol: session timed out")
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeRange:
		return "Range Error"
	case ErrTypeMalformedLine:
		return "Malformed Line"
	case ErrTypeUnknownDevice:
		return "Unknown Device"
	case ErrTypeUnknownFirmware:
		return "Unknown Firmware"
	case ErrTypeChecksumMismatch:
		return "Checksum Mismatch"
	case ErrTypeTimeout:
		return "Timeout"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

func (et ErrorType) sentinel() error {
	switch et {
	case ErrTypeRange:
		return ErrRange
	case ErrTypeMalformedLine:
		return ErrMalformedLine
	case ErrTypeUnknownDevice:
		return ErrUnknownDevice
	case ErrTypeUnknownFirmware:
		return ErrUnknownFirmware
	case ErrTypeChecksumMismatch:
		return ErrChecksumMismatch
	case ErrTypeTimeout:
		return ErrTimeout
	default:
		return nil
	}
}

// ProtocolError describes why a line was rejected
type ProtocolError struct {
	Type    ErrorType // Category of error
	Field   string    // Field being decoded (e.g. "glucose", "month")
	Value   string    // Offending token, if any
	Message string    // Human-readable detail
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	msg := e.Type.String()
	if e.Field != "" {
		msg += " in " + e.Field
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" (%q)", e.Value)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel matching this error's type
func (e *ProtocolError) Is(target error) bool {
	return target != nil && target == e.Type.sentinel()
}

// NewRangeError creates an error for a value outside [min, max]
func NewRangeError(field, value string, min, max int64) *ProtocolError {
	return &ProtocolError{
		Type:    ErrTypeRange,
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be between %d and %d", min, max),
	}
}

// NewMalformedError creates an error for a line that does not match the grammar
func NewMalformedError(field, value, message string) *ProtocolError {
	return &ProtocolError{
		Type:    ErrTypeMalformedLine,
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NewChecksumError creates an error for a trailer that does not match the running sum
func NewChecksumError(want, got uint16) *ProtocolError {
	return &ProtocolError{
		Type:    ErrTypeChecksumMismatch,
		Field:   "trailer",
		Message: fmt.Sprintf("device sent 0x%04X, transcript sums to 0x%04X", want, got),
	}
}

// GetErrorType extracts the ErrorType from an error chain.
// Returns false if err is not a protocol error.
func GetErrorType(err error) (ErrorType, bool) {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Type, true
	}
	return 0, false
}
