// Package errors provides structured error handling for fwprobe operations.
// It defines error codes, error types for the resolver, port-spec parser,
// probe executor and configuration layer, and utilities for creating and
// classifying errors.
package errors

import (
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCanceled      ErrorCode = "CANCELED"
	CodePermission    ErrorCode = "PERMISSION"

	// Resolution errors.
	CodeResolutionFailed ErrorCode = "RESOLUTION_FAILED"
	CodeTargetInvalid    ErrorCode = "TARGET_INVALID"

	// Port specification errors.
	CodePortOutOfRange  ErrorCode = "PORT_OUT_OF_RANGE"
	CodePortRangeInvert ErrorCode = "PORT_RANGE_INVERTED"
	CodePortUnparseable ErrorCode = "PORT_UNPARSEABLE"

	// Probe errors.
	CodeProbeFailed        ErrorCode = "PROBE_FAILED"
	CodeNetworkUnreachable ErrorCode = "NETWORK_UNREACHABLE"
	CodeBindFailed         ErrorCode = "BIND_FAILED"

	// Output errors.
	CodeOutputWrite  ErrorCode = "OUTPUT_WRITE"
	CodeOutputFormat ErrorCode = "OUTPUT_FORMAT"
)

// ResolutionError represents a failure to resolve a target to an address.
type ResolutionError struct {
	Code   ErrorCode
	Target string
	Cause  error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] cannot resolve %q: %v", e.Code, e.Target, e.Cause)
	}
	return fmt.Sprintf("[%s] cannot resolve %q", e.Code, e.Target)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// NewResolutionError creates a resolution error for a target.
func NewResolutionError(target string) *ResolutionError {
	return &ResolutionError{Code: CodeResolutionFailed, Target: target}
}

// WrapResolutionError wraps an underlying resolver error for a target.
func WrapResolutionError(target string, err error) *ResolutionError {
	return &ResolutionError{Code: CodeResolutionFailed, Target: target, Cause: err}
}

// PortSpecError represents a malformed or out-of-range port specification.
// It is a configuration-time error: the scan must abort before any probing.
type PortSpecError struct {
	Code    ErrorCode
	Message string
	Token   string
}

// Error implements the error interface.
func (e *PortSpecError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("[%s] %s (token: %q)", e.Code, e.Message, e.Token)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewPortSpecError creates a port specification error for a token.
func NewPortSpecError(code ErrorCode, message, token string) *PortSpecError {
	return &PortSpecError{Code: code, Message: message, Token: token}
}

// ProbeError represents a per-probe OS-level failure. It is non-fatal and is
// recorded on the single result it affects.
type ProbeError struct {
	Code     ErrorCode
	Message  string
	Target   string
	Port     int
	Protocol string
	Cause    error
}

// Error implements the error interface.
func (e *ProbeError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("[%s] %s (%s %s:%d)", e.Code, e.Message, e.Protocol, e.Target, e.Port)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// WrapProbeError wraps an OS-level socket error for one probe attempt.
func WrapProbeError(message, target string, port int, protocol string, err error) *ProbeError {
	return &ProbeError{
		Code:     CodeProbeFailed,
		Message:  message,
		Target:   target,
		Port:     port,
		Protocol: protocol,
		Cause:    err,
	}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new configuration error.
func NewConfigError(code ErrorCode, message string) *ConfigError {
	return &ConfigError{Code: code, Message: message}
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{Code: code, Message: message, Field: field, Value: value}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{Code: code, Message: message, Cause: err}
}

// OutputError represents report serialization failures.
type OutputError struct {
	Code    ErrorCode
	Message string
	Path    string
	Cause   error
}

// Error implements the error interface.
func (e *OutputError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s (path: %s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *OutputError) Unwrap() error {
	return e.Cause
}

// WrapOutputError wraps an existing error as an output error.
func WrapOutputError(code ErrorCode, message, path string, err error) *OutputError {
	return &OutputError{Code: code, Message: message, Path: path, Cause: err}
}

// Utility functions for common error operations

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	switch e := err.(type) {
	case *ResolutionError:
		return e.Code
	case *PortSpecError:
		return e.Code
	case *ProbeError:
		return e.Code
	case *ConfigError:
		return e.Code
	case *OutputError:
		return e.Code
	}
	return CodeUnknown
}

// IsFatal determines if an error must abort the run before probing starts.
// Per-target resolution failures and per-probe errors degrade a single result
// instead of aborting.
func IsFatal(err error) bool {
	switch err.(type) {
	case *PortSpecError, *ConfigError:
		return true
	}
	switch GetCode(err) {
	case CodeConfiguration, CodeValidation, CodePermission:
		return true
	default:
		return false
	}
}

// Common error creation functions

// ErrInvalidTarget creates an error for invalid probe targets.
func ErrInvalidTarget(target string) *ResolutionError {
	return &ResolutionError{Code: CodeTargetInvalid, Target: target}
}

// ErrPortOutOfRange creates an error for a port outside [1,65535].
func ErrPortOutOfRange(token string) *PortSpecError {
	return NewPortSpecError(CodePortOutOfRange, "port out of range 1-65535", token)
}

// ErrPortRangeInverted creates an error for a range whose start exceeds its end.
func ErrPortRangeInverted(token string) *PortSpecError {
	return NewPortSpecError(CodePortRangeInvert, "range start exceeds range end", token)
}

// ErrPortUnparseable creates an error for a token that is neither a port nor a range.
func ErrPortUnparseable(token string) *PortSpecError {
	return NewPortSpecError(CodePortUnparseable, "not a port number or port range", token)
}

// ErrConfigInvalid creates an error for an invalid configuration value.
func ErrConfigInvalid(field string, value interface{}) *ConfigError {
	return NewConfigFieldError(CodeValidation, "invalid configuration value", field, value)
}

// ErrConfigMissing creates an error for missing required configuration.
func ErrConfigMissing(field string) *ConfigError {
	return NewConfigFieldError(CodeConfiguration, "required configuration field missing", field, nil)
}
