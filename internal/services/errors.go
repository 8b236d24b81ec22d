package services

import "fmt"

// InputError means the submitted data was missing or malformed. No session is
// created when it is returned.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string {
	return e.Msg
}

// StorageError means the blob store or record store was unavailable, returned
// empty content, or rejected a write.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ParseError means a spreadsheet or a stored table blob could not be parsed.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse failed: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaError means a structured insight failed required-field validation.
type SchemaError struct {
	Msg string
}

func (e *SchemaError) Error() string {
	return e.Msg
}

// NotFoundError means no session exists under the given id.
type NotFoundError struct {
	SessionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.SessionID)
}

// UpstreamError means the completion service failed or returned a malformed
// completion.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion service failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
