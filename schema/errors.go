package schema

import (
	"errors"
	"fmt"
)

// ErrorKind groups error codes by how callers must react to them.
type ErrorKind int

// Error kinds.
const (
	// RequestError aborts the whole request; it is caused by caller input.
	RequestError ErrorKind = iota
	// AgentError is recorded against a single agent and does not abort the request.
	AgentError
)

// Error is a coded error surfaced to callers of the listing operations.
type Error struct {
	Kind    ErrorKind
	Code    int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("Error %d - %s", e.Code, e.Message)
}

// Coded errors. Wrap them with context; match them with errors.Is.
var (
	ErrInvalidOffset      = &Error{Kind: RequestError, Code: 1400, Message: "Invalid offset"}
	ErrLimitTooHigh       = &Error{Kind: RequestError, Code: 1405, Message: "Specified limit exceeds maximum allowed"}
	ErrLimitZero          = &Error{Kind: RequestError, Code: 1406, Message: "Limit must be greater than 0"}
	ErrInvalidQuery       = &Error{Kind: RequestError, Code: 1407, Message: "Query does not match expected format"}
	ErrUnknownField       = &Error{Kind: RequestError, Code: 1724, Message: "Not a valid field"}
	ErrAgentNotFound      = &Error{Kind: AgentError, Code: 1701, Message: "Agent does not exist"}
	ErrBackendUnavailable = &Error{Kind: AgentError, Code: 2005, Message: "Could not connect to agent database"}
	ErrMalformedResponse  = &Error{Kind: AgentError, Code: 2007, Message: "Bad format of agent database response"}
)

// AsError returns the coded error carried by err, if any.
func AsError(err error) (*Error, bool) {
	var coded *Error
	if errors.As(err, &coded) {
		return coded, true
	}
	return nil, false
}

// ErrorCode returns the code carried by err, or 0 when it carries none.
func ErrorCode(err error) int {
	if coded, ok := AsError(err); ok {
		return coded.Code
	}
	return 0
}

// IsAgentError reports whether err must be recorded against a single agent.
func IsAgentError(err error) bool {
	coded, ok := AsError(err)
	return ok && coded.Kind == AgentError
}
