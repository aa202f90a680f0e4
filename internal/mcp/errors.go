package mcp

import (
	"errors"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

var (
	// ErrInvalidParams marks a request whose params are missing or unusable.
	ErrInvalidParams = errors.New("invalid params")
	// ErrResourceNotFound marks a well-formed URI with no backing entity.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrOperationNotFound marks a tools/call for an unregistered name.
	ErrOperationNotFound = errors.New("tool not found")
	// ErrDuplicateOperation is returned by Register for a name already taken.
	ErrDuplicateOperation = errors.New("tool already registered")
	// ErrNotInitialized rejects gated methods before the handshake completes.
	ErrNotInitialized = errors.New("server not initialized")
)

// toError maps a dispatch failure onto the protocol error envelope.
func toError(err error) *Error {
	var rpcErr *Error
	switch {
	case errors.As(err, &rpcErr):
		return rpcErr
	case errors.Is(err, ErrInvalidParams):
		return &Error{Code: mcpgo.INVALID_PARAMS, Message: detail(err, ErrInvalidParams)}
	case errors.Is(err, ErrOperationNotFound):
		return &Error{Code: mcpgo.INVALID_PARAMS, Message: detail(err, ErrOperationNotFound)}
	case errors.Is(err, ErrResourceNotFound):
		return &Error{Code: CodeResourceNotFound, Message: detail(err, ErrResourceNotFound)}
	case errors.Is(err, ErrNotInitialized):
		return &Error{Code: mcpgo.INVALID_REQUEST, Message: err.Error()}
	default:
		return &Error{Code: mcpgo.INTERNAL_ERROR, Message: err.Error()}
	}
}

// detail drops a leading "<sentinel>: " so clients see only the specific text.
func detail(err, sentinel error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return rest
	}
	return msg
}
