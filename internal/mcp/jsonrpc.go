package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// JSON-RPC 2.0 envelope types, one message per line.

const jsonrpcVersion = "2.0"

// CodeResourceNotFound is the MCP convention for an unknown resource URI.
const CodeResourceNotFound = -32002

// Request is any inbound message. A missing id makes it a notification.
// Result and Error are only decoded to recognise stray client responses.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// IsNotification reports whether no response may be sent for r.
func (r *Request) IsNotification() bool { return len(r.ID) == 0 }

// Response carries exactly one of Result or Error. A nil ID encodes as null.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the protocol-level error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string { return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message) }

func errorResponse(id json.RawMessage, code int, msg string) *Response {
	return &Response{ID: id, Error: &Error{Code: code, Message: msg}}
}

// decodeRequest parses one line. On failure it returns the request id when
// one could still be read, so the error stays correlated; unparseable input
// yields a nil id, which encodes as null.
func decodeRequest(line []byte) (*Request, json.RawMessage, *Error) {
	line = bytes.TrimSpace(line)
	var doc any
	if err := json.Unmarshal(line, &doc); err != nil {
		return nil, nil, &Error{Code: mcpgo.PARSE_ERROR, Message: "Parse error: " + err.Error()}
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, nil, &Error{Code: mcpgo.INVALID_REQUEST, Message: "Invalid request: expected a JSON object"}
	}
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		var idOnly struct {
			ID json.RawMessage `json:"id"`
		}
		_ = json.Unmarshal(line, &idOnly)
		return nil, idOnly.ID, &Error{Code: mcpgo.INVALID_REQUEST, Message: "Invalid request: " + err.Error()}
	}
	return &req, nil, nil
}

// readLine returns the next newline-terminated message. A final line without
// a trailing newline is still returned before io.EOF.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(bytes.TrimSpace(line)) > 0 {
			return line, nil
		}
		return nil, err
	}
	return line, nil
}

type flusher interface{ Flush() error }

// writeNDJSON writes resp as one line and flushes w when it buffers.
func writeNDJSON(w io.Writer, resp *Response) error {
	resp.JSONRPC = jsonrpcVersion
	enc, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(enc, '\n')); err != nil {
		return err
	}
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
