package mcp

import (
	"encoding/json"

	"github.com/google/uuid"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// ProtocolVersion is the only version this server speaks. It is returned from
// initialize whatever the client asked for.
const ProtocolVersion = "2025-06-18"

// SessionState tracks handshake progress. It only moves forward.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateNegotiated
	StateInitialized
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateNegotiated:
		return "negotiated"
	case StateInitialized:
		return "initialized"
	default:
		return "unknown"
	}
}

// InitializeParams is what a client sends with initialize.
type InitializeParams struct {
	ProtocolVersion string               `json:"protocolVersion"`
	Capabilities    json.RawMessage      `json:"capabilities,omitempty"`
	ClientInfo      mcpgo.Implementation `json:"clientInfo"`
}

// Session is the per-process handshake record. Dispatch is sequential, so it
// carries no lock.
type Session struct {
	ID string

	state              SessionState
	clientVersion      string
	clientCapabilities json.RawMessage
	clientInfo         mcpgo.Implementation
}

func NewSession() *Session {
	return &Session{ID: uuid.NewString()}
}

// Negotiate records the client's side of the handshake. A repeated initialize
// overwrites the record but never moves an initialized session back.
func (s *Session) Negotiate(p InitializeParams) {
	s.clientVersion = p.ProtocolVersion
	s.clientCapabilities = p.Capabilities
	s.clientInfo = p.ClientInfo
	if s.state < StateNegotiated {
		s.state = StateNegotiated
	}
}

// Acknowledge handles notifications/initialized. It is accepted even without a
// prior initialize.
func (s *Session) Acknowledge() { s.state = StateInitialized }

func (s *Session) State() SessionState { return s.state }

func (s *Session) Initialized() bool { return s.state == StateInitialized }

// ClientVersion is the protocol version the client requested, if any.
func (s *Session) ClientVersion() string { return s.clientVersion }

func (s *Session) ClientCapabilities() json.RawMessage { return s.clientCapabilities }

func (s *Session) ClientInfo() mcpgo.Implementation { return s.clientInfo }
