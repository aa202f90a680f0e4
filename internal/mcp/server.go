package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// ResourceProvider resolves resources/list and resources/read.
//
// ListResources may return a partial list together with an error; the server
// logs the error and still advertises what it got.
type ResourceProvider interface {
	ListResources(ctx context.Context) ([]mcpgo.Resource, error)
	ReadResource(ctx context.Context, uri string) ([]mcpgo.ResourceContents, error)
}

// Capabilities is the server half of the handshake.
type Capabilities struct {
	Resources ResourcesCapability `json:"resources"`
	Tools     ToolsCapability     `json:"tools"`
}

type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe"`
	ListChanged bool `json:"listChanged"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// InitializeResult answers initialize.
type InitializeResult struct {
	ProtocolVersion string               `json:"protocolVersion"`
	Capabilities    Capabilities         `json:"capabilities"`
	ServerInfo      mcpgo.Implementation `json:"serverInfo"`
}

// Options tunes a Server.
type Options struct {
	Name    string
	Version string
	// RequireInitialized rejects tools/* and resources/* until
	// notifications/initialized has arrived.
	RequireInitialized bool
}

// Server dispatches one message at a time: read, handle, answer, repeat.
type Server struct {
	registry  *Registry
	resources ResourceProvider
	session   *Session
	info      mcpgo.Implementation
	strict    bool
	log       *logrus.Entry
}

// NewServer wires a dispatcher around reg. resources may be nil, in which
// case the server advertises no resources.
func NewServer(reg *Registry, resources ResourceProvider, opts Options) *Server {
	if reg == nil {
		reg = NewRegistry()
	}
	if opts.Name == "" {
		opts.Name = "mcp"
	}
	if opts.Version == "" {
		opts.Version = "0.1.0"
	}
	session := NewSession()
	return &Server{
		registry:  reg,
		resources: resources,
		session:   session,
		info:      mcpgo.Implementation{Name: opts.Name, Version: opts.Version},
		strict:    opts.RequireInitialized,
		log:       logrus.WithField("session", session.ID),
	}
}

func (s *Server) Session() *Session { return s.session }

// Capabilities is fixed: resources and tools, with no subscriptions or change
// notifications.
func (s *Server) Capabilities() Capabilities {
	return Capabilities{}
}

// Serve processes NDJSON JSON-RPC from r and writes responses to w until r is
// exhausted. A bad message never ends the loop; only a failing reader or
// writer does.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	s.log.Info("serving MCP over stdio")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := readLine(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Info("input closed; stopping")
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		resp := s.HandleMessage(ctx, line)
		if resp == nil {
			continue
		}
		if err := writeNDJSON(bw, resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}

// HandleMessage handles one raw message and returns the response to send, or
// nil for notifications and stray client responses.
func (s *Server) HandleMessage(ctx context.Context, line []byte) *Response {
	req, id, perr := decodeRequest(line)
	if perr != nil {
		s.log.WithFields(logrus.Fields{"code": perr.Code, "id": string(id)}).Warn(perr.Message)
		return &Response{ID: id, Error: perr}
	}

	if req.Method == "" {
		if len(req.Result) > 0 || len(req.Error) > 0 {
			s.log.WithField("id", string(req.ID)).Debug("ignoring client response")
			return nil
		}
		return errorResponse(req.ID, mcpgo.INVALID_REQUEST, "Invalid request: missing method")
	}

	if req.IsNotification() {
		s.notify(ctx, req)
		return nil
	}
	return s.call(ctx, req)
}

func (s *Server) call(ctx context.Context, req *Request) (resp *Response) {
	log := s.log.WithFields(logrus.Fields{"method": req.Method, "id": string(req.ID)})
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("error handling request")
			resp = errorResponse(req.ID, mcpgo.INTERNAL_ERROR, fmt.Sprintf("internal error: %v", rec))
		}
	}()

	log.Debug("handling request")
	result, err := s.dispatch(ctx, req)
	if err != nil {
		rpcErr := toError(err)
		log.WithField("code", rpcErr.Code).WithError(err).Error("error handling request")
		return &Response{ID: req.ID, Error: rpcErr}
	}
	return &Response{ID: req.ID, Result: result}
}

// notify runs a notification for its side effects only.
func (s *Server) notify(ctx context.Context, req *Request) {
	log := s.log.WithField("method", req.Method)
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("error handling notification")
		}
	}()

	if _, err := s.dispatch(ctx, req); err != nil {
		log.WithError(err).Warn("notification failed")
	}
}

func (s *Server) dispatch(ctx context.Context, req *Request) (any, error) {
	method := ParseMethod(req.Method)
	if s.strict && method.gated() && !s.session.Initialized() {
		return nil, ErrNotInitialized
	}

	switch method {
	case MethodInitialize:
		return s.handleInitialize(req.Params)
	case MethodInitialized:
		s.session.Acknowledge()
		s.log.Info("client initialized")
		return struct{}{}, nil
	case MethodPing:
		return struct{}{}, nil
	case MethodResourcesList:
		return s.handleResourcesList(ctx), nil
	case MethodResourcesRead:
		return s.handleResourcesRead(ctx, req.Params)
	case MethodToolsList:
		return mcpgo.ListToolsResult{Tools: s.registry.List()}, nil
	case MethodToolsCall:
		return s.handleToolsCall(ctx, req.Params)
	default:
		return nil, &Error{Code: mcpgo.METHOD_NOT_FOUND, Message: "Method not found: " + req.Method}
	}
}

func (s *Server) handleInitialize(raw json.RawMessage) (*InitializeResult, error) {
	var p InitializeParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	s.session.Negotiate(p)
	s.log.WithFields(logrus.Fields{
		"client":          p.ClientInfo.Name,
		"clientVersion":   p.ClientInfo.Version,
		"protocolVersion": p.ProtocolVersion,
		"capabilities":    string(s.session.ClientCapabilities()),
	}).Info("client requesting protocol version")

	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    s.Capabilities(),
		ServerInfo:      s.info,
	}, nil
}

func (s *Server) handleResourcesList(ctx context.Context) mcpgo.ListResourcesResult {
	resources := []mcpgo.Resource{}
	if s.resources != nil {
		got, err := s.resources.ListResources(ctx)
		if err != nil {
			s.log.WithError(err).Error("error listing resources")
		}
		resources = append(resources, got...)
	}
	return mcpgo.ListResourcesResult{Resources: resources}
}

type readResourceParams struct {
	URI string `json:"uri"`
}

func (s *Server) handleResourcesRead(ctx context.Context, raw json.RawMessage) (*mcpgo.ReadResourceResult, error) {
	var p readResourceParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.URI == "" {
		return nil, fmt.Errorf("%w: 'uri' parameter is required", ErrInvalidParams)
	}
	if s.resources == nil {
		return nil, fmt.Errorf("%w: unsupported resource URI: %s", ErrInvalidParams, p.URI)
	}
	contents, err := s.resources.ReadResource(ctx, p.URI)
	if err != nil {
		return nil, err
	}
	return &mcpgo.ReadResourceResult{Contents: contents}, nil
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

func (s *Server) handleToolsCall(ctx context.Context, raw json.RawMessage) (*mcpgo.CallToolResult, error) {
	var p toolCallParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: 'name' parameter is required", ErrInvalidParams)
	}
	return s.registry.Invoke(ctx, p.Name, p.Arguments)
}

// decodeParams tolerates absent params; present ones must decode into dst.
func decodeParams[T any](raw json.RawMessage, dst *T) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}
