// Package ankitest runs a fake AnkiConnect endpoint for tests.
package ankitest

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
)

// Handler answers one action. A returned error becomes the reply's error field.
type Handler func(params json.RawMessage) (any, error)

// Call records one request the fake received.
type Call struct {
	Action  string          `json:"action"`
	Version int             `json:"version"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Server is an AnkiConnect stand-in keyed by action name.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call
}

// NewServer starts a fake that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{handlers: map[string]Handler{}}
	r := mux.NewRouter()
	r.HandleFunc("/", s.serveAction).Methods(http.MethodPost)
	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Handle installs h for action, replacing any previous handler.
func (s *Server) Handle(action string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[action] = h
}

// Result makes action always succeed with v.
func (s *Server) Result(action string, v any) {
	s.Handle(action, func(json.RawMessage) (any, error) { return v, nil })
}

// Fail makes action always answer with msg in the error field.
func (s *Server) Fail(action, msg string) {
	s.Handle(action, func(json.RawMessage) (any, error) { return nil, errors.New(msg) })
}

// Calls returns the requests seen so far, in order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsTo returns the recorded requests for one action.
func (s *Server) CallsTo(action string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) serveAction(w http.ResponseWriter, r *http.Request) {
	var call Call
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, call)
	h, ok := s.handlers[call.Action]
	s.mu.Unlock()

	reply := map[string]any{"result": nil, "error": nil}
	switch {
	case !ok:
		reply["error"] = "unsupported action"
	default:
		res, err := h(call.Params)
		if err != nil {
			reply["error"] = err.Error()
		} else {
			reply["result"] = res
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reply)
}

// UnreachableURL returns an http URL on which nothing is listening.
func UnreachableURL(t testing.TB) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return "http://" + addr
}
