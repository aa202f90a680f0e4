package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// HandlerFunc runs one tool. The returned string is sent to the client as
// text; an error becomes an isError result.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (string, error)

// Operation is a registered tool. Schema is advertised to clients as-is and
// is not enforced here.
type Operation struct {
	Name        string
	Description string
	Schema      json.RawMessage
	Handler     HandlerFunc
}

// Registry owns the tool table. It is filled once at startup and read-only
// afterwards.
type Registry struct {
	ops   map[string]Operation
	order []string
}

func NewRegistry() *Registry {
	return &Registry{ops: map[string]Operation{}}
}

// Register adds op. Registering a name twice fails with ErrDuplicateOperation
// and leaves the first registration in place.
func (r *Registry) Register(op Operation) error {
	if op.Name == "" {
		return fmt.Errorf("register tool: empty name")
	}
	if op.Handler == nil {
		return fmt.Errorf("register tool %q: nil handler", op.Name)
	}
	if _, ok := r.ops[op.Name]; ok {
		return fmt.Errorf("register tool %q: %w", op.Name, ErrDuplicateOperation)
	}
	if len(op.Schema) == 0 {
		op.Schema = json.RawMessage(`{"type":"object","properties":{}}`)
	}
	r.ops[op.Name] = op
	r.order = append(r.order, op.Name)
	return nil
}

// MustRegister is Register for startup code, where a clash is a programming error.
func (r *Registry) MustRegister(op Operation) {
	if err := r.Register(op); err != nil {
		panic(err)
	}
}

func (r *Registry) Lookup(name string) (Operation, bool) {
	op, ok := r.ops[name]
	return op, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

// List describes every tool in registration order.
func (r *Registry) List() []mcpgo.Tool {
	tools := make([]mcpgo.Tool, 0, len(r.order))
	for _, name := range r.order {
		op := r.ops[name]
		tools = append(tools, mcpgo.NewToolWithRawSchema(op.Name, op.Description, op.Schema))
	}
	return tools
}

// Invoke runs the named tool. Only an unknown name is returned as an error;
// handler failures and panics are folded into an isError result.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (*mcpgo.CallToolResult, error) {
	op, ok := r.ops[name]
	if !ok {
		return nil, fmt.Errorf("%w: Tool '%s' not found", ErrOperationNotFound, name)
	}

	start := time.Now()
	text, err := runHandler(ctx, op, args)
	fields := logrus.Fields{"tool": name, "elapsed": time.Since(start)}
	if err != nil {
		logrus.WithFields(fields).WithError(err).Error("tool execution error")
		return mcpgo.NewToolResultError("Error: " + err.Error()), nil
	}
	logrus.WithFields(fields).Info("tool call")
	return mcpgo.NewToolResultText(text), nil
}

func runHandler(ctx context.Context, op Operation, args json.RawMessage) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool %s panicked: %v", op.Name, rec)
		}
	}()
	return op.Handler(ctx, args)
}

// Validator is implemented by argument records that check their own
// required fields.
type Validator interface {
	Validate() error
}

// Typed adapts a handler over a decoded argument record. Absent or null
// arguments decode as the zero value; Validate runs before fn.
func Typed[T any](fn func(ctx context.Context, args T) (string, error)) HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (string, error) {
		var args T
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
		}
		if v, ok := any(&args).(Validator); ok {
			if err := v.Validate(); err != nil {
				return "", err
			}
		}
		return fn(ctx, args)
	}
}
