// Package app wires the AnkiConnect client, the tool registry and the MCP
// server together from a resolved config.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/sirupsen/logrus"

	"ankimcp/internal/ankiconnect"
	"ankimcp/internal/config"
	"ankimcp/internal/mcp"
	"ankimcp/internal/providers/anki"
)

type App struct {
	cfg      config.Config
	client   *ankiconnect.Client
	registry *mcp.Registry
	provider *anki.Provider
	server   *mcp.Server
}

func New(cfg config.Config, opts ...ankiconnect.Option) (*App, error) {
	client := ankiconnect.New(append(cfg.ClientOptions(), opts...)...)
	provider := anki.New(client)
	reg := mcp.NewRegistry()
	if err := provider.Register(reg); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}
	srv := mcp.NewServer(reg, provider, mcp.Options{
		Name:               cfg.Server.Name,
		Version:            cfg.Server.Version,
		RequireInitialized: cfg.Server.RequireInitialized,
	})
	return &App{cfg: cfg, client: client, registry: reg, provider: provider, server: srv}, nil
}

func (a *App) Server() *mcp.Server { return a.server }

// Serve runs the protocol loop until r is exhausted or ctx is cancelled.
// Cancellation is a clean stop and returns nil.
func (a *App) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	logrus.WithFields(logrus.Fields{
		"session": a.server.Session().ID,
		"anki":    a.client.URL(),
		"tools":   a.registry.Len(),
		"strict":  a.cfg.Server.RequireInitialized,
	}).Info("starting MCP server")
	start := time.Now()
	err := a.server.Serve(ctx, r, w)
	logrus.WithFields(logrus.Fields{"session": a.server.Session().ID, "elapsed": time.Since(start)}).Info("MCP server stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// PingReport is the result of a connectivity check against the backend.
type PingReport struct {
	URL      string
	Version  int
	Decks    []string
	Duration time.Duration
}

func (r PingReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "AnkiConnect at %s is reachable (API version %d, %s)\n", r.URL, r.Version, r.Duration.Round(time.Millisecond))
	if len(r.Decks) == 0 {
		b.WriteString("No decks found.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%d deck(s):\n", len(r.Decks))
	for _, d := range r.Decks {
		fmt.Fprintf(&b, "  - %s\n", d)
	}
	return b.String()
}

// Ping asks the backend for its version and deck names.
func (a *App) Ping(ctx context.Context) (PingReport, error) {
	start := time.Now()
	report := PingReport{URL: a.client.URL()}
	v, err := a.client.Version(ctx)
	if err != nil {
		return report, err
	}
	report.Version = v
	decks, err := a.client.DeckNames(ctx)
	if err != nil {
		return report, err
	}
	sort.Strings(decks)
	report.Decks = decks
	report.Duration = time.Since(start)
	logrus.WithFields(logrus.Fields{"version": v, "decks": len(decks), "elapsed": report.Duration}).Debug("ping")
	return report, nil
}

// Catalog is the tool list as markdown, in advertised order.
func (a *App) Catalog() string {
	var b strings.Builder
	b.WriteString("# Tools\n\n")
	for _, t := range a.registry.List() {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", t.Name, t.Description)
		op, ok := a.registry.Lookup(t.Name)
		if !ok {
			continue
		}
		var s struct {
			Properties map[string]struct {
				Description string `json:"description"`
			} `json:"properties"`
			Required []string `json:"required"`
		}
		if err := json.Unmarshal(op.Schema, &s); err != nil || len(s.Properties) == 0 {
			continue
		}
		required := map[string]bool{}
		for _, r := range s.Required {
			required[r] = true
		}
		names := make([]string, 0, len(s.Properties))
		for n := range s.Properties {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			line := "- `" + n + "`"
			if required[n] {
				line += " (required)"
			}
			if d := s.Properties[n].Description; d != "" {
				line += ": " + d
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderCatalog renders Catalog for a terminal of the given width.
func (a *App) RenderCatalog(width int) string {
	return string(markdown.Render(a.Catalog(), width, 2))
}
