package anki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"ankimcp/internal/mcp"
)

const (
	uriScheme    = "anki"
	jsonMIME     = "application/json"
	deckNoteHint = 10
)

// Category is the middle segment of an anki:// URI.
type Category string

const (
	CategoryDecks  Category = "decks"
	CategoryModels Category = "models"
	CategoryNotes  Category = "notes"
)

// ResourceURI builds anki://{category}/{id}.
func ResourceURI(c Category, id int64) string {
	return fmt.Sprintf("%s://%s/%d", uriScheme, c, id)
}

// ParseResourceURI splits an anki:// URI into its category and numeric id.
// Every malformed or unrecognised URI wraps mcp.ErrInvalidParams.
func ParseResourceURI(raw string) (Category, int64, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != uriScheme {
		return "", 0, fmt.Errorf("%w: unsupported resource URI: %s", mcp.ErrInvalidParams, raw)
	}
	c := Category(u.Host)
	switch c {
	case CategoryDecks, CategoryModels, CategoryNotes:
	default:
		return "", 0, fmt.Errorf("%w: unsupported resource URI: %s", mcp.ErrInvalidParams, raw)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(u.Path, "/"), 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: resource id must be an integer: %s", mcp.ErrInvalidParams, raw)
	}
	return c, id, nil
}

// ListResources advertises every deck and then every model. Notes are
// addressable but not enumerated. On a backend failure the entries gathered
// so far are returned with the error.
func (p *Provider) ListResources(ctx context.Context) ([]mcpgo.Resource, error) {
	var out []mcpgo.Resource

	decks, err := p.client.DeckNamesAndIDs(ctx)
	if err != nil {
		return out, fmt.Errorf("list decks: %w", err)
	}
	for _, name := range sortedKeys(decks) {
		out = append(out, mcpgo.NewResource(ResourceURI(CategoryDecks, decks[name]), "Deck: "+name,
			mcpgo.WithResourceDescription("Anki deck containing cards"),
			mcpgo.WithMIMEType(jsonMIME),
		))
	}

	models, err := p.client.ModelNamesAndIDs(ctx)
	if err != nil {
		return out, fmt.Errorf("list models: %w", err)
	}
	for _, name := range sortedKeys(models) {
		out = append(out, mcpgo.NewResource(ResourceURI(CategoryModels, models[name]), "Model: "+name,
			mcpgo.WithResourceDescription("Note type template"),
			mcpgo.WithMIMEType(jsonMIME),
		))
	}
	return out, nil
}

// ReadResource resolves one URI. The backend has no lookup by id, so decks
// and models are found by scanning the full enumeration.
func (p *Provider) ReadResource(ctx context.Context, uri string) ([]mcpgo.ResourceContents, error) {
	category, id, err := ParseResourceURI(uri)
	if err != nil {
		return nil, err
	}

	var info any
	switch category {
	case CategoryDecks:
		info, err = p.readDeck(ctx, id)
	case CategoryModels:
		info, err = p.readModel(ctx, id)
	case CategoryNotes:
		info, err = p.readNote(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	text, err := indentJSON(info)
	if err != nil {
		return nil, err
	}
	return []mcpgo.ResourceContents{
		mcpgo.TextResourceContents{URI: ResourceURI(category, id), MIMEType: jsonMIME, Text: text},
	}, nil
}

type deckResource struct {
	deckInfo
	NoteIDs []int64 `json:"noteIds"`
}

func (p *Provider) readDeck(ctx context.Context, id int64) (*deckResource, error) {
	decks, err := p.client.DeckNamesAndIDs(ctx)
	if err != nil {
		return nil, err
	}
	name, ok := nameForID(decks, id)
	if !ok {
		return nil, fmt.Errorf("%w: Deck ID %d not found", mcp.ErrResourceNotFound, id)
	}
	info, noteIDs, err := p.deckStats(ctx, id, name)
	if err != nil {
		return nil, err
	}
	if len(noteIDs) > deckNoteHint {
		noteIDs = noteIDs[:deckNoteHint]
	}
	if noteIDs == nil {
		noteIDs = []int64{}
	}
	return &deckResource{deckInfo: info, NoteIDs: noteIDs}, nil
}

type modelInfo struct {
	ModelID   int64           `json:"modelId"`
	Name      string          `json:"name"`
	Fields    []string        `json:"fields"`
	Templates json.RawMessage `json:"templates"`
	Styling   json.RawMessage `json:"styling"`
}

func (p *Provider) readModel(ctx context.Context, id int64) (*modelInfo, error) {
	models, err := p.client.ModelNamesAndIDs(ctx)
	if err != nil {
		return nil, err
	}
	name, ok := nameForID(models, id)
	if !ok {
		return nil, fmt.Errorf("%w: Model ID %d not found", mcp.ErrResourceNotFound, id)
	}
	fields, err := p.client.ModelFieldNames(ctx, name)
	if err != nil {
		return nil, err
	}
	templates, err := p.client.ModelTemplates(ctx, name)
	if err != nil {
		return nil, err
	}
	styling, err := p.client.ModelStyling(ctx, name)
	if err != nil {
		return nil, err
	}
	return &modelInfo{ModelID: id, Name: name, Fields: fields, Templates: templates, Styling: styling}, nil
}

func (p *Provider) readNote(ctx context.Context, id int64) (any, error) {
	notes, err := p.client.NotesInfo(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 || notes[0].NoteID == 0 {
		return nil, fmt.Errorf("%w: Note ID %d not found", mcp.ErrResourceNotFound, id)
	}
	return notes[0], nil
}

func nameForID(m map[string]int64, id int64) (string, bool) {
	for name, v := range m {
		if v == id {
			return name, true
		}
	}
	return "", false
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
