// Package anki exposes an Anki collection, through AnkiConnect, as MCP tools
// and anki:// resources.
package anki

import (
	"ankimcp/internal/ankiconnect"
	"ankimcp/internal/mcp"
)

// Provider owns the tool handlers and resource resolution for one backend.
type Provider struct {
	client *ankiconnect.Client
}

var _ mcp.ResourceProvider = (*Provider)(nil)

func New(client *ankiconnect.Client) *Provider {
	return &Provider{client: client}
}

// Register adds every Anki tool to reg.
func (p *Provider) Register(reg *mcp.Registry) error {
	for _, op := range p.Operations() {
		if err := reg.Register(op); err != nil {
			return err
		}
	}
	return nil
}

// Operations lists the tools in the order they are advertised.
func (p *Provider) Operations() []mcp.Operation {
	return []mcp.Operation{
		{
			Name:        "listDecks",
			Description: "Get the names of all decks in Anki",
			Schema:      schema(nil),
			Handler:     mcp.Typed(p.listDecks),
		},
		{
			Name:        "listModels",
			Description: "Get the names of all note models in Anki",
			Schema:      schema(nil),
			Handler:     mcp.Typed(p.listModels),
		},
		{
			Name:        "getDeckInfo",
			Description: "Get information about a specific deck",
			Schema:      schema(map[string]any{"deckName": str("Name of the deck")}, "deckName"),
			Handler:     mcp.Typed(p.getDeckInfo),
		},
		{
			Name:        "createDeck",
			Description: "Create a new deck",
			Schema:      schema(map[string]any{"deckName": str("Name of the new deck")}, "deckName"),
			Handler:     mcp.Typed(p.createDeck),
		},
		{
			Name:        "addNote",
			Description: "Create a new note",
			Schema: schema(map[string]any{
				"deckName":  str("Name of the deck"),
				"modelName": str("Name of the note model"),
				"fields":    object("Field name to value mapping"),
				"tags":      arrayOf(prop{"type": "string"}, "Optional tags"),
				"options":   optionsSchema(),
			}, "deckName", "modelName", "fields"),
			Handler: mcp.Typed(p.addNote),
		},
		{
			Name:        "findNotes",
			Description: "Search for notes using Anki's query syntax",
			Schema:      schema(map[string]any{"query": str("Anki search query")}, "query"),
			Handler:     mcp.Typed(p.findNotes),
		},
		{
			Name:        "updateNoteFields",
			Description: "Update fields of an existing note",
			Schema: schema(map[string]any{
				"noteId": integer("ID of the note to update"),
				"fields": object("Field name to new value mapping"),
			}, "noteId", "fields"),
			Handler: mcp.Typed(p.updateNoteFields),
		},
		{
			Name:        "addTags",
			Description: "Add tags to notes",
			Schema: schema(map[string]any{
				"noteIds": arrayOf(prop{"type": "integer"}, "List of note IDs"),
				"tags":    arrayOf(prop{"type": "string"}, "Tags to add"),
			}, "noteIds", "tags"),
			Handler: mcp.Typed(p.addTags),
		},
		{
			Name:        "deleteNotes",
			Description: "Delete one or more notes",
			Schema: schema(map[string]any{
				"noteId":  integer("Single note ID"),
				"noteIds": arrayOf(prop{"type": "integer"}, "List of note IDs"),
			}),
			Handler: mcp.Typed(p.deleteNotes),
		},
		{
			Name:        "addNotesBatch",
			Description: "Create multiple notes in a single efficient batch operation - USE THIS instead of multiple addNote calls",
			Schema: schema(map[string]any{
				"notes": func() prop {
					s := arrayOf(noteSchema(), "List of notes to create")
					s["minItems"] = 1
					return s
				}(),
			}, "notes"),
			Handler: mcp.Typed(p.addNotesBatch),
		},
		{
			Name:        "canAddNotes",
			Description: "Validate if notes can be added before attempting batch creation (useful for checking duplicates)",
			Schema: schema(map[string]any{
				"notes": arrayOf(noteSchema(), "List of candidate notes to validate"),
			}, "notes"),
			Handler: mcp.Typed(p.canAddNotes),
		},
		{
			Name:        "guiCurrentCard",
			Description: "Get information about the card currently being reviewed in Anki",
			Schema:      schema(nil),
			Handler:     mcp.Typed(p.guiCurrentCard),
		},
	}
}
