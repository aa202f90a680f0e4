package ankiconnect

import (
	"context"
	"encoding/json"
)

// Version returns the AnkiConnect API version the add-on speaks.
func (c *Client) Version(ctx context.Context) (int, error) {
	var v int
	err := c.CallInto(ctx, "version", nil, &v)
	return v, err
}

func (c *Client) DeckNames(ctx context.Context) ([]string, error) {
	var names []string
	err := c.CallInto(ctx, "deckNames", nil, &names)
	return names, err
}

// DeckNamesAndIDs maps deck name to deck id.
func (c *Client) DeckNamesAndIDs(ctx context.Context) (map[string]int64, error) {
	decks := map[string]int64{}
	err := c.CallInto(ctx, "deckNamesAndIds", nil, &decks)
	return decks, err
}

func (c *Client) ModelNames(ctx context.Context) ([]string, error) {
	var names []string
	err := c.CallInto(ctx, "modelNames", nil, &names)
	return names, err
}

// ModelNamesAndIDs maps model name to model id.
func (c *Client) ModelNamesAndIDs(ctx context.Context) (map[string]int64, error) {
	models := map[string]int64{}
	err := c.CallInto(ctx, "modelNamesAndIds", nil, &models)
	return models, err
}

func (c *Client) ModelFieldNames(ctx context.Context, model string) ([]string, error) {
	var names []string
	err := c.CallInto(ctx, "modelFieldNames", map[string]any{"modelName": model}, &names)
	return names, err
}

func (c *Client) ModelTemplates(ctx context.Context, model string) (json.RawMessage, error) {
	return c.Call(ctx, "modelTemplates", map[string]any{"modelName": model})
}

func (c *Client) ModelStyling(ctx context.Context, model string) (json.RawMessage, error) {
	return c.Call(ctx, "modelStyling", map[string]any{"modelName": model})
}

func (c *Client) FindNotes(ctx context.Context, query string) ([]int64, error) {
	var ids []int64
	err := c.CallInto(ctx, "findNotes", map[string]any{"query": query}, &ids)
	return ids, err
}

func (c *Client) FindCards(ctx context.Context, query string) ([]int64, error) {
	var ids []int64
	err := c.CallInto(ctx, "findCards", map[string]any{"query": query}, &ids)
	return ids, err
}

func (c *Client) NotesInfo(ctx context.Context, ids []int64) ([]NoteInfo, error) {
	var notes []NoteInfo
	err := c.CallInto(ctx, "notesInfo", map[string]any{"notes": ids}, &notes)
	return notes, err
}

// CreateDeck returns nil when the backend reports no new id (the deck exists).
func (c *Client) CreateDeck(ctx context.Context, name string) (*int64, error) {
	var id *int64
	err := c.CallInto(ctx, "createDeck", map[string]any{"deck": name}, &id)
	return id, err
}

// AddNote returns nil when the note was not created.
func (c *Client) AddNote(ctx context.Context, note Note) (*int64, error) {
	var id *int64
	err := c.CallInto(ctx, "addNote", map[string]any{"note": note}, &id)
	return id, err
}

// AddNotes returns one entry per note; nil entries failed.
func (c *Client) AddNotes(ctx context.Context, notes []Note) ([]*int64, error) {
	var ids []*int64
	err := c.CallInto(ctx, "addNotes", map[string]any{"notes": notes}, &ids)
	return ids, err
}

func (c *Client) CanAddNotes(ctx context.Context, notes []Note) ([]bool, error) {
	var ok []bool
	err := c.CallInto(ctx, "canAddNotes", map[string]any{"notes": notes}, &ok)
	return ok, err
}

func (c *Client) UpdateNoteFields(ctx context.Context, id int64, fields map[string]string) error {
	_, err := c.Call(ctx, "updateNoteFields", map[string]any{
		"note": map[string]any{"id": id, "fields": fields},
	})
	return err
}

// AddTags attaches space-separated tags to the given notes.
func (c *Client) AddTags(ctx context.Context, ids []int64, tags string) error {
	_, err := c.Call(ctx, "addTags", map[string]any{"notes": ids, "tags": tags})
	return err
}

func (c *Client) DeleteNotes(ctx context.Context, ids []int64) error {
	_, err := c.Call(ctx, "deleteNotes", map[string]any{"notes": ids})
	return err
}

// GUICurrentCard returns nil when no card is under review.
func (c *Client) GUICurrentCard(ctx context.Context) (*CurrentCard, error) {
	var card *CurrentCard
	err := c.CallInto(ctx, "guiCurrentCard", nil, &card)
	return card, err
}
