package anki

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ankimcp/internal/ankiconnect"
	"ankimcp/internal/ankiconnect/ankitest"
	"ankimcp/internal/mcp"
)

func newTestProvider(t *testing.T) (*mcp.Registry, *ankitest.Server) {
	t.Helper()
	backend := ankitest.NewServer(t)
	p := New(ankiconnect.New(ankiconnect.WithURL(backend.URL)))
	reg := mcp.NewRegistry()
	require.NoError(t, p.Register(reg))
	return reg, backend
}

// invoke calls a tool and returns its text and error flag.
func invoke(t *testing.T, reg *mcp.Registry, name string, args any) (string, bool) {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	res, err := reg.Invoke(context.Background(), name, raw)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcpgo.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text, res.IsError
}

func TestOperationsAdvertised(t *testing.T) {
	reg, _ := newTestProvider(t)
	var names []string
	for _, tool := range reg.List() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{
		"listDecks", "listModels", "getDeckInfo", "createDeck", "addNote", "findNotes",
		"updateNoteFields", "addTags", "deleteNotes", "addNotesBatch", "canAddNotes", "guiCurrentCard",
	}, names)
}

func TestOperationSchemasAreClosedObjects(t *testing.T) {
	for _, op := range New(nil).Operations() {
		var s struct {
			Type                 string         `json:"type"`
			Properties           map[string]any `json:"properties"`
			AdditionalProperties *bool          `json:"additionalProperties"`
		}
		require.NoError(t, json.Unmarshal(op.Schema, &s), op.Name)
		assert.Equal(t, "object", s.Type, op.Name)
		assert.NotNil(t, s.Properties, op.Name)
		require.NotNil(t, s.AdditionalProperties, op.Name)
		assert.False(t, *s.AdditionalProperties, op.Name)
	}
}

func TestListDecksAndModels(t *testing.T) {
	reg, backend := newTestProvider(t)
	backend.Result("deckNames", []string{"Default", "Spanish"})
	backend.Result("modelNames", []string{})

	text, isErr := invoke(t, reg, "listDecks", nil)
	assert.False(t, isErr)
	assert.Equal(t, "Available decks: Default, Spanish", text)

	text, _ = invoke(t, reg, "listModels", map[string]any{})
	assert.Equal(t, "No models found.", text)
}

func TestGetDeckInfo(t *testing.T) {
	reg, backend := newTestProvider(t)
	backend.Result("deckNamesAndIds", map[string]int64{"Default": 1, "Spanish": 42})
	backend.Result("findNotes", []int64{10, 11, 12})
	backend.Result("findCards", []int64{100})

	text, isErr := invoke(t, reg, "getDeckInfo", map[string]any{"deckName": "Spanish"})
	require.False(t, isErr, text)
	assert.JSONEq(t, `{"deckId":42,"name":"Spanish","numNotes":3,"numDueCards":1}`, text)

	calls := backend.CallsTo("findCards")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"query":"deck:'Spanish' is:due"}`, string(calls[0].Params))

	text, isErr = invoke(t, reg, "getDeckInfo", map[string]any{"deckName": "Missing"})
	assert.True(t, isErr)
	assert.Equal(t, "Error: Deck 'Missing' not found", text)
}

func TestCreateDeck(t *testing.T) {
	reg, backend := newTestProvider(t)

	backend.Result("createDeck", 1234567890)
	text, isErr := invoke(t, reg, "createDeck", map[string]any{"deckName": "Japanese"})
	assert.False(t, isErr)
	assert.Equal(t, "Created deck 'Japanese' with ID 1234567890.", text)

	backend.Result("createDeck", nil)
	text, isErr = invoke(t, reg, "createDeck", map[string]any{"deckName": "Japanese"})
	assert.False(t, isErr)
	assert.Equal(t, "Deck 'Japanese' already exists.", text)

	calls := backend.CallsTo("createDeck")
	require.Len(t, calls, 2)
	assert.JSONEq(t, `{"deck":"Japanese"}`, string(calls[0].Params))
}

func TestRequiredArguments(t *testing.T) {
	reg, backend := newTestProvider(t)
	cases := []struct {
		tool string
		args any
		want string
	}{
		{"createDeck", map[string]any{}, "Error: 'deckName' is required"},
		{"getDeckInfo", nil, "Error: 'deckName' is required"},
		{"addNote", map[string]any{"deckName": "D", "fields": map[string]string{"Front": "x"}}, "Error: 'modelName' is required"},
		{"findNotes", map[string]any{"query": ""}, "Error: 'query' is required"},
		{"updateNoteFields", map[string]any{"noteId": 5}, "Error: 'noteId' and 'fields' are required"},
		{"addTags", map[string]any{"noteIds": []int{1}}, "Error: 'noteIds' and 'tags' are required"},
		{"deleteNotes", map[string]any{}, "Error: 'noteIds' or 'noteId' is required"},
		{"addNotesBatch", map[string]any{"notes": []any{}}, "Error: 'notes' must be a list of note objects"},
		{"canAddNotes", map[string]any{}, "Error: 'notes' must be a list of note objects"},
	}
	for _, tc := range cases {
		t.Run(tc.tool, func(t *testing.T) {
			text, isErr := invoke(t, reg, tc.tool, tc.args)
			assert.True(t, isErr)
			assert.Equal(t, tc.want, text)
		})
	}
	assert.Empty(t, backend.Calls(), "validation failures must not reach the backend")
}

func TestAddNoteDefaults(t *testing.T) {
	reg, backend := newTestProvider(t)
	sentNote := func(i int) ankiconnect.Note {
		t.Helper()
		calls := backend.CallsTo("addNote")
		require.Greater(t, len(calls), i)
		var in struct {
			Note ankiconnect.Note `json:"note"`
		}
		require.NoError(t, json.Unmarshal(calls[i].Params, &in))
		return in.Note
	}

	backend.Result("addNote", 77)
	text, isErr := invoke(t, reg, "addNote", map[string]any{
		"deckName":  "Default",
		"modelName": "Basic",
		"fields":    map[string]string{"Front": "hola", "Back": "hello"},
	})
	require.False(t, isErr, text)
	assert.Equal(t, "Created note with ID 77.", text)
	first := sentNote(0)
	assert.Equal(t, []string{}, first.Tags)
	assert.JSONEq(t, `{"allowDuplicate":false}`, string(first.Options))

	backend.Result("addNote", nil)
	text, _ = invoke(t, reg, "addNote", map[string]any{
		"deckName":  "Default",
		"modelName": "Basic",
		"fields":    map[string]string{"Front": "hola"},
		"tags":      []string{"spanish"},
		"options":   map[string]any{"allowDuplicate": true},
	})
	assert.Equal(t, "Failed to create note (possibly duplicate).", text)
	second := sentNote(1)
	assert.Equal(t, []string{"spanish"}, second.Tags)
	assert.JSONEq(t, `{"allowDuplicate":true}`, string(second.Options))
}

func TestFindNotes(t *testing.T) {
	reg, backend := newTestProvider(t)
	backend.Result("findNotes", []int64{1, 2, 3, 4, 5, 6, 7})
	backend.Handle("notesInfo", func(params json.RawMessage) (any, error) {
		var in struct {
			Notes []int64 `json:"notes"`
		}
		if err := json.Unmarshal(params, &in); err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(in.Notes))
		for _, id := range in.Notes {
			out = append(out, map[string]any{
				"noteId": id,
				"fields": map[string]any{
					"Back":  map[string]any{"value": "short", "order": 1},
					"Front": map[string]any{"value": "a very long front side that keeps going", "order": 0},
				},
			})
		}
		return out, nil
	})

	text, isErr := invoke(t, reg, "findNotes", map[string]any{"query": "deck:Default"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Found 7 notes. First 5:\n")
	assert.Contains(t, text, "- ID 1: Front: a very long front side that ke..., Back: short\n")
	assert.NotContains(t, text, "ID 6")
	assert.JSONEq(t, `{"notes":[1,2,3,4,5]}`, string(backend.CallsTo("notesInfo")[0].Params))

	backend.Result("findNotes", []int64{})
	text, _ = invoke(t, reg, "findNotes", map[string]any{"query": "nothing"})
	assert.Equal(t, "No notes found.", text)
}

func TestUpdateTagAndDelete(t *testing.T) {
	reg, backend := newTestProvider(t)
	backend.Result("updateNoteFields", nil)
	backend.Result("addTags", nil)
	backend.Result("deleteNotes", nil)

	text, _ := invoke(t, reg, "updateNoteFields", map[string]any{"noteId": 9, "fields": map[string]string{"Front": "x"}})
	assert.Equal(t, "Updated fields for note 9.", text)
	assert.JSONEq(t, `{"note":{"id":9,"fields":{"Front":"x"}}}`, string(backend.CallsTo("updateNoteFields")[0].Params))

	text, _ = invoke(t, reg, "addTags", map[string]any{"noteIds": 9, "tags": "a b"})
	assert.Equal(t, "Added tags 'a b' to 1 note(s).", text)
	text, _ = invoke(t, reg, "addTags", map[string]any{"noteIds": []int{1, 2}, "tags": []string{"x", "y"}})
	assert.Equal(t, "Added tags 'x y' to 2 note(s).", text)
	assert.JSONEq(t, `{"notes":[1,2],"tags":"x y"}`, string(backend.CallsTo("addTags")[1].Params))

	text, _ = invoke(t, reg, "deleteNotes", map[string]any{"noteIds": []int{1, 2, 3}})
	assert.Equal(t, "Deleted 3 note(s).", text)
	text, _ = invoke(t, reg, "deleteNotes", map[string]any{"noteId": 4})
	assert.Equal(t, "Deleted 1 note(s).", text)
}

func TestAddNotesBatch(t *testing.T) {
	reg, backend := newTestProvider(t)
	backend.Result("addNotes", []any{101, nil, 103})
	note := map[string]any{"deckName": "D", "modelName": "Basic", "fields": map[string]string{"Front": "f"}}

	text, isErr := invoke(t, reg, "addNotesBatch", map[string]any{"notes": []any{note, note, note}})
	require.False(t, isErr, text)
	assert.Equal(t, "Batch operation completed: 2 notes created successfully, 1 notes failed (possibly duplicates)"+
		"\nFailed note indices: [1]"+
		"\nCreated note IDs: [101, 103]", text)

	bad := map[string]any{"deckName": "D", "fields": map[string]string{"Front": "f"}}
	text, isErr = invoke(t, reg, "addNotesBatch", map[string]any{"notes": []any{note, bad}})
	assert.True(t, isErr)
	assert.Equal(t, "Error: Note 1: 'modelName' is required", text)
	assert.Len(t, backend.CallsTo("addNotes"), 1)
}

func TestCanAddNotes(t *testing.T) {
	reg, backend := newTestProvider(t)
	backend.Result("canAddNotes", []bool{true, false, true})
	note := map[string]any{"deckName": "D", "modelName": "Basic", "fields": map[string]string{"Front": "f"}}

	text, _ := invoke(t, reg, "canAddNotes", map[string]any{"notes": []any{note, note, note}})
	assert.Equal(t, "Validation completed: 2/3 notes can be added\nInvalid note indices: [1]", text)

	backend.Result("canAddNotes", []bool{true})
	text, _ = invoke(t, reg, "canAddNotes", map[string]any{"notes": []any{note}})
	assert.Equal(t, "Validation completed: 1/1 notes can be added", text)
}

func TestGUICurrentCard(t *testing.T) {
	reg, backend := newTestProvider(t)

	backend.Result("guiCurrentCard", nil)
	text, _ := invoke(t, reg, "guiCurrentCard", nil)
	assert.Equal(t, "No card is currently being reviewed in Anki.", text)

	backend.Result("guiCurrentCard", map[string]any{
		"deckName": "Spanish",
		"question": "<style>.card{}</style>ignored",
		"fields": map[string]any{
			"Front": map[string]any{"value": "hola", "order": 0},
			"Back":  map[string]any{"value": "hello", "order": 1},
		},
	})
	text, _ = invoke(t, reg, "guiCurrentCard", nil)
	assert.JSONEq(t, `{"deckName":"Spanish","question":"hola","answer":"hello"}`, text)

	backend.Result("guiCurrentCard", map[string]any{
		"deckName": "Cloze",
		"question": "<style>.card{color:red}</style>What is <b>2+2</b>?",
		"answer":   "What is 2+2?<br><br>\n\n<hr id=answer>4",
		"fields":   map[string]any{"Text": map[string]any{"value": "{{c1::4}}", "order": 0}},
	})
	text, _ = invoke(t, reg, "guiCurrentCard", nil)
	assert.JSONEq(t, `{"deckName":"Cloze","question":"What is 2+2?","answer":"What is 2+2?\n4"}`, text)

	backend.Fail("guiCurrentCard", "Collection is not open")
	text, isErr := invoke(t, reg, "guiCurrentCard", nil)
	assert.False(t, isErr)
	assert.Equal(t, "Anki is not currently in review mode or no deck is open.", text)

	backend.Fail("guiCurrentCard", "boom")
	text, isErr = invoke(t, reg, "guiCurrentCard", nil)
	assert.False(t, isErr)
	assert.Equal(t, "Error getting current card: boom", text)
}

func TestBackendFailuresRenderAsToolErrors(t *testing.T) {
	reg, backend := newTestProvider(t)
	backend.Fail("deckNames", "collection is locked")

	text, isErr := invoke(t, reg, "listDecks", nil)
	assert.True(t, isErr)
	assert.Equal(t, "Error: collection is locked", text)

	p := New(ankiconnect.New(ankiconnect.WithURL(ankitest.UnreachableURL(t))))
	down := mcp.NewRegistry()
	require.NoError(t, p.Register(down))
	text, isErr = invoke(t, down, "createDeck", map[string]any{"deckName": "X"})
	assert.True(t, isErr)
	assert.Contains(t, text, "Error: Could not connect to AnkiConnect at ")
}

func TestRegisterTwiceFails(t *testing.T) {
	reg, _ := newTestProvider(t)
	err := New(nil).Register(reg)
	assert.True(t, errors.Is(err, mcp.ErrDuplicateOperation))
	assert.Equal(t, 12, reg.Len())
}

func TestFormatList(t *testing.T) {
	assert.Equal(t, "[]", formatList([]int{}))
	assert.Equal(t, "[1, 2, 3]", formatList([]int64{1, 2, 3}))
}
