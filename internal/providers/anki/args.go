package anki

import (
	"encoding/json"
	"fmt"
	"strings"

	"ankimcp/internal/ankiconnect"
)

func required(key string) error { return fmt.Errorf("'%s' is required", key) }

// IDList accepts either a single note id or a list of ids.
type IDList []int64

func (l *IDList) UnmarshalJSON(b []byte) error {
	var one int64
	if err := json.Unmarshal(b, &one); err == nil {
		*l = IDList{one}
		return nil
	}
	var many []int64
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("expected a note id or a list of note ids")
	}
	*l = many
	return nil
}

// TagList accepts a list of tags or one space-separated string.
type TagList []string

func (l *TagList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = strings.Fields(s)
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("expected a tag string or a list of tags")
	}
	*l = many
	return nil
}

func (l TagList) String() string { return strings.Join(l, " ") }

type deckNameArgs struct {
	DeckName string `json:"deckName"`
}

func (a *deckNameArgs) Validate() error {
	if a.DeckName == "" {
		return required("deckName")
	}
	return nil
}

type noteArgs struct {
	DeckName  string            `json:"deckName"`
	ModelName string            `json:"modelName"`
	Fields    map[string]string `json:"fields"`
	Tags      TagList           `json:"tags"`
	Options   json.RawMessage   `json:"options,omitempty"`
}

func (a *noteArgs) Validate() error {
	switch {
	case a.DeckName == "":
		return required("deckName")
	case a.ModelName == "":
		return required("modelName")
	case len(a.Fields) == 0:
		return required("fields")
	}
	return nil
}

func (a noteArgs) note() ankiconnect.Note {
	n := ankiconnect.Note{
		DeckName:  a.DeckName,
		ModelName: a.ModelName,
		Fields:    a.Fields,
		Tags:      []string(a.Tags),
		Options:   a.Options,
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	if len(n.Options) == 0 || string(n.Options) == "null" {
		n.Options = ankiconnect.DefaultNoteOptions
	}
	return n
}

type notesArgs struct {
	Notes []noteArgs `json:"notes"`
}

func (a *notesArgs) Validate() error {
	if len(a.Notes) == 0 {
		return fmt.Errorf("'notes' must be a list of note objects")
	}
	return nil
}

func (a notesArgs) validateEach() error {
	for i := range a.Notes {
		if err := a.Notes[i].Validate(); err != nil {
			return fmt.Errorf("Note %d: %w", i, err)
		}
	}
	return nil
}

func (a notesArgs) notes() []ankiconnect.Note {
	out := make([]ankiconnect.Note, len(a.Notes))
	for i, n := range a.Notes {
		out[i] = n.note()
	}
	return out
}

type queryArgs struct {
	Query string `json:"query"`
}

func (a *queryArgs) Validate() error {
	if a.Query == "" {
		return required("query")
	}
	return nil
}

type updateFieldsArgs struct {
	NoteID *int64            `json:"noteId"`
	Fields map[string]string `json:"fields"`
}

func (a *updateFieldsArgs) Validate() error {
	if a.NoteID == nil || a.Fields == nil {
		return fmt.Errorf("'noteId' and 'fields' are required")
	}
	return nil
}

type addTagsArgs struct {
	NoteIDs IDList  `json:"noteIds"`
	Tags    TagList `json:"tags"`
}

func (a *addTagsArgs) Validate() error {
	if len(a.NoteIDs) == 0 || len(a.Tags) == 0 {
		return fmt.Errorf("'noteIds' and 'tags' are required")
	}
	return nil
}

type deleteNotesArgs struct {
	NoteIDs IDList `json:"noteIds"`
	NoteID  IDList `json:"noteId"`
}

func (a *deleteNotesArgs) Validate() error {
	if len(a.ids()) == 0 {
		return fmt.Errorf("'noteIds' or 'noteId' is required")
	}
	return nil
}

func (a deleteNotesArgs) ids() []int64 {
	if len(a.NoteIDs) > 0 {
		return a.NoteIDs
	}
	return a.NoteID
}

type noArgs struct{}
