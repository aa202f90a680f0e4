package ankiconnect

import (
	"encoding/json"
	"sort"
)

// Note is the payload accepted by addNote, addNotes and canAddNotes.
type Note struct {
	DeckName  string            `json:"deckName"`
	ModelName string            `json:"modelName"`
	Fields    map[string]string `json:"fields"`
	Tags      []string          `json:"tags"`
	Options   json.RawMessage   `json:"options,omitempty"`
}

// DefaultNoteOptions is sent when the caller gives no options.
var DefaultNoteOptions = json.RawMessage(`{"allowDuplicate":false}`)

// FieldValue is one note field as reported by notesInfo and guiCurrentCard.
// Some callers hand back plain strings instead of {value, order}; both decode.
type FieldValue struct {
	Value string `json:"value"`
	Order int    `json:"order"`
}

func (f *FieldValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		f.Value = s
		return nil
	}
	type plain FieldValue
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*f = FieldValue(p)
	return nil
}

// Fields is a note's field map.
type Fields map[string]FieldValue

// Ordered returns field names sorted by their order, then by name.
func (fs Fields) Ordered() []string {
	names := make([]string, 0, len(fs))
	for k := range fs {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := fs[names[i]], fs[names[j]]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return names[i] < names[j]
	})
	return names
}

// NoteInfo is one entry of a notesInfo reply. A missing note decodes with a
// zero NoteID.
type NoteInfo struct {
	NoteID    int64    `json:"noteId"`
	ModelName string   `json:"modelName"`
	Tags      []string `json:"tags"`
	Fields    Fields   `json:"fields"`
	Cards     []int64  `json:"cards"`
}

// CurrentCard is the guiCurrentCard reply.
type CurrentCard struct {
	CardID    int64  `json:"cardId"`
	DeckName  string `json:"deckName"`
	ModelName string `json:"modelName"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Fields    Fields `json:"fields"`
}
