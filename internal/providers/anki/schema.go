package anki

import "encoding/json"

// Small JSON-schema builders for tool inputs.

type prop = map[string]any

func str(desc string) prop { return prop{"type": "string", "description": desc} }

func integer(desc string) prop { return prop{"type": "integer", "description": desc} }

func object(desc string) prop { return prop{"type": "object", "description": desc} }

func arrayOf(items prop, desc string) prop {
	return prop{"type": "array", "items": items, "description": desc}
}

// schema builds a closed object schema. The result always has "properties",
// even when empty.
func schema(props map[string]any, required ...string) json.RawMessage {
	return mustJSON(closed(props, required...))
}

func closed(props map[string]any, required ...string) prop {
	if props == nil {
		props = map[string]any{}
	}
	s := prop{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func noteSchema() prop {
	return closed(map[string]any{
		"deckName":  str("Name of the deck"),
		"modelName": str("Name of the note model (e.g., 'Basic', 'Cloze')"),
		"fields":    object("Field name to value mapping (e.g., {'Front': 'Question', 'Back': 'Answer'})"),
		"tags":      arrayOf(prop{"type": "string"}, "Optional tags to apply"),
		"options":   optionsSchema(),
	}, "deckName", "modelName", "fields")
}

func optionsSchema() prop {
	return prop{
		"type": "object",
		"properties": map[string]any{
			"allowDuplicate": prop{"type": "boolean", "description": "Allow duplicate notes (default: false)"},
		},
		"description": "Optional settings",
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
