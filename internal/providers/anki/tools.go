package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	findNotesSample  = 5
	fieldPreviewRune = 30
)

func (p *Provider) listDecks(ctx context.Context, _ noArgs) (string, error) {
	decks, err := p.client.DeckNames(ctx)
	if err != nil {
		return "", err
	}
	if len(decks) == 0 {
		return "No decks found.", nil
	}
	return "Available decks: " + strings.Join(decks, ", "), nil
}

func (p *Provider) listModels(ctx context.Context, _ noArgs) (string, error) {
	models, err := p.client.ModelNames(ctx)
	if err != nil {
		return "", err
	}
	if len(models) == 0 {
		return "No models found.", nil
	}
	return "Available models: " + strings.Join(models, ", "), nil
}

type deckInfo struct {
	DeckID      int64  `json:"deckId"`
	Name        string `json:"name"`
	NumNotes    int    `json:"numNotes"`
	NumDueCards int    `json:"numDueCards"`
}

func (p *Provider) getDeckInfo(ctx context.Context, args deckNameArgs) (string, error) {
	decks, err := p.client.DeckNamesAndIDs(ctx)
	if err != nil {
		return "", err
	}
	id, ok := decks[args.DeckName]
	if !ok {
		return "", fmt.Errorf("Deck '%s' not found", args.DeckName)
	}
	info, _, err := p.deckStats(ctx, id, args.DeckName)
	if err != nil {
		return "", err
	}
	return indentJSON(info)
}

// deckStats gathers note and due-card counts for one deck, along with the
// deck's note ids.
func (p *Provider) deckStats(ctx context.Context, id int64, name string) (deckInfo, []int64, error) {
	noteIDs, err := p.client.FindNotes(ctx, deckQuery(name))
	if err != nil {
		return deckInfo{}, nil, err
	}
	due, err := p.client.FindCards(ctx, deckQuery(name)+" is:due")
	if err != nil {
		return deckInfo{}, nil, err
	}
	return deckInfo{DeckID: id, Name: name, NumNotes: len(noteIDs), NumDueCards: len(due)}, noteIDs, nil
}

func deckQuery(name string) string { return "deck:'" + name + "'" }

func (p *Provider) createDeck(ctx context.Context, args deckNameArgs) (string, error) {
	id, err := p.client.CreateDeck(ctx, args.DeckName)
	if err != nil {
		return "", err
	}
	if id == nil {
		return fmt.Sprintf("Deck '%s' already exists.", args.DeckName), nil
	}
	return fmt.Sprintf("Created deck '%s' with ID %d.", args.DeckName, *id), nil
}

func (p *Provider) addNote(ctx context.Context, args noteArgs) (string, error) {
	id, err := p.client.AddNote(ctx, args.note())
	if err != nil {
		return "", err
	}
	if id == nil {
		return "Failed to create note (possibly duplicate).", nil
	}
	return fmt.Sprintf("Created note with ID %d.", *id), nil
}

func (p *Provider) findNotes(ctx context.Context, args queryArgs) (string, error) {
	ids, err := p.client.FindNotes(ctx, args.Query)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "No notes found.", nil
	}

	sample := ids
	if len(sample) > findNotesSample {
		sample = sample[:findNotesSample]
	}
	notes, err := p.client.NotesInfo(ctx, sample)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d notes. First %d:\n", len(ids), len(sample))
	for _, n := range notes {
		parts := make([]string, 0, len(n.Fields))
		for _, name := range n.Fields.Ordered() {
			parts = append(parts, name+": "+preview(n.Fields[name].Value))
		}
		fmt.Fprintf(&b, "- ID %d: %s\n", n.NoteID, strings.Join(parts, ", "))
	}
	return b.String(), nil
}

func preview(v string) string {
	r := []rune(v)
	if len(r) > fieldPreviewRune {
		return string(r[:fieldPreviewRune]) + "..."
	}
	return v
}

func (p *Provider) updateNoteFields(ctx context.Context, args updateFieldsArgs) (string, error) {
	if err := p.client.UpdateNoteFields(ctx, *args.NoteID, args.Fields); err != nil {
		return "", err
	}
	return fmt.Sprintf("Updated fields for note %d.", *args.NoteID), nil
}

func (p *Provider) addTags(ctx context.Context, args addTagsArgs) (string, error) {
	tags := args.Tags.String()
	if err := p.client.AddTags(ctx, args.NoteIDs, tags); err != nil {
		return "", err
	}
	return fmt.Sprintf("Added tags '%s' to %d note(s).", tags, len(args.NoteIDs)), nil
}

func (p *Provider) deleteNotes(ctx context.Context, args deleteNotesArgs) (string, error) {
	ids := args.ids()
	if err := p.client.DeleteNotes(ctx, ids); err != nil {
		return "", err
	}
	return fmt.Sprintf("Deleted %d note(s).", len(ids)), nil
}

func (p *Provider) addNotesBatch(ctx context.Context, args notesArgs) (string, error) {
	if err := args.validateEach(); err != nil {
		return "", err
	}
	ids, err := p.client.AddNotes(ctx, args.notes())
	if err != nil {
		return "", err
	}

	var created []int64
	var failed []int
	for i, id := range ids {
		if id == nil {
			failed = append(failed, i)
			continue
		}
		created = append(created, *id)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Batch operation completed: %d notes created successfully", len(created))
	if len(failed) > 0 {
		fmt.Fprintf(&b, ", %d notes failed (possibly duplicates)", len(failed))
		fmt.Fprintf(&b, "\nFailed note indices: %s", formatList(failed))
	}
	if len(created) > 0 {
		fmt.Fprintf(&b, "\nCreated note IDs: %s", formatList(created))
	}
	return b.String(), nil
}

func (p *Provider) canAddNotes(ctx context.Context, args notesArgs) (string, error) {
	ok, err := p.client.CanAddNotes(ctx, args.notes())
	if err != nil {
		return "", err
	}
	valid := 0
	var invalid []int
	for i, can := range ok {
		if can {
			valid++
		} else {
			invalid = append(invalid, i)
		}
	}

	out := fmt.Sprintf("Validation completed: %d/%d notes can be added", valid, len(args.Notes))
	if len(invalid) > 0 {
		out += "\nInvalid note indices: " + formatList(invalid)
	}
	return out, nil
}

type currentCard struct {
	DeckName string `json:"deckName"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// guiCurrentCard never fails: backend errors are reported as text.
func (p *Provider) guiCurrentCard(ctx context.Context, _ noArgs) (string, error) {
	card, err := p.client.GUICurrentCard(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "Collection is not open") {
			return "Anki is not currently in review mode or no deck is open.", nil
		}
		return "Error getting current card: " + err.Error(), nil
	}
	if card == nil {
		return "No card is currently being reviewed in Anki.", nil
	}

	out := currentCard{DeckName: card.DeckName}
	if f, ok := card.Fields["Front"]; ok {
		out.Question = f.Value
	} else if card.Question != "" {
		out.Question = cleanHTML(card.Question)
	}
	if f, ok := card.Fields["Back"]; ok {
		out.Answer = f.Value
	} else if card.Answer != "" {
		out.Answer = cleanHTML(card.Answer)
	}
	return indentJSON(out)
}

type integerish interface{ ~int | ~int64 }

func formatList[T integerish](xs []T) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.FormatInt(int64(x), 10)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func indentJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
