package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/viant/quotevec/vector"
)

// ExportFilename is the attachment name used when quotes are downloaded.
const ExportFilename = "quotes.json"

// ExportRecord is one element of the JSON export.
type ExportRecord struct {
	ID    int64  `json:"id"`
	Text  string `json:"text"`
	Label string `json:"label,omitempty"`
}

// ExportJSON renders every quote as an indented JSON array.
func (m *Manager) ExportJSON(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := m.Export(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Export writes every quote to w as an indented JSON array ordered by id.
func (m *Manager) Export(ctx context.Context, w io.Writer) error {
	quotes, err := m.store.ListAll(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(Records(quotes))
}

// Import adds the quotes read from r and returns how many were added. It
// accepts the Export format or a plain JSON array of strings, the layout of
// the legacy quotes file. Ids in the input are ignored; the store assigns
// new ones.
func (m *Manager) Import(ctx context.Context, r io.Reader) (int, error) {
	entries, err := ParseImport(r)
	if err != nil {
		return 0, err
	}
	ids, err := m.AddQuotes(ctx, entries)
	return len(ids), err
}

// ParseImport decodes either import layout into entries.
func ParseImport(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("quote: import must be a JSON array: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for i, item := range raw {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			entries = append(entries, Entry{Text: text})
			continue
		}
		var rec ExportRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, fmt.Errorf("quote: import element %d: %w", i, err)
		}
		entries = append(entries, Entry{Text: rec.Text, Label: rec.Label})
	}
	return entries, nil
}

// Records converts stored quotes to their export form.
func Records(quotes []vector.Quote) []ExportRecord {
	out := make([]ExportRecord, len(quotes))
	for i, q := range quotes {
		out[i] = ExportRecord{ID: q.ID, Text: q.Text, Label: q.Label}
	}
	return out
}
