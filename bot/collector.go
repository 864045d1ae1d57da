package bot

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// CollectedMessage is one JSONL record written by Collector.
type CollectedMessage struct {
	Time      time.Time `json:"time"`
	TraceID   string    `json:"trace_id,omitempty"`
	ChannelID string    `json:"channel,omitempty"`
	UserID    string    `json:"user,omitempty"`
	Text      string    `json:"text"`
}

// Collector appends inbound message text to a JSON Lines sink.
type Collector struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
}

// NewCollector writes to w.
func NewCollector(w io.Writer) *Collector {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	c := &Collector{enc: enc}
	if closer, ok := w.(io.Closer); ok {
		c.closer = closer
	}
	return c
}

// OpenCollector appends to the file at path, creating parent directories.
func OpenCollector(path string) (*Collector, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return NewCollector(f), nil
}

// Record appends msg. Blank text is skipped.
func (c *Collector) Record(msg Message) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}
	ts := msg.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enc.Encode(CollectedMessage{
		Time:      ts.UTC(),
		TraceID:   msg.TraceID,
		ChannelID: msg.ChannelID,
		UserID:    msg.UserID,
		Text:      text,
	})
}

// Close closes the underlying sink when it is closable.
func (c *Collector) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
