package bot

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// Message is an inbound chat message.
type Message struct {
	ID        string
	TraceID   string
	ChannelID string
	UserID    string
	Text      string
	IsBot     bool
	// Mentioned is set when the message addresses the bot directly.
	Mentioned bool
	Time      time.Time
}

// Responder sends replies back to the chat platform.
type Responder interface {
	// Reply posts text visible to the whole channel.
	Reply(ctx context.Context, channelID, text string) error
	// ReplyPrivate posts text visible only to userID.
	ReplyPrivate(ctx context.Context, channelID, userID, text string) error
	// Upload shares a file in the channel.
	Upload(ctx context.Context, channelID, filename string, content []byte) error
}

var mentionExpr = regexp.MustCompile(`<[@!#][^>]*>`)

// StripMentions removes user, channel and broadcast mentions
// (<@U123>, <#C1|general>, <!here>) and trims the result.
func StripMentions(text string) string {
	text = mentionExpr.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}
