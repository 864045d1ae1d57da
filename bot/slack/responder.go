package slack

import (
	"bytes"
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/viant/quotevec/bot"
)

// API is the subset of *slack.Client used to answer users.
type API interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slack.MsgOption) (string, error)
	UploadFileV2Context(ctx context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
}

// Responder implements bot.Responder on top of the Slack Web API.
type Responder struct {
	api API
}

// NewResponder wraps api.
func NewResponder(api API) *Responder {
	return &Responder{api: api}
}

// Reply implements bot.Responder.
func (r *Responder) Reply(ctx context.Context, channelID, text string) error {
	if _, _, err := r.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

// ReplyPrivate implements bot.Responder with an ephemeral message.
func (r *Responder) ReplyPrivate(ctx context.Context, channelID, userID, text string) error {
	if _, err := r.api.PostEphemeralContext(ctx, channelID, userID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("slack: post ephemeral: %w", err)
	}
	return nil
}

// Upload implements bot.Responder.
func (r *Responder) Upload(ctx context.Context, channelID, filename string, content []byte) error {
	_, err := r.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Channel:  channelID,
		Filename: filename,
		Title:    filename,
		Reader:   bytes.NewReader(content),
		FileSize: len(content),
	})
	if err != nil {
		return fmt.Errorf("slack: upload %s: %w", filename, err)
	}
	return nil
}

var _ bot.Responder = (*Responder)(nil)
