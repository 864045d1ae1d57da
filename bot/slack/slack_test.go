package slack

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/quotevec/bot"
	"github.com/viant/quotevec/embed"
	"github.com/viant/quotevec/engine"
	"github.com/viant/quotevec/quote"
	"github.com/viant/quotevec/vector"
)

type call struct {
	method  string
	channel string
	user    string
	file    string
	content string
}

type fakeAPI struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeAPI) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeAPI) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeAPI) PostMessageContext(_ context.Context, channelID string, _ ...slack.MsgOption) (string, string, error) {
	f.record(call{method: "post", channel: channelID})
	return channelID, "1700000000.000100", f.err
}

func (f *fakeAPI) PostEphemeralContext(_ context.Context, channelID, userID string, options ...slack.MsgOption) (string, error) {
	_, values, _ := slack.UnsafeApplyMsgOptions("", channelID, "", options...)
	f.record(call{method: "ephemeral", channel: channelID, user: userID, content: values.Get("text")})
	return "1700000000.000200", f.err
}

func (f *fakeAPI) UploadFileV2Context(_ context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error) {
	data, _ := io.ReadAll(params.Reader)
	f.record(call{method: "upload", channel: params.Channel, file: params.Filename, content: string(data)})
	return &slack.FileSummary{ID: "F1", Title: params.Title}, f.err
}

func TestResponder(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	r := NewResponder(api)

	require.NoError(t, r.Reply(ctx, "C1", "hello"))
	require.NoError(t, r.ReplyPrivate(ctx, "C1", "U1", "psst"))
	require.NoError(t, r.Upload(ctx, "C1", "quotes.json", []byte(`[]`)))
	assert.Equal(t, []call{
		{method: "post", channel: "C1"},
		{method: "ephemeral", channel: "C1", user: "U1"},
		{method: "upload", channel: "C1", file: "quotes.json", content: "[]"},
	}, api.snapshot())

	api.err = errors.New("channel_not_found")
	assert.ErrorContains(t, r.Reply(ctx, "C9", "x"), "channel_not_found")
}

func TestFromMessageEvent(t *testing.T) {
	testCases := []struct {
		name      string
		in        *slackevents.MessageEvent
		wantOK    bool
		mentioned bool
		isBot     bool
	}{
		{name: "plain", in: &slackevents.MessageEvent{User: "U1", Channel: "C1", Text: "hi", TimeStamp: "1700000000.000100"}, wantOK: true},
		{name: "mention", in: &slackevents.MessageEvent{User: "U1", Channel: "C1", Text: "<@UBOT> hi"}, wantOK: true, mentioned: true},
		{name: "direct message", in: &slackevents.MessageEvent{User: "U1", Channel: "D1", ChannelType: "im", Text: "hi"}, wantOK: true, mentioned: true},
		{name: "bot author", in: &slackevents.MessageEvent{BotID: "B1", Channel: "C1", Text: "hi"}, wantOK: true, isBot: true},
		{name: "own message", in: &slackevents.MessageEvent{User: "UBOT", Channel: "C1", Text: "hi"}, wantOK: true, isBot: true},
		{name: "edit", in: &slackevents.MessageEvent{SubType: "message_changed", Channel: "C1"}},
		{name: "nil", in: nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg, ok := FromMessageEvent(tc.in, "UBOT")
			assert.Equal(t, tc.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tc.mentioned, msg.Mentioned)
			assert.Equal(t, tc.isBot, msg.IsBot)
			assert.Equal(t, tc.in.Channel, msg.ChannelID)
		})
	}
}

func TestFromSlashCommand(t *testing.T) {
	msg, name, args := FromSlashCommand(slack.SlashCommand{Command: "/quote", Text: " AddQuote  be kind ", ChannelID: "C1", UserID: "U1", TriggerID: "T1"})
	assert.Equal(t, bot.CmdAddQuote, name)
	assert.Equal(t, "be kind", args)
	assert.Equal(t, "C1", msg.ChannelID)
	assert.True(t, msg.Mentioned)

	_, name, args = FromSlashCommand(slack.SlashCommand{Command: "/quote"})
	assert.Equal(t, bot.CmdQuote, name)
	assert.Empty(t, args)
}

func TestParseTimestamp(t *testing.T) {
	assert.Equal(t, time.Unix(1700000000, 100000), parseTimestamp("1700000000.000100"))
	assert.Equal(t, time.Unix(1700000000, 0), parseTimestamp("1700000000"))
	assert.True(t, parseTimestamp("").IsZero())
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{AppToken: "xapp-1"}, nil)
	assert.Error(t, err)
	_, err = New(Config{BotToken: "xoxb-1", AppToken: "xoxb-wrong"}, nil)
	assert.Error(t, err)
	a, err := New(Config{BotToken: "xoxb-1", AppToken: "xapp-1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, a.cfg.APIURL)
}

func newTestAdapter(t *testing.T, api *fakeAPI, quotes ...string) *Adapter {
	t.Helper()
	ctx := context.Background()
	p := engine.NewSQLiteProvider(":memory:", 0)
	t.Cleanup(func() { _ = p.Shutdown() })
	db, err := p.Connect(ctx)
	require.NoError(t, err)
	store, err := vector.NewSQLiteStore("", 64)
	require.NoError(t, err)
	require.NoError(t, store.Attach(ctx, db))
	embedder, err := embed.NewHashingEmbedder(64, 8)
	require.NoError(t, err)
	require.NoError(t, embedder.Boot(ctx))
	m, err := quote.NewManager(embedder, store, quote.Options{})
	require.NoError(t, err)
	for _, q := range quotes {
		_, err := m.AddQuote(ctx, q, "")
		require.NoError(t, err)
	}
	b := bot.New(m, bot.Options{Ambient: true, Threshold: 0.5, Admins: []string{"UADMIN"}})
	return newAdapter(Config{BotUserID: "UBOT"}, b, NewResponder(api))
}

func eventsAPI(inner any) socketmode.Event {
	return socketmode.Event{
		Type: socketmode.EventTypeEventsAPI,
		Data: slackevents.EventsAPIEvent{
			Type:       slackevents.CallbackEvent,
			InnerEvent: slackevents.EventsAPIInnerEvent{Data: inner},
		},
	}
}

func TestAdapter_MentionDeliveredOnce(t *testing.T) {
	api := &fakeAPI{}
	a := newTestAdapter(t, api, "fortune favours the bold")
	ctx := context.Background()

	a.handleEvent(ctx, eventsAPI(&slackevents.MessageEvent{User: "U1", Channel: "C1", Text: "<@UBOT> fortune favours the bold", TimeStamp: "1.1"}))
	a.handleEvent(ctx, eventsAPI(&slackevents.AppMentionEvent{User: "U1", Channel: "C1", Text: "<@UBOT> fortune favours the bold", TimeStamp: "1.1"}))
	a.Wait()

	assert.Equal(t, []call{{method: "post", channel: "C1"}}, api.snapshot())
}

func TestAdapter_SlashCommand(t *testing.T) {
	api := &fakeAPI{}
	a := newTestAdapter(t, api, "one")
	ctx := context.Background()

	a.handleEvent(ctx, socketmode.Event{Type: socketmode.EventTypeSlashCommand, Data: slack.SlashCommand{Command: "/quote", Text: "downloadquotes", ChannelID: "C1", UserID: "UADMIN"}})
	a.handleEvent(ctx, socketmode.Event{Type: socketmode.EventTypeSlashCommand, Data: slack.SlashCommand{Command: "/quote", Text: "dance", ChannelID: "C1", UserID: "U1"}})
	a.Wait()

	calls := api.snapshot()
	require.Len(t, calls, 2)
	methods := []string{calls[0].method, calls[1].method}
	assert.ElementsMatch(t, []string{"upload", "ephemeral"}, methods)
}

func TestAdapter_UnknownSlashCommandHint(t *testing.T) {
	api := &fakeAPI{}
	a := newTestAdapter(t, api, "one")
	ctx := context.Background()

	a.handleEvent(ctx, socketmode.Event{Type: socketmode.EventTypeSlashCommand, Data: slack.SlashCommand{Command: "/quote", Text: "dance", ChannelID: "C1", UserID: "U1"}})
	a.Wait()

	calls := api.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "ephemeral", calls[0].method)
	assert.Contains(t, calls[0].content, "`/quote "+bot.CmdHelp+"`")

	a.handleEvent(ctx, socketmode.Event{Type: socketmode.EventTypeSlashCommand, Data: slack.SlashCommand{Command: "/quote", Text: bot.CmdHelp, ChannelID: "C1", UserID: "U1"}})
	a.Wait()
	calls = api.snapshot()
	require.Len(t, calls, 2)
	assert.NotContains(t, calls[1].content, "Unknown command")
}

func TestAdapter_IgnoresOtherEvents(t *testing.T) {
	api := &fakeAPI{}
	a := newTestAdapter(t, api)
	ctx := context.Background()
	a.handleEvent(ctx, socketmode.Event{Type: socketmode.EventTypeConnected})
	a.handleEvent(ctx, socketmode.Event{Type: socketmode.EventTypeEventsAPI, Data: "garbage"})
	a.handleEvent(ctx, eventsAPI(&slackevents.ReactionAddedEvent{}))
	a.Wait()
	assert.Empty(t, api.snapshot())
}
