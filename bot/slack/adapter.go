package slack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/viant/quotevec/bot"
)

// DefaultAPIURL is the Slack Web API base.
const DefaultAPIURL = "https://slack.com/api/"

const dedupeWindow = 5 * time.Minute

// Config configures the Socket Mode connection.
type Config struct {
	// BotToken is the xoxb- token used for Web API calls.
	BotToken string
	// AppToken is the xapp- token that opens the Socket Mode connection.
	AppToken string
	// BotUserID is resolved through auth.test when empty.
	BotUserID string
	APIURL    string
	Debug     bool
}

// Adapter feeds Slack events into a bot.Bot.
type Adapter struct {
	cfg       Config
	bot       *bot.Bot
	api       *slack.Client
	client    *socketmode.Client
	responder bot.Responder

	wg   sync.WaitGroup
	mu   sync.Mutex
	seen map[string]time.Time
}

// New validates cfg and builds the Slack clients. No connection is made
// until Run.
func New(cfg Config, b *bot.Bot) (*Adapter, error) {
	if strings.TrimSpace(cfg.BotToken) == "" {
		return nil, errors.New("slack: bot token is required")
	}
	if !strings.HasPrefix(cfg.AppToken, "xapp-") {
		return nil, errors.New("slack: app token must start with xapp-")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	api := slack.New(cfg.BotToken,
		slack.OptionAPIURL(cfg.APIURL),
		slack.OptionAppLevelToken(cfg.AppToken),
		slack.OptionDebug(cfg.Debug),
	)
	a := newAdapter(cfg, b, NewResponder(api))
	a.api = api
	a.client = socketmode.New(api, socketmode.OptionDebug(cfg.Debug))
	return a, nil
}

func newAdapter(cfg Config, b *bot.Bot, responder bot.Responder) *Adapter {
	return &Adapter{cfg: cfg, bot: b, responder: responder, seen: map[string]time.Time{}}
}

// Run connects and processes events until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	if a.cfg.BotUserID == "" {
		resp, err := a.api.AuthTestContext(ctx)
		if err != nil {
			return fmt.Errorf("slack: auth test: %w", err)
		}
		a.cfg.BotUserID = resp.UserID
		log.WithField("bot_user", resp.UserID).WithField("team", resp.Team).Info("slack identity resolved")
	}

	go a.loop(ctx)
	err := a.client.RunContext(ctx)
	a.wg.Wait()
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return nil
	}
	return err
}

func (a *Adapter) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-a.client.Events:
			if !ok {
				return
			}
			a.handleEvent(ctx, evt)
		}
	}
}

func (a *Adapter) handleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		log.Info("slack: connecting")
	case socketmode.EventTypeConnected:
		log.Info("slack: connected")
	case socketmode.EventTypeConnectionError:
		log.WithField("data", evt.Data).Warn("slack: connection error")
	case socketmode.EventTypeEventsAPI:
		a.ack(evt)
		ev, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok || ev.Type != slackevents.CallbackEvent {
			return
		}
		var msg bot.Message
		switch in := ev.InnerEvent.Data.(type) {
		case *slackevents.MessageEvent:
			msg, ok = FromMessageEvent(in, a.cfg.BotUserID)
		case *slackevents.AppMentionEvent:
			msg, ok = FromAppMention(in)
		default:
			return
		}
		if !ok || a.duplicate(msg) {
			return
		}
		a.dispatch(ctx, func(ctx context.Context) error { return a.bot.Handle(ctx, msg, a.responder) })
	case socketmode.EventTypeSlashCommand:
		a.ack(evt)
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		msg, name, args := FromSlashCommand(cmd)
		a.dispatch(ctx, func(ctx context.Context) error {
			err := a.bot.Command(ctx, msg, name, args, a.responder)
			if errors.Is(err, bot.ErrUnknownCommand) {
				return a.responder.ReplyPrivate(ctx, msg.ChannelID, msg.UserID,
					fmt.Sprintf("Unknown command %q. Try `%s %s`.", name, cmd.Command, bot.CmdHelp))
			}
			return err
		})
	}
}

func (a *Adapter) ack(evt socketmode.Event) {
	if evt.Request != nil && a.client != nil {
		a.client.Ack(*evt.Request)
	}
}

func (a *Adapter) dispatch(ctx context.Context, fn func(ctx context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := fn(ctx); err != nil {
			log.WithError(err).Warn("slack: handler failed")
		}
	}()
}

// duplicate reports whether the message was already seen. A mention is
// delivered both as a message and as an app_mention event.
func (a *Adapter) duplicate(msg bot.Message) bool {
	if msg.ID == "" {
		return false
	}
	key := msg.ChannelID + ":" + msg.ID
	now := time.Now()
	a.mu.Lock()
	defer a.mu.Unlock()
	for k, at := range a.seen {
		if now.Sub(at) > dedupeWindow {
			delete(a.seen, k)
		}
	}
	if _, ok := a.seen[key]; ok {
		return true
	}
	a.seen[key] = now
	return false
}

// Wait blocks until in-flight handlers finish.
func (a *Adapter) Wait() { a.wg.Wait() }
