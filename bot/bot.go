package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/viant/quotevec/quote"
	"github.com/viant/quotevec/vector"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Reply texts shared by commands and the ambient trigger.
const (
	MsgNoQuotes     = "No quotes available!"
	MsgAdminOnly    = "You need to be an admin to use this."
	MsgInternalFail = "An error occurred while processing the command."
)

// Options configures a Bot.
type Options struct {
	Prefix string
	Admins []string
	// Ambient enables replying to ordinary messages with a similar quote.
	Ambient bool
	// Threshold is the ambient distance cutoff in Metric's space.
	Threshold float64
	Metric    vector.Metric
	// AmbientRatePerMinute caps unsolicited replies per channel; 0 disables
	// the cap.
	AmbientRatePerMinute float64
	PageSize             int
	// Workers bounds concurrent embedder and store calls.
	Workers     int
	CallTimeout time.Duration
}

func (o *Options) defaults() {
	if o.Prefix == "" {
		o.Prefix = "!"
	}
	if o.PageSize <= 0 {
		o.PageSize = 10
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 10 * time.Second
	}
}

// Bot routes chat messages to the quote manager.
type Bot struct {
	manager   *quote.Manager
	opts      Options
	admins    map[string]bool
	sem       *semaphore.Weighted
	collector *Collector

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New returns a bot serving manager.
func New(manager *quote.Manager, opts Options) *Bot {
	opts.defaults()
	admins := make(map[string]bool, len(opts.Admins))
	for _, id := range opts.Admins {
		admins[strings.TrimSpace(id)] = true
	}
	return &Bot{
		manager:  manager,
		opts:     opts,
		admins:   admins,
		sem:      semaphore.NewWeighted(int64(opts.Workers)),
		limiters: map[string]*rate.Limiter{},
	}
}

// SetCollector enables recording of inbound messages.
func (b *Bot) SetCollector(c *Collector) { b.collector = c }

// Prefix returns the command prefix.
func (b *Bot) Prefix() string { return b.opts.Prefix }

// IsAdmin reports whether userID may run admin commands.
func (b *Bot) IsAdmin(userID string) bool { return b.admins[userID] }

// Handle processes one inbound message: prefixed commands are dispatched,
// anything else goes to the ambient trigger.
func (b *Bot) Handle(ctx context.Context, msg Message, r Responder) error {
	if msg.IsBot {
		return nil
	}
	if msg.TraceID == "" {
		msg.TraceID = uuid.NewString()
	}
	logger := b.logger(msg)
	logger.WithField("text", msg.Text).Debug("message received")

	if b.collector != nil {
		if err := b.collector.Record(msg); err != nil {
			logger.WithError(err).Warn("failed to collect message")
		}
	}

	if name, args, ok := ParseCommand(b.opts.Prefix, msg.Text); ok {
		return b.Command(ctx, msg, name, args, r)
	}
	if !b.opts.Ambient && !msg.Mentioned {
		return nil
	}
	return b.ambient(ctx, msg, r)
}

func (b *Bot) ambient(ctx context.Context, msg Message, r Responder) error {
	logger := b.logger(msg)
	content := StripMentions(msg.Text)
	if content == "" {
		return nil
	}

	var matches []vector.Match
	if b.opts.Ambient {
		threshold := b.opts.Threshold
		metric := b.opts.Metric
		err := b.call(ctx, func(ctx context.Context) error {
			var err error
			matches, err = b.manager.Query(ctx, content, quote.QueryOptions{TopN: 1, Threshold: &threshold, Metric: &metric})
			return err
		})
		if err != nil {
			logger.WithError(err).Error("similarity search failed")
			return nil
		}
	}
	if len(matches) > 0 {
		if !msg.Mentioned && !b.allow(msg.ChannelID) {
			logger.Debug("ambient reply rate limited")
			return nil
		}
		logger.WithField("quote_id", matches[0].ID).WithField("distance", matches[0].Distance).Debug("ambient match")
		return r.Reply(ctx, msg.ChannelID, matches[0].Text)
	}
	if !msg.Mentioned {
		return nil
	}

	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "quote"):
		err := b.call(ctx, func(ctx context.Context) error {
			var err error
			matches, err = b.manager.Query(ctx, content, quote.QueryOptions{TopN: 1, Metric: &b.opts.Metric})
			return err
		})
		if err != nil {
			logger.WithError(err).Error("loose search failed")
			return r.Reply(ctx, msg.ChannelID, MsgNoQuotes)
		}
		if len(matches) == 0 {
			return r.Reply(ctx, msg.ChannelID, MsgNoQuotes)
		}
		return r.Reply(ctx, msg.ChannelID, matches[0].Text)
	case strings.Contains(lower, "help"):
		return r.Reply(ctx, msg.ChannelID, "Try `"+b.opts.Prefix+"helpme` for a list of commands!")
	}
	return nil
}

// call runs fn under the worker semaphore with the per-call timeout.
func (b *Bot) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer b.sem.Release(1)
	callCtx, cancel := context.WithTimeout(ctx, b.opts.CallTimeout)
	defer cancel()
	err := fn(callCtx)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		log.WithField("timeout", b.opts.CallTimeout).Warn("call timed out")
	}
	return err
}

func (b *Bot) allow(channelID string) bool {
	if b.opts.AmbientRatePerMinute <= 0 {
		return true
	}
	b.mu.Lock()
	lim, ok := b.limiters[channelID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(b.opts.AmbientRatePerMinute/60), 1)
		b.limiters[channelID] = lim
	}
	b.mu.Unlock()
	return lim.Allow()
}

func (b *Bot) logger(msg Message) *log.Entry {
	return log.WithFields(log.Fields{
		"trace_id": msg.TraceID,
		"channel":  msg.ChannelID,
		"user":     msg.UserID,
	})
}
