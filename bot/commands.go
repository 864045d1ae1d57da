package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/viant/quotevec/quote"
	"github.com/viant/quotevec/vector"
)

// Command names.
const (
	CmdQuote          = "quote"
	CmdAddQuote       = "addquote"
	CmdRemoveQuote    = "removequote"
	CmdListQuotes     = "listquotes"
	CmdDownloadQuotes = "downloadquotes"
	CmdHelp           = "helpme"
)

// Commands lists every command the router understands.
var Commands = []string{CmdQuote, CmdAddQuote, CmdRemoveQuote, CmdListQuotes, CmdDownloadQuotes, CmdHelp}

var adminCommands = map[string]bool{
	CmdRemoveQuote:    true,
	CmdListQuotes:     true,
	CmdDownloadQuotes: true,
}

// ErrUnknownCommand is returned by Command for names not in Commands.
var ErrUnknownCommand = errors.New("bot: unknown command")

// ParseCommand splits "<prefix><name> <args>" when name is a known command.
func ParseCommand(prefix, text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(text, prefix)
	name, args, _ = strings.Cut(rest, " ")
	name = strings.ToLower(name)
	if !lo.Contains(Commands, name) {
		return "", "", false
	}
	return name, strings.TrimSpace(args), true
}

// Command runs the named command on behalf of msg.
func (b *Bot) Command(ctx context.Context, msg Message, name, args string, r Responder) error {
	if !lo.Contains(Commands, name) {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	logger := b.logger(msg).WithField("command", name)
	if adminCommands[name] && !b.IsAdmin(msg.UserID) {
		logger.Info("admin command refused")
		return r.ReplyPrivate(ctx, msg.ChannelID, msg.UserID, MsgAdminOnly)
	}

	var err error
	switch name {
	case CmdQuote:
		err = b.cmdQuote(ctx, msg, r)
	case CmdAddQuote:
		err = b.cmdAddQuote(ctx, msg, args, r)
	case CmdRemoveQuote:
		err = b.cmdRemoveQuote(ctx, msg, args, r)
	case CmdListQuotes:
		err = b.cmdListQuotes(ctx, msg, args, r)
	case CmdDownloadQuotes:
		err = b.cmdDownloadQuotes(ctx, msg, r)
	case CmdHelp:
		err = r.ReplyPrivate(ctx, msg.ChannelID, msg.UserID, b.HelpText(b.IsAdmin(msg.UserID)))
	}
	if err != nil {
		logger.WithError(err).Error("command failed")
		return r.ReplyPrivate(ctx, msg.ChannelID, msg.UserID, MsgInternalFail)
	}
	return nil
}

func (b *Bot) cmdQuote(ctx context.Context, msg Message, r Responder) error {
	var q vector.Quote
	err := b.call(ctx, func(ctx context.Context) error {
		var err error
		q, err = b.manager.Random(ctx)
		return err
	})
	if errors.Is(err, quote.ErrNoQuotes) {
		return r.Reply(ctx, msg.ChannelID, MsgNoQuotes)
	}
	if err != nil {
		return err
	}
	b.logger(msg).WithField("quote_id", q.ID).Info("random quote served")
	return r.Reply(ctx, msg.ChannelID, q.Text)
}

func (b *Bot) cmdAddQuote(ctx context.Context, msg Message, text string, r Responder) error {
	text = StripMentions(text)
	if text == "" {
		return r.ReplyPrivate(ctx, msg.ChannelID, msg.UserID, "Usage: `"+b.opts.Prefix+CmdAddQuote+" <quote>`")
	}
	var id int64
	err := b.call(ctx, func(ctx context.Context) error {
		var err error
		id, err = b.manager.AddQuote(ctx, text, quote.DefaultLabel)
		return err
	})
	if err != nil {
		return err
	}
	b.logger(msg).WithField("quote_id", id).Info("quote added")
	return r.ReplyPrivate(ctx, msg.ChannelID, msg.UserID, fmt.Sprintf("Added quote #%d: '%s'", id, text))
}

func (b *Bot) cmdRemoveQuote(ctx context.Context, msg Message, args string, r Responder) error {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(args), "#"), 10, 64)
	if err != nil || id <= 0 {
		return r.ReplyPrivate(ctx, msg.ChannelID, msg.UserID, "Please provide a valid quote id.")
	}
	var found bool
	err = b.call(ctx, func(ctx context.Context) error {
		var err error
		if _, found, err = b.manager.Store().Get(ctx, id); err != nil || !found {
			return err
		}
		return b.manager.RemoveQuoteByID(ctx, id)
	})
	if err != nil {
		return err
	}
	if !found {
		return r.ReplyPrivate(ctx, msg.ChannelID, msg.UserID, fmt.Sprintf("Quote #%d not found.", id))
	}
	b.logger(msg).WithField("quote_id", id).Info("quote removed")
	return r.ReplyPrivate(ctx, msg.ChannelID, msg.UserID, fmt.Sprintf("Removed quote #%d.", id))
}

func (b *Bot) cmdListQuotes(ctx context.Context, msg Message, args string, r Responder) error {
	page := 1
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil {
			return r.ReplyPrivate(ctx, msg.ChannelID, msg.UserID, "Please provide a valid page number.")
		}
		page = n
	}
	var quotes []vector.Quote
	err := b.call(ctx, func(ctx context.Context) error {
		var err error
		quotes, err = b.manager.ListQuotes(ctx)
		return err
	})
	if err != nil {
		return err
	}
	if len(quotes) == 0 {
		return r.ReplyPrivate(ctx, msg.ChannelID, msg.UserID, "No quotes yet.")
	}
	p := NewPaginator(quotes, b.opts.PageSize)
	text := p.Format(page)
	if p.Pages() > 1 {
		text += fmt.Sprintf("\n_Use `%s%s <page>` for more._", b.opts.Prefix, CmdListQuotes)
	}
	return r.ReplyPrivate(ctx, msg.ChannelID, msg.UserID, text)
}

func (b *Bot) cmdDownloadQuotes(ctx context.Context, msg Message, r Responder) error {
	var count int
	var data []byte
	err := b.call(ctx, func(ctx context.Context) error {
		var err error
		if count, err = b.manager.CountQuotes(ctx); err != nil || count == 0 {
			return err
		}
		data, err = b.manager.ExportJSON(ctx)
		return err
	})
	if err != nil {
		return err
	}
	if count == 0 {
		return r.ReplyPrivate(ctx, msg.ChannelID, msg.UserID, "No quotes available.")
	}
	b.logger(msg).WithField("count", count).Info("quotes exported")
	return r.Upload(ctx, msg.ChannelID, quote.ExportFilename, data)
}

// HelpText renders the command reference; admin commands only for admins.
func (b *Bot) HelpText(admin bool) string {
	p := b.opts.Prefix
	lines := []string{
		"*Quote Bot Help*",
		"",
		"Public commands:",
		fmt.Sprintf("`%s%s` - Get a random quote", p, CmdQuote),
		fmt.Sprintf("`%s%s <quote>` - Add a new quote", p, CmdAddQuote),
		fmt.Sprintf("`%s%s` - Show this help", p, CmdHelp),
	}
	if admin {
		lines = append(lines,
			"",
			"Admin-only commands:",
			fmt.Sprintf("`%s%s <id>` - Remove a quote by id", p, CmdRemoveQuote),
			fmt.Sprintf("`%s%s [page]` - List all quotes", p, CmdListQuotes),
			fmt.Sprintf("`%s%s` - Download %s", p, CmdDownloadQuotes, quote.ExportFilename),
		)
	}
	return strings.Join(lines, "\n")
}
