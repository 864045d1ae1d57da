package slack

import (
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/viant/quotevec/bot"
)

// message subtypes that still carry fresh user text
var userSubtypes = map[string]bool{
	"":                 true,
	"bot_message":      true,
	"thread_broadcast": true,
	"file_share":       true,
}

// FromMessageEvent converts a channel message. Edits, deletions and other
// housekeeping subtypes are skipped.
func FromMessageEvent(in *slackevents.MessageEvent, botUserID string) (bot.Message, bool) {
	if in == nil || !userSubtypes[in.SubType] {
		return bot.Message{}, false
	}
	return bot.Message{
		ID:        in.TimeStamp,
		ChannelID: in.Channel,
		UserID:    in.User,
		Text:      in.Text,
		IsBot:     in.BotID != "" || in.SubType == "bot_message" || (botUserID != "" && in.User == botUserID),
		Mentioned: mentions(in.Text, botUserID) || in.ChannelType == "im",
		Time:      parseTimestamp(in.TimeStamp),
	}, true
}

// FromAppMention converts an app_mention event.
func FromAppMention(in *slackevents.AppMentionEvent) (bot.Message, bool) {
	if in == nil {
		return bot.Message{}, false
	}
	return bot.Message{
		ID:        in.TimeStamp,
		ChannelID: in.Channel,
		UserID:    in.User,
		Text:      in.Text,
		IsBot:     in.BotID != "",
		Mentioned: true,
		Time:      parseTimestamp(in.TimeStamp),
	}, true
}

// FromSlashCommand converts "/quote <command> <args>". An empty text runs
// the random quote command.
func FromSlashCommand(cmd slack.SlashCommand) (msg bot.Message, name, args string) {
	msg = bot.Message{
		ID:        cmd.TriggerID,
		ChannelID: cmd.ChannelID,
		UserID:    cmd.UserID,
		Text:      cmd.Text,
		Mentioned: true,
		Time:      time.Now(),
	}
	name, args, _ = strings.Cut(strings.TrimSpace(cmd.Text), " ")
	name = strings.ToLower(strings.TrimPrefix(name, "!"))
	if name == "" {
		name = bot.CmdQuote
	}
	return msg, name, strings.TrimSpace(args)
}

func mentions(text, botUserID string) bool {
	if botUserID == "" {
		return false
	}
	return strings.Contains(text, "<@"+botUserID+">") || strings.Contains(text, "<@"+botUserID+"|")
}

// parseTimestamp reads a Slack "seconds.micros" timestamp.
func parseTimestamp(ts string) time.Time {
	sec, frac, _ := strings.Cut(ts, ".")
	s, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Time{}
	}
	var ns int64
	if frac != "" {
		if ns, err = strconv.ParseInt((frac + "000000000")[:9], 10, 64); err != nil {
			ns = 0
		}
	}
	return time.Unix(s, ns)
}
