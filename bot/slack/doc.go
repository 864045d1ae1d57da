// Package slack connects the bot to Slack over Socket Mode. Channel
// messages and app mentions feed bot.Bot.Handle; the /quote slash command
// maps its first word onto the bot's command router.
package slack
