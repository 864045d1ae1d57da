// Package bot implements the chat behaviour of the quote bot independently
// of any chat platform: prefixed commands, the ambient "reply with a similar
// quote" trigger, list pagination and inbound message collection.
//
// Transports (see bot/slack) translate platform events into Message values
// and implement Responder.
package bot
