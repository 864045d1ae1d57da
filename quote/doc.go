// Package quote is the quote-oriented facade over an embed.Embedder and a
// vector.Store. Callers hand it text; it embeds, L2-normalizes and stores or
// searches, so the chat layer never deals with vectors.
package quote
