// Package bolt implements vector.Store on an embedded bbolt database. Quotes
// live in one bucket keyed by big-endian id; ranking is done in memory with
// the brute-force index, which suits the small collections a chat bot keeps.
package bolt
