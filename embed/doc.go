// Package embed turns text into fixed-width float32 vectors.
//
// Every Embedder has a two-phase lifecycle: construction is cheap and does no
// I/O, Boot performs the expensive part (model setup, endpoint probing) and
// Embed fails with ErrNotReady until Boot has succeeded. Two backends are
// provided: HashingEmbedder, a deterministic local feature-hashing model, and
// OpenAIEmbedder, a client for any OpenAI-compatible embeddings endpoint.
package embed
