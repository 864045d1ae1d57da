// Package index defines a minimal abstraction for in-memory vector indexes
// that are built from (id, embedding) pairs and queried for the k nearest
// neighbours under a vector.Metric. Backends without SQL-side ranking use it.
package index
