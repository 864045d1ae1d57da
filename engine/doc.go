// Package engine provides helpers for working with the modernc.org/sqlite
// driver in this module: opening connections, registering the vector SQL
// scalar functions and handing out a process-scoped connection through a
// Provider. It keeps a thin surface so other packages share the same driver
// instance.
package engine
