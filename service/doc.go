// Package service boots, health-checks and shuts down the long-lived
// components of the quote bot (embedder, store, health endpoint) in a
// deterministic order.
package service
