// Package vector defines the quote vector-store API and its SQLite-backed
// implementation. It includes:
//   - Quote and Match models and the Store interface
//   - Metric, a closed set of distance functions (cosine, Euclidean,
//     negative inner product)
//   - Normalize, the L2 normalizer applied to every embedding batch
//   - SQLiteStore: durable storage ranked in SQL by the engine functions
//   - Schema helpers, embedding encoding (BLOB) and distance kernels
package vector
