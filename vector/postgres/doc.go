// Package postgres implements vector.Store on PostgreSQL with the pgvector
// extension. Ranking runs in the database with the pgvector distance
// operators: <=> cosine, <-> Euclidean and <#> negative inner product.
package postgres
