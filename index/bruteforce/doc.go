// Package bruteforce provides an exact vector index that answers kNN queries
// by scanning every vector. Ties are broken by ascending id so results are
// deterministic.
package bruteforce
