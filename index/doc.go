// Package index defines the contract of the vector store behind similarity
// search: sequential positions, exact kNN search under a configurable
// metric, reconstruction, and binary serialization for persistence.
// Implementations in this module include a brute-force flat store; the
// contract is kept narrow so that another exact or approximate store can be
// substituted without touching index building or querying.
package index
