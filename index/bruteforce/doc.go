// Package bruteforce provides the flat vector store: vectors are appended in
// position order and kNN queries scan all of them, scoring by inner product
// or Euclidean distance. It supports a compact, checksummed binary format
// that records metric, dimensionality and vector count.
package bruteforce
