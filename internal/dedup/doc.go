// Package dedup resolves content hashes for same-name, same-size candidates,
// partitions them into duplicate clusters, and runs catalogue-internal
// duplicate detection over every candidate group of a catalogue.
package dedup
