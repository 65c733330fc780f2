// Package memory implements the companion's long-term memory.
//
// A Manager decides which user messages hold facts worth keeping (through a
// structured completion), embeds those facts and stores them in a vector
// Index partitioned by session. Queries embed the recent conversation and
// return the closest facts.
package memory
