/*
Package session implements session management and persistence orchestration.

It serializes turns per session, integrating a local reference-counted mutex
map with an optional distributed lock so that replicas sharing a store never
run two turns of the same conversation at once.
*/
package session
