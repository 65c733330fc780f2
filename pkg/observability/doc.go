/*
Package observability turns lifecycle hooks into Prometheus metrics and
structured log lines.

Metrics registers its collectors on a caller supplied registry so several
agents (or tests) never collide on the global default registerer.
*/
package observability
