/*
Package dsl provides a fluent builder for the turn graph.

A graph is a set of named nodes, each running one Stage, joined by either an
unconditional edge (Go) or a conditional fan-out (Route plus the Branch targets
it may choose). Build validates the topology (no broken links, no unreachable
nodes, no cycles) and returns an immutable Graph that is safe to share across
concurrent turns.

Example usage:

	b := dsl.New()
	b.Add("router").Run(classify).Go("reply")
	b.Add("reply").Run(reply).
		Route(needsSummary).
		Branch("len(messages) > 20", "summarize").
		Branch("otherwise", dsl.End)
	b.Add("summarize").Run(summarize).Terminal()

	graph, err := b.Entry("router").Build()
*/
package dsl
