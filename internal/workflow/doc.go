// Package workflow wires the companion's turn graph.
//
// Every turn runs the same topology:
//
//	memory_extract -> router -> memory_inject -> {conversation | image | audio} -> [summarize] -> end
//
// Stages are methods on Pipeline. They read the turn state, call one or more
// collaborators (completion, memory, image and speech services) and hand back
// a domain.Update. They never mutate the state they are given.
package workflow
