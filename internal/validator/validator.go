package validator

import (
	"fmt"
	"sort"
	"strings"
)

// Topology is the adjacency view of a graph: node ID to the IDs it may move to.
// The sink ID may appear as a target without being a key.
type Topology map[string][]string

// ValidateGraph checks for broken links, unreachable nodes and cycles starting
// from startNodeID. On success it returns the number of nodes on the longest
// path from the start to the sink, which bounds the steps a single run takes.
func ValidateGraph(topo Topology, startNodeID, sinkID string) (int, error) {
	if _, ok := topo[startNodeID]; !ok {
		return 0, fmt.Errorf("start node '%s' not found", startNodeID)
	}

	var errors []string

	// 1. Crawl for broken links
	visited := make(map[string]bool)
	queue := []string{startNodeID}
	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]

		if visited[currentID] {
			continue
		}
		visited[currentID] = true

		targets, ok := topo[currentID]
		if !ok {
			errors = append(errors, fmt.Sprintf("Missing node: '%s'", currentID))
			continue
		}
		if len(targets) == 0 {
			errors = append(errors, fmt.Sprintf("Node '%s' has no transitions", currentID))
		}
		for _, target := range targets {
			if target == sinkID {
				continue
			}
			if !visited[target] {
				queue = append(queue, target)
			}
		}
	}

	// 2. Unreachable nodes
	var unreachable []string
	for id := range topo {
		if !visited[id] {
			unreachable = append(unreachable, id)
		}
	}
	sort.Strings(unreachable)
	for _, id := range unreachable {
		errors = append(errors, fmt.Sprintf("Unreachable node: '%s'", id))
	}

	if len(errors) > 0 {
		return 0, fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}

	// 3. Cycles and longest path
	const (
		unvisited = iota
		inProgress
		done
	)
	color := make(map[string]int, len(topo))
	depth := make(map[string]int, len(topo))

	var walk func(id string, path []string) error
	walk = func(id string, path []string) error {
		switch color[id] {
		case inProgress:
			return fmt.Errorf("cycle detected: %s -> %s", strings.Join(path, " -> "), id)
		case done:
			return nil
		}
		color[id] = inProgress
		longest := 0
		for _, target := range topo[id] {
			if target == sinkID {
				continue
			}
			if err := walk(target, append(path, id)); err != nil {
				return err
			}
			if depth[target] > longest {
				longest = depth[target]
			}
		}
		color[id] = done
		depth[id] = longest + 1
		return nil
	}

	if err := walk(startNodeID, nil); err != nil {
		return 0, err
	}
	return depth[startNodeID], nil
}
