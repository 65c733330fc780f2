package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/companion/pkg/dsl"
)

const (
	startID = "__start__"
	endID   = "__end__"
)

// GraphOverlay contains dynamic turn data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart of g.
// It applies semantic styling:
// - Start/End: ((Circle))
// - Routing node (picks its successor at runtime): {{Hexagon}}
// - Node with side effects to compensate (writes media): [[Subroutine]]
// - Default: [Rectangle]
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(g *dsl.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString(fmt.Sprintf("    %s((\"start\"))\n", startID))
	sb.WriteString(fmt.Sprintf("    %s --> %s\n", startID, sanitizeMermaidID(g.Entry())))

	for _, node := range g.Nodes() {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case node.Conditional():
			opener, closer = "{{", "}}"
		case node.Undo != nil:
			opener, closer = "[[", "]]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, node.ID, closer))

		for _, t := range node.Transitions {
			arrow := "-->"
			if t.Condition != "" {
				// Escape double quotes in condition for Mermaid label
				safeCondition := strings.ReplaceAll(t.Condition, "\"", "'")
				arrow = fmt.Sprintf("-- \"%s\" -->", safeCondition)
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, target(t.ToNodeID)))
		}
	}
	sb.WriteString(fmt.Sprintf("    %s((\"end\"))\n", endID))

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentNode != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

func target(id string) string {
	if id == dsl.End {
		return endID
	}
	return sanitizeMermaidID(id)
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
