package validator

import (
	"strings"
	"testing"
)

func TestValidateGraph(t *testing.T) {
	// Scenario A: valid diamond, start -> (a | b) -> c -> end
	valid := Topology{
		"start": {"a", "b"},
		"a":     {"c"},
		"b":     {"c", "end"},
		"c":     {"end"},
	}
	depth, err := ValidateGraph(valid, "start", "end")
	if err != nil {
		t.Fatalf("Scenario A (Valid) failed: %v", err)
	}
	if depth != 3 {
		t.Errorf("Expected longest path of 3 nodes, got %d", depth)
	}

	// Scenario B: broken link
	broken := Topology{
		"start": {"ghost_node"},
	}
	_, err = ValidateGraph(broken, "start", "end")
	if err == nil {
		t.Fatal("Scenario B (Broken) should have failed, but got nil")
	}
	if !strings.Contains(err.Error(), "Missing node") {
		t.Errorf("Expected 'Missing node' error, got: %v", err)
	}

	// Scenario C: unreachable node
	orphan := Topology{
		"start":  {"end"},
		"orphan": {"end"},
	}
	_, err = ValidateGraph(orphan, "start", "end")
	if err == nil || !strings.Contains(err.Error(), "Unreachable node: 'orphan'") {
		t.Errorf("Expected unreachable error, got: %v", err)
	}

	// Scenario D: cycle
	cyclic := Topology{
		"start": {"a"},
		"a":     {"b"},
		"b":     {"a", "end"},
	}
	_, err = ValidateGraph(cyclic, "start", "end")
	if err == nil || !strings.Contains(err.Error(), "cycle detected") {
		t.Errorf("Expected cycle error, got: %v", err)
	}

	// Scenario E: missing start
	if _, err := ValidateGraph(Topology{}, "start", "end"); err == nil {
		t.Error("Expected error for missing start node")
	}
}
