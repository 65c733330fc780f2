package domain

import (
	"fmt"
	"strings"
)

// Workflow is the routing decision selecting the response branch for a turn.
type Workflow string

const (
	WorkflowUnset        Workflow = ""
	WorkflowConversation Workflow = "conversation"
	WorkflowImage        Workflow = "image"
	WorkflowAudio        Workflow = "audio"
)

// Workflows lists every valid routing label.
var Workflows = []Workflow{WorkflowConversation, WorkflowImage, WorkflowAudio}

// ParseWorkflow maps a classifier label to a Workflow.
// Matching ignores surrounding whitespace, quotes and case; anything outside the
// three labels is an error.
func ParseWorkflow(label string) (Workflow, error) {
	normalized := strings.ToLower(strings.Trim(strings.TrimSpace(label), `"'`))
	for _, w := range Workflows {
		if normalized == string(w) {
			return w, nil
		}
	}
	return WorkflowUnset, fmt.Errorf("unknown workflow label %q", label)
}

func (w Workflow) String() string {
	if w == WorkflowUnset {
		return "unset"
	}
	return string(w)
}
