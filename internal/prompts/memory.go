package prompts

import (
	"fmt"
	"strings"
)

const memoryAnalysisTemplate = `Analyze the following message and determine if it contains important personal information worth remembering (e.g., name, preferences, goals, facts about the user's life).

Message: %s

If important, extract and format it as a concise memory statement.
If not important, mark it as not important.`

// MemoryAnalysisPrompt returns the prompt that decides whether message holds
// a fact worth keeping.
func MemoryAnalysisPrompt(message string) string {
	return fmt.Sprintf(memoryAnalysisTemplate, message)
}

// memoryHeader introduces injected memories inside reply prompts.
const memoryHeader = "## What you remember about the user"

// FormatMemories renders stored facts as a prompt block. No facts yields "".
func FormatMemories(facts []string) string {
	var sb strings.Builder
	for _, f := range facts {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if sb.Len() == 0 {
			sb.WriteString(memoryHeader)
		}
		sb.WriteString("\n- ")
		sb.WriteString(f)
	}
	return sb.String()
}
