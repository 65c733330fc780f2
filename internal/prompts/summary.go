package prompts

import "fmt"

const createSummaryTemplate = "Create a summary of the conversation above. " +
	"The summary must be a short description capturing all relevant information shared:"

const extendSummaryTemplate = "This is the summary of the conversation so far: %s\n\n" +
	"Extend the summary by taking into account the new messages above:"

// SummaryPrompt returns the instruction appended after the full history when
// the context window overflows. An empty summary asks for a new one.
func SummaryPrompt(summary string) string {
	if summary == "" {
		return createSummaryTemplate
	}
	return fmt.Sprintf(extendSummaryTemplate, summary)
}
