package prompts

// scenarioTemplate asks for a single image-generation prompt derived from the
// recent conversation.
const scenarioTemplate = `You are a creative assistant that produces vivid image-generation prompts.
Given the recent conversation below, craft a single detailed visual prompt
(style, lighting, subject, mood) that the AI companion would want to share
as an image. Be descriptive and specific – avoid abstract concepts.`

// ScenarioPrompt returns the system prompt for the image scenario step.
func ScenarioPrompt() string {
	return scenarioTemplate
}

// ImageReference is the synthetic history entry recording that an image was
// generated, so later turns can refer back to it.
func ImageReference(imagePrompt string) string {
	return "<image generated from prompt: " + imagePrompt + ">"
}
