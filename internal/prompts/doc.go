// Package prompts contains the LLM instructions used by the turn pipeline.
//
// Convention: each prompt category gets its own file with an unexported
// template and an exported function that accepts the dynamic parts and returns
// the fully interpolated prompt string.
package prompts
