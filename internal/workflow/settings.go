package workflow

import (
	"errors"
	"fmt"
	"time"
)

// Node identifiers of the turn graph.
const (
	NodeMemoryExtract = "memory_extract"
	NodeRouter        = "router"
	NodeMemoryInject  = "memory_inject"
	NodeConversation  = "conversation"
	NodeImage         = "image"
	NodeAudio         = "audio"
	NodeSummarize     = "summarize"
)

// Settings tunes the pipeline. Zero values are replaced by DefaultSettings
// through Normalize.
type Settings struct {
	// RouterMessages is how many trailing messages the router sees.
	RouterMessages int `mapstructure:"router_messages"`
	// ScenarioMessages is how many trailing messages feed the image scenario.
	ScenarioMessages int `mapstructure:"scenario_messages"`
	// MemoryContextMessages is how many trailing messages form the memory query.
	MemoryContextMessages int `mapstructure:"memory_context_messages"`
	// MemoryTopK caps the facts injected per turn.
	MemoryTopK int `mapstructure:"memory_top_k"`
	// SummaryTrigger starts summarization once the history is longer than this.
	SummaryTrigger int `mapstructure:"summary_trigger"`
	// KeepAfterSummary is how many recent messages survive summarization.
	KeepAfterSummary int `mapstructure:"keep_after_summary"`

	RouterTemperature   float64 `mapstructure:"router_temperature"`
	ScenarioTemperature float64 `mapstructure:"scenario_temperature"`

	// TolerateMemoryWriteErrors downgrades memory write failures to a warning.
	TolerateMemoryWriteErrors bool `mapstructure:"tolerate_memory_write_errors"`

	ImageDir string `mapstructure:"image_dir"`
	AudioDir string `mapstructure:"audio_dir"`

	Timeouts Timeouts `mapstructure:"timeouts"`
}

// Timeouts bound each collaborator call of a stage.
type Timeouts struct {
	Completion time.Duration `mapstructure:"completion"`
	Memory     time.Duration `mapstructure:"memory"`
	Image      time.Duration `mapstructure:"image"`
	Speech     time.Duration `mapstructure:"speech"`
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		RouterMessages:        3,
		ScenarioMessages:      5,
		MemoryContextMessages: 3,
		MemoryTopK:            3,
		SummaryTrigger:        20,
		KeepAfterSummary:      5,
		RouterTemperature:     0.3,
		ScenarioTemperature:   0.7,
		ImageDir:              "generated/image",
		AudioDir:              "generated/audio",
		Timeouts: Timeouts{
			Completion: 60 * time.Second,
			Memory:     30 * time.Second,
			Image:      90 * time.Second,
			Speech:     60 * time.Second,
		},
	}
}

// Normalize fills zero fields from DefaultSettings.
func (s Settings) Normalize() Settings {
	d := DefaultSettings()
	setInt := func(v *int, def int) {
		if *v == 0 {
			*v = def
		}
	}
	setInt(&s.RouterMessages, d.RouterMessages)
	setInt(&s.ScenarioMessages, d.ScenarioMessages)
	setInt(&s.MemoryContextMessages, d.MemoryContextMessages)
	setInt(&s.MemoryTopK, d.MemoryTopK)
	setInt(&s.SummaryTrigger, d.SummaryTrigger)
	setInt(&s.KeepAfterSummary, d.KeepAfterSummary)
	if s.ImageDir == "" {
		s.ImageDir = d.ImageDir
	}
	if s.AudioDir == "" {
		s.AudioDir = d.AudioDir
	}
	if s.Timeouts.Completion == 0 {
		s.Timeouts.Completion = d.Timeouts.Completion
	}
	if s.Timeouts.Memory == 0 {
		s.Timeouts.Memory = d.Timeouts.Memory
	}
	if s.Timeouts.Image == 0 {
		s.Timeouts.Image = d.Timeouts.Image
	}
	if s.Timeouts.Speech == 0 {
		s.Timeouts.Speech = d.Timeouts.Speech
	}
	return s
}

// Validate rejects inconsistent settings.
func (s Settings) Validate() error {
	var errs []error
	if s.KeepAfterSummary < 0 || s.SummaryTrigger < 0 {
		errs = append(errs, errors.New("summary_trigger and keep_after_summary must be positive"))
	}
	if s.KeepAfterSummary >= s.SummaryTrigger {
		errs = append(errs, fmt.Errorf("keep_after_summary (%d) must be smaller than summary_trigger (%d)", s.KeepAfterSummary, s.SummaryTrigger))
	}
	if s.RouterTemperature < 0 || s.ScenarioTemperature < 0 {
		errs = append(errs, errors.New("temperatures cannot be negative"))
	}
	return errors.Join(errs...)
}
