package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// Error kinds. Every error that aborts a turn wraps exactly one of these.
var (
	ErrValidation      = errors.New("validation error")
	ErrClassification  = errors.New("classification error")
	ErrGeneration      = errors.New("generation error")
	ErrImageGeneration = errors.New("image generation error")
	ErrSpeechSynthesis = errors.New("speech synthesis error")
	ErrMemoryWrite     = errors.New("memory write error")
	ErrMemoryRead      = errors.New("memory read error")
)

// Sub-cases of the collaborator error kinds.
var (
	// ErrEmptyImage is returned when the image service yields no image or an empty one.
	ErrEmptyImage = fmt.Errorf("%w: empty result", ErrImageGeneration)

	// ErrNoAcceptableImage is returned when every candidate image was rejected (e.g. flagged unsafe).
	ErrNoAcceptableImage = fmt.Errorf("%w: no acceptable result", ErrImageGeneration)

	// ErrEmptyAudio is returned when speech synthesis produced no audio.
	ErrEmptyAudio = fmt.Errorf("%w: empty audio", ErrSpeechSynthesis)
)

// kinds is ordered so that KindOf reports the most specific label.
var kinds = []struct {
	err   error
	label string
}{
	{ErrValidation, "validation"},
	{ErrClassification, "classification"},
	{ErrImageGeneration, "image_generation"},
	{ErrSpeechSynthesis, "speech_synthesis"},
	{ErrMemoryWrite, "memory_write"},
	{ErrMemoryRead, "memory_read"},
	{ErrGeneration, "generation"},
}

// KindOf returns a stable label for the error kind wrapped by err.
// Errors outside the taxonomy report "internal".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.label
		}
	}
	return "internal"
}

// IsTimeout reports whether err was caused by a deadline or cancellation.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// Wrap tags cause with an error kind while keeping both in the chain.
// A cause that already carries a kind keeps it; only msg is added.
func Wrap(kind error, msg string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", kind, msg)
	}
	if KindOf(cause) != "internal" {
		return fmt.Errorf("%s: %w", msg, cause)
	}
	return fmt.Errorf("%w: %s: %w", kind, msg, cause)
}

// StageError records the graph node at which a turn failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %q failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
