package ports

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/companion/pkg/domain"
)

// Image is a generated image payload.
type Image struct {
	Data []byte
	// Ext is the file extension including the dot (".png", ".webp").
	Ext string
}

// ImageGenerator renders an image for a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (Image, error)
}

// SpeechSynthesizer converts text to audio bytes.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// MaxSpeechChars bounds the text accepted by speech synthesis.
const MaxSpeechChars = 5000

// ValidateSpeechText rejects blank or oversized synthesis input. Synthesizers
// call it before any network I/O.
func ValidateSpeechText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: speech text cannot be empty", domain.ErrValidation)
	}
	if n := utf8.RuneCountInString(text); n > MaxSpeechChars {
		return fmt.Errorf("%w: speech text has %d characters, limit is %d", domain.ErrValidation, n, MaxSpeechChars)
	}
	return nil
}
