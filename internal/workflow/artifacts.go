package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/companion/pkg/domain"
	"github.com/google/uuid"
)

// ArtifactStore persists generated media under one directory per kind.
// File names follow "<kind>_<uuid><ext>" so concurrent turns never collide.
type ArtifactStore struct {
	dirs map[domain.ArtifactKind]string
}

// NewArtifactStore creates a store writing images to imageDir and audio to audioDir.
func NewArtifactStore(imageDir, audioDir string) *ArtifactStore {
	return &ArtifactStore{dirs: map[domain.ArtifactKind]string{
		domain.ArtifactImage: imageDir,
		domain.ArtifactAudio: audioDir,
	}}
}

// Save writes data atomically and returns the final path.
func (s *ArtifactStore) Save(kind domain.ArtifactKind, ext string, data []byte) (string, error) {
	dir, ok := s.dirs[kind]
	if !ok {
		return "", fmt.Errorf("unknown artifact kind %q", kind)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s%s", kind, uuid.NewString(), ext))

	tmp, err := os.CreateTemp(dir, ".tmp-"+string(kind)+"-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename artifact: %w", err)
	}
	return path, nil
}

// Remove deletes a saved artifact. Missing files are not an error.
func (s *ArtifactStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
