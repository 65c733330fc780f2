package domain

// ArtifactKind tags the payload produced by a response branch.
type ArtifactKind string

const (
	ArtifactImage ArtifactKind = "image"
	ArtifactAudio ArtifactKind = "audio"
)

// Artifact is a generated image or audio payload attached to a turn's output.
// Image artifacts carry only the path; audio artifacts carry the bytes as well.
type Artifact struct {
	Kind ArtifactKind `json:"kind"`
	Path string       `json:"path"`
	Data []byte       `json:"data,omitempty"`
}

// NewImageArtifact describes an image written to path.
func NewImageArtifact(path string) *Artifact {
	return &Artifact{Kind: ArtifactImage, Path: path}
}

// NewAudioArtifact describes synthesized audio written to path.
func NewAudioArtifact(data []byte, path string) *Artifact {
	return &Artifact{Kind: ArtifactAudio, Path: path, Data: data}
}

func (a *Artifact) clone() *Artifact {
	if a == nil {
		return nil
	}
	out := *a
	if a.Data != nil {
		out.Data = append([]byte(nil), a.Data...)
	}
	return &out
}
