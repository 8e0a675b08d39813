package quiz

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactWriter renders a quiz to a text file at a fixed path. Each write
// replaces the previous artifact, mirroring how the quiz is regenerated per
// request.
type ArtifactWriter struct {
	path string
}

// NewArtifactWriter creates a writer targeting path.
func NewArtifactWriter(path string) (*ArtifactWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("artifact path is required")
	}
	return &ArtifactWriter{path: path}, nil
}

// Path returns the artifact location.
func (w *ArtifactWriter) Path() string {
	return w.path
}

// Render produces the artifact contents.
func Render(quiz Quiz) []byte {
	var sb strings.Builder
	sb.WriteString("Generated Quiz\n")
	sb.WriteString("==============\n\n")
	sb.WriteString(strings.TrimSpace(quiz.Questions))
	sb.WriteString("\n")
	if quiz.AnswerKey != "" {
		sb.WriteString("\nAnswer Key\n")
		sb.WriteString("----------\n")
		sb.WriteString(strings.TrimSpace(quiz.AnswerKey))
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

// Write renders the quiz and stores it, creating parent directories as
// needed. It returns the artifact bytes for attachment elsewhere.
func (w *ArtifactWriter) Write(quiz Quiz) ([]byte, error) {
	content := Render(quiz)

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create artifact directory: %w", err)
		}
	}
	if err := os.WriteFile(w.path, content, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write artifact: %w", err)
	}
	return content, nil
}
