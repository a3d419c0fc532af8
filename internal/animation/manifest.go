package animation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Manifest describes one completed render.
type Manifest struct {
	RunID     string    `json:"run_id"`
	Output    string    `json:"output"`
	Kind      Kind      `json:"kind"`
	Frames    []string  `json:"frames"`
	Palette   string    `json:"palette"`
	Domain    string    `json:"domain"`
	DomainMin float64   `json:"domain_min"`
	DomainMax float64   `json:"domain_max"`
	FPS       int       `json:"fps"`
	DPI       int       `json:"dpi"`
	Version   string    `json:"version,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Elapsed   float64   `json:"elapsed_seconds"`
}

// NewManifest starts a manifest for output with a fresh run id.
func NewManifest(output string) *Manifest {
	kind, _ := KindOf(output)
	return &Manifest{
		RunID:     uuid.NewString(),
		Output:    output,
		Kind:      kind,
		StartedAt: time.Now().UTC(),
	}
}

// ManifestPath returns where the manifest for output is written: next to a
// file output, or inside the directory of a frame sequence.
func ManifestPath(output string) string {
	if frameVerb.MatchString(output) {
		return filepath.Join(filepath.Dir(output), "manifest.json")
	}
	if trimmed := strings.TrimRight(output, `/\`); trimmed != output {
		return filepath.Join(trimmed, "manifest.json")
	}
	return output + ".manifest.json"
}

// Write stores the manifest as indented JSON at ManifestPath(m.Output).
func (m *Manifest) Write() error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return sinkError("cannot encode manifest", err)
	}
	if err := os.WriteFile(ManifestPath(m.Output), append(data, '\n'), 0o644); err != nil {
		return sinkError("cannot write manifest", err)
	}
	return nil
}

// ReadManifest loads a manifest written by Write.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
