package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"
)

const (
	manifestVersion = 2
	manifestFile    = "manifest.json"
)

// Manifest describes a checkpoint directory: everything besides the weights that
// inference needs to rebuild the model and check it against the corpus.
type Manifest struct {
	Version      int            `json:"version"`
	CreatedAt    string         `json:"created_at"`
	Backbone     BackboneConfig `json:"backbone"`
	Model        ModelConfig    `json:"model"`
	MaxLen       int            `json:"max_len"`
	Vocab        []int          `json:"vocab,omitempty"`
	Labels       []string       `json:"labels"`
	CorpusDigest string         `json:"corpus_digest"`
}

// SaveCheckpoint writes the model variables with gomlx checkpoints plus the
// manifest into a sibling temp directory and renames it onto dir, so readers
// never observe a partial checkpoint.
func SaveCheckpoint(dir string, model *Model, manifest Manifest) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create checkpoint parent dir: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, filepath.Base(dir)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create checkpoint temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	handler, err := checkpoints.Build(model.ctx).Dir(tmp).Keep(1).Done()
	if err != nil {
		return fmt.Errorf("configure checkpoint: %w", err)
	}
	if err := handler.Save(); err != nil {
		return fmt.Errorf("save variables: %w", err)
	}

	manifest.Version = manifestVersion
	manifest.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	b, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, manifestFile), b, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove previous checkpoint: %w", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		return fmt.Errorf("move checkpoint into place: %w", err)
	}
	return nil
}

// LoadManifest reads the manifest of a checkpoint directory. A missing checkpoint
// yields an error matching fs.ErrNotExist.
func LoadManifest(dir string) (Manifest, error) {
	b, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return Manifest{}, fmt.Errorf("read checkpoint manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode checkpoint manifest: %w", err)
	}
	if m.Version != manifestVersion {
		return Manifest{}, fmt.Errorf("unsupported checkpoint version %d", m.Version)
	}
	if len(m.Labels) != m.Model.NumLabels {
		return Manifest{}, fmt.Errorf("checkpoint has %d labels for %d outputs", len(m.Labels), m.Model.NumLabels)
	}
	return m, nil
}

// loadVariables overwrites the model variables with the ones saved in dir.
func loadVariables(dir string, model *Model) error {
	if _, err := checkpoints.Load(model.ctx).Dir(dir).Immediate().Done(); err != nil {
		return fmt.Errorf("load checkpoint variables: %w", err)
	}
	return nil
}
