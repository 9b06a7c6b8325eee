package classifier

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"github.com/gomlx/gomlx/backends"
	"go.uber.org/zap"

	"github.com/xaenox/mind-bot/internal/corpus"
)

// ErrLabelDrift means the checkpoint was trained on a different set of intents than
// the corpus currently on disk.
var ErrLabelDrift = errors.New("checkpoint labels do not match corpus")

// Options configures Bootstrap.
type Options struct {
	CheckpointDir string
	MaxLen        int
	Dropout       float64
	Backbone      BackboneConfig
	Train         TrainConfig
}

// Bootstrap loads the classifier from the checkpoint when it exists and otherwise
// fine-tunes one on table and persists it.
func Bootstrap(ctx context.Context, backend backends.Backend, table *corpus.Table, opts Options, logger *zap.Logger) (*IntentClassifier, error) {
	labels := FitLabels(table.Tags())

	manifest, err := LoadManifest(opts.CheckpointDir)
	switch {
	case err == nil:
		return fromCheckpoint(backend, manifest, table, labels, opts, logger)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	logger.Info("No checkpoint found, training a new model",
		zap.String("path", opts.CheckpointDir),
		zap.String("backbone", opts.Backbone.Kind))

	patterns := make([]string, 0, table.Len())
	for _, rec := range table.Records() {
		patterns = append(patterns, rec.Pattern)
	}
	cfg := opts.Backbone
	cfg.MaxLen = opts.MaxLen
	backbone, vocab, err := openBackbone(&cfg, patterns, nil, logger)
	if err != nil {
		return nil, err
	}
	encoder, err := NewTextEncoder(vocab, opts.MaxLen)
	if err != nil {
		return nil, err
	}

	examples := make([]Example, 0, table.Len())
	for _, rec := range table.Records() {
		label, err := labels.Encode(rec.Tag)
		if err != nil {
			return nil, err
		}
		examples = append(examples, Example{Encoding: encoder.Encode(rec.Pattern), Label: label})
	}

	modelCfg := ModelConfig{NumLabels: labels.Len(), Dropout: opts.Dropout, Seed: opts.Train.Seed}
	model, err := NewModel(backend, backbone, modelCfg)
	if err != nil {
		return nil, err
	}
	if _, err := NewTrainer(opts.Train, logger).Train(ctx, model, examples); err != nil {
		return nil, fmt.Errorf("train model: %w", err)
	}

	manifest = Manifest{
		Backbone:     cfg,
		Model:        modelCfg,
		MaxLen:       opts.MaxLen,
		Labels:       labels.Classes(),
		CorpusDigest: table.Digest(),
	}
	if bpe, ok := vocab.(*BPEVocabulary); ok {
		manifest.Vocab = bpe.IDs()
	}
	if err := SaveCheckpoint(opts.CheckpointDir, model, manifest); err != nil {
		return nil, err
	}
	logger.Info("Model trained and saved",
		zap.String("path", opts.CheckpointDir),
		zap.String("backbone", backbone.Name()),
		zap.Int("labels", labels.Len()))

	return NewIntentClassifier(encoder, labels, model), nil
}

func fromCheckpoint(backend backends.Backend, m Manifest, table *corpus.Table, labels *LabelEncoder, opts Options, logger *zap.Logger) (*IntentClassifier, error) {
	if !slices.Equal(m.Labels, labels.Classes()) {
		return nil, fmt.Errorf("%w: checkpoint has %d labels, corpus has %d", ErrLabelDrift, len(m.Labels), labels.Len())
	}
	if m.Backbone.Kind != opts.Backbone.Kind {
		return nil, fmt.Errorf("checkpoint was trained with the %s backbone, config asks for %s", m.Backbone.Kind, opts.Backbone.Kind)
	}
	if m.CorpusDigest != table.Digest() {
		logger.Warn("Corpus changed since the checkpoint was trained; labels still match",
			zap.String("checkpoint_digest", m.CorpusDigest),
			zap.String("corpus_digest", table.Digest()))
	}

	cfg := m.Backbone
	cfg.AuthToken = opts.Backbone.AuthToken
	backbone, vocab, err := openBackbone(&cfg, nil, m.Vocab, logger)
	if err != nil {
		return nil, err
	}
	encoder, err := NewTextEncoder(vocab, m.MaxLen)
	if err != nil {
		return nil, err
	}
	model, err := NewModel(backend, backbone, m.Model)
	if err != nil {
		return nil, err
	}
	if err := loadVariables(opts.CheckpointDir, model); err != nil {
		return nil, err
	}

	logger.Info("Trained model loaded successfully",
		zap.String("created_at", m.CreatedAt),
		zap.String("backbone", backbone.Name()),
		zap.Int("labels", labels.Len()))
	return NewIntentClassifier(encoder, labels, model), nil
}
