package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/pkg/ml/train/losses"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/viterin/vek"
	"go.uber.org/zap"
)

// TrainConfig holds the fine-tuning hyperparameters.
type TrainConfig struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	WeightDecay  float64
	TrainSplit   float64
	Seed         uint64
}

// DefaultTrainConfig mirrors the values the service ships with.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Epochs:       10,
		BatchSize:    16,
		LearningRate: 2e-5,
		WeightDecay:  0.01,
		TrainSplit:   0.9,
		Seed:         42,
	}
}

// Validate reports the first out-of-range hyperparameter.
func (c TrainConfig) Validate() error {
	switch {
	case c.Epochs < 1:
		return fmt.Errorf("invalid training config: epochs=%d", c.Epochs)
	case c.BatchSize < 1:
		return fmt.Errorf("invalid training config: batch_size=%d", c.BatchSize)
	case !(c.TrainSplit > 0 && c.TrainSplit <= 1):
		return fmt.Errorf("invalid training config: train_split=%g, want 0 < split <= 1", c.TrainSplit)
	case !(c.LearningRate > 0):
		return fmt.Errorf("invalid training config: learning_rate=%g", c.LearningRate)
	case c.WeightDecay < 0:
		return fmt.Errorf("invalid training config: weight_decay=%g", c.WeightDecay)
	}
	return nil
}

// Example is one labeled, encoded pattern.
type Example struct {
	Encoding
	Label int
}

// EpochStats summarizes one pass over the training set. Validation fields are
// zero when the split leaves no validation examples.
type EpochStats struct {
	Epoch       int
	TrainLoss   float64
	ValLoss     float64
	ValAccuracy float64
}

type Trainer struct {
	cfg    TrainConfig
	rng    *rand.Rand
	logger *zap.Logger
}

func NewTrainer(cfg TrainConfig, logger *zap.Logger) *Trainer {
	return &Trainer{
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5deece66d)),
		logger: logger,
	}
}

// Split partitions examples randomly (not stratified) into training and
// validation sets. The training set always keeps at least one example.
func (t *Trainer) Split(examples []Example) (train, val []Example, err error) {
	if err := t.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	n := len(examples)
	trainSize := int(t.cfg.TrainSplit * float64(n))
	if trainSize < 1 {
		trainSize = n
	}
	perm := t.rng.Perm(n)
	train = make([]Example, 0, trainSize)
	val = make([]Example, 0, n-trainSize)
	for i, idx := range perm {
		if i < trainSize {
			train = append(train, examples[idx])
		} else {
			val = append(val, examples[idx])
		}
	}
	return train, val, nil
}

// Train fine-tunes every trainable variable of model, backbone included, with
// softmax cross-entropy and Adam with decoupled weight decay.
func (t *Trainer) Train(ctx context.Context, model *Model, examples []Example) ([]EpochStats, error) {
	if len(examples) == 0 {
		return nil, errors.New("no training examples")
	}
	for _, ex := range examples {
		if ex.Label < 0 || ex.Label >= model.cfg.NumLabels {
			return nil, fmt.Errorf("%w: %d", ErrLabelOutOfRange, ex.Label)
		}
	}
	trainSet, val, err := t.Split(examples)
	if err != nil {
		return nil, err
	}

	t.logger.Info("Starting training",
		zap.String("backbone", model.backbone.Name()),
		zap.Int("train_examples", len(trainSet)),
		zap.Int("validation_examples", len(val)),
		zap.Int("epochs", t.cfg.Epochs),
		zap.Int("batch_size", t.cfg.BatchSize),
		zap.Float64("learning_rate", t.cfg.LearningRate))

	opt := optimizers.Adam().
		LearningRate(t.cfg.LearningRate).
		WeightDecay(t.cfg.WeightDecay).
		Done()
	trainer := train.NewTrainer(model.backend, model.ctx, model.modelFn,
		losses.SparseCategoricalCrossEntropyLogits,
		opt,
		nil, nil)

	history := make([]EpochStats, 0, t.cfg.Epochs)
	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		start := time.Now()
		t.rng.Shuffle(len(trainSet), func(i, j int) { trainSet[i], trainSet[j] = trainSet[j], trainSet[i] })

		total, batches := 0.0, 0
		for lo := 0; lo < len(trainSet); lo += t.cfg.BatchSize {
			if err := ctx.Err(); err != nil {
				return history, fmt.Errorf("training interrupted: %w", err)
			}
			batch := trainSet[lo:min(lo+t.cfg.BatchSize, len(trainSet))]
			ids, mask, labels := exampleTensors(batch)
			metrics, err := trainer.TrainStep(nil, []*tensors.Tensor{ids, mask}, []*tensors.Tensor{labels})
			if err != nil {
				return history, fmt.Errorf("train step at epoch %d: %w", epoch, err)
			}
			loss := float64(metrics[0].Value().(float32))
			if math.IsNaN(loss) || math.IsInf(loss, 0) {
				return history, fmt.Errorf("training diverged at epoch %d", epoch)
			}
			total += loss
			batches++
		}

		stats := EpochStats{Epoch: epoch, TrainLoss: total / float64(batches)}
		stats.ValLoss, stats.ValAccuracy, err = Evaluate(model, val, t.cfg.BatchSize)
		if err != nil {
			return history, err
		}
		history = append(history, stats)

		t.logger.Info("Epoch completed",
			zap.Int("epoch", epoch),
			zap.Float64("avg_train_loss", stats.TrainLoss),
			zap.Float64("val_loss", stats.ValLoss),
			zap.Float64("val_accuracy", stats.ValAccuracy),
			zap.Duration("duration", time.Since(start)))
	}

	return history, nil
}

// Evaluate returns the mean cross-entropy and accuracy of model on examples, in
// inference mode. Both are zero for an empty set.
func Evaluate(model *Model, examples []Example, batchSize int) (loss, accuracy float64, err error) {
	if len(examples) == 0 {
		return 0, 0, nil
	}
	if batchSize < 1 {
		batchSize = len(examples)
	}
	correct := 0
	for lo := 0; lo < len(examples); lo += batchSize {
		batch := examples[lo:min(lo+batchSize, len(examples))]
		encs := make([]Encoding, len(batch))
		for i, ex := range batch {
			encs[i] = ex.Encoding
		}
		probs, err := model.PredictBatch(encs)
		if err != nil {
			return 0, 0, fmt.Errorf("evaluate: %w", err)
		}
		for i, ex := range batch {
			loss -= math.Log(math.Max(probs[i][ex.Label], 1e-12))
			if vek.ArgMax(probs[i]) == ex.Label {
				correct++
			}
		}
	}
	n := float64(len(examples))
	return loss / n, float64(correct) / n, nil
}

func exampleTensors(batch []Example) (ids, mask, labels *tensors.Tensor) {
	encs := make([]Encoding, len(batch))
	flatLabels := make([]int32, len(batch))
	for i, ex := range batch {
		encs[i] = ex.Encoding
		flatLabels[i] = int32(ex.Label)
	}
	ids, mask = batchTensors(encs)
	return ids, mask, tensors.FromFlatDataAndDimensions(flatLabels, len(batch), 1)
}
