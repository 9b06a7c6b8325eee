package classifier

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/viterin/vek"
)

// Context scopes of the two halves of the network.
const (
	backboneScope = "backbone"
	headScope     = "classifier"
)

// ModelConfig holds the classification head settings.
type ModelConfig struct {
	NumLabels int     `json:"num_labels"`
	Dropout   float64 `json:"dropout"`
	Seed      uint64  `json:"seed"`
}

// Model is a backbone followed by dropout and a linear projection of the first
// ([CLS]) hidden state to one logit per label. Its variables live in a gomlx
// context, so training, inference and checkpoints share the same weights.
type Model struct {
	backend  backends.Backend
	ctx      *context.Context
	backbone Backbone
	cfg      ModelConfig

	mu   sync.Mutex
	exec *context.Exec
}

// NewModel creates the context, seeds weight initialization and loads pretrained
// backbone weights. Head variables are created on first use.
func NewModel(backend backends.Backend, backbone Backbone, cfg ModelConfig) (*Model, error) {
	if cfg.NumLabels < 1 {
		return nil, errors.New("model needs at least one label")
	}
	if cfg.Dropout < 0 || cfg.Dropout >= 1 {
		return nil, fmt.Errorf("dropout %g out of [0, 1)", cfg.Dropout)
	}
	ctx := context.New()
	ctx.SetParam(context.ParamInitialSeed, int64(cfg.Seed))
	if err := backbone.Init(ctx.In(backboneScope)); err != nil {
		return nil, err
	}
	return &Model{
		backend:  backend,
		ctx:      ctx.Checked(false),
		backbone: backbone,
		cfg:      cfg,
	}, nil
}

func (m *Model) Config() ModelConfig {
	return m.cfg
}

// logits builds the forward graph: [batch, seq] ids and mask to [batch, num_labels].
func (m *Model) logits(ctx *context.Context, ids, mask *Node) *Node {
	hidden := m.backbone.HiddenStates(ctx.In(backboneScope), ids, mask)
	batch := hidden.Shape().Dimensions[0]
	width := hidden.Shape().Dimensions[2]
	pooled := Reshape(Slice(hidden, AxisRange(), AxisRange(0, 1)), batch, width)

	ctx = ctx.In(headScope)
	if m.cfg.Dropout > 0 {
		pooled = layers.Dropout(ctx.In("dropout"), pooled, ConstAs(pooled, m.cfg.Dropout))
	}
	return layers.Dense(ctx.In("dense"), pooled, true, m.cfg.NumLabels)
}

// modelFn adapts logits to the trainer's model function signature.
func (m *Model) modelFn(ctx *context.Context, _ any, inputs []*Node) []*Node {
	return []*Node{m.logits(ctx, inputs[0], inputs[1])}
}

// Predict returns the argmax label and the softmax distribution for one encoding.
func (m *Model) Predict(enc Encoding) (int, []float64, error) {
	probs, err := m.PredictBatch([]Encoding{enc})
	if err != nil {
		return 0, nil, err
	}
	return vek.ArgMax(probs[0]), probs[0], nil
}

// PredictBatch returns one softmax distribution per encoding, in inference mode.
func (m *Model) PredictBatch(encs []Encoding) ([][]float64, error) {
	if len(encs) == 0 {
		return nil, nil
	}
	ids, mask := batchTensors(encs)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.exec == nil {
		exec, err := context.NewExec(m.backend, m.ctx, func(ctx *context.Context, inputs []*Node) []*Node {
			ctx.SetTraining(inputs[0].Graph(), false)
			return []*Node{Softmax(m.logits(ctx, inputs[0], inputs[1]))}
		})
		if err != nil {
			return nil, fmt.Errorf("build inference graph: %w", err)
		}
		m.exec = exec
	}
	outputs, err := m.exec.Exec(ids, mask)
	if err != nil {
		return nil, fmt.Errorf("run inference: %w", err)
	}

	flat := tensors.MustCopyFlatData[float32](outputs[0])
	probs := make([][]float64, len(encs))
	for i := range probs {
		row := make([]float64, m.cfg.NumLabels)
		for k := range row {
			row[k] = float64(flat[i*m.cfg.NumLabels+k])
		}
		probs[i] = row
	}
	return probs, nil
}

// batchTensors packs encodings of equal length into int32 [batch, seq] tensors.
func batchTensors(encs []Encoding) (ids, mask *tensors.Tensor) {
	seqLen := len(encs[0].InputIDs)
	flatIDs := make([]int32, len(encs)*seqLen)
	flatMask := make([]int32, len(encs)*seqLen)
	for i, enc := range encs {
		for j := range seqLen {
			flatIDs[i*seqLen+j] = int32(enc.InputIDs[j])
			flatMask[i*seqLen+j] = int32(enc.AttentionMask[j])
		}
	}
	return tensors.FromFlatDataAndDimensions(flatIDs, len(encs), seqLen),
		tensors.FromFlatDataAndDimensions(flatMask, len(encs), seqLen)
}
