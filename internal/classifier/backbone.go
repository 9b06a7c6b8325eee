package classifier

import (
	"fmt"
	"slices"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/attention"
	"github.com/gomlx/onnx-gomlx/onnx"
	"github.com/gomlx/onnx-gomlx/onnx/parser"
	"go.uber.org/zap"
)

// Backbone kinds.
const (
	BackbonePretrained = "pretrained"
	BackboneScratch    = "scratch"
)

// BackboneConfig selects and sizes the encoder under the classification head.
// The pretrained kind downloads an ONNX transformer and fine-tunes it; the scratch
// kind builds a small transformer with random weights and needs no network.
type BackboneConfig struct {
	Kind      string `json:"kind"`
	Repo      string `json:"repo,omitempty"`
	ONNXFile  string `json:"onnx_file,omitempty"`
	AuthToken string `json:"-"`

	Encoding   string `json:"encoding,omitempty"`
	MaxLen     int    `json:"max_len,omitempty"`
	VocabSize  int    `json:"vocab_size,omitempty"`
	HiddenSize int    `json:"hidden_size,omitempty"`
	NumLayers  int    `json:"num_layers,omitempty"`
	NumHeads   int    `json:"num_heads,omitempty"`
}

// Backbone produces per-token hidden states for a batch of encodings.
type Backbone interface {
	Name() string
	// Init loads any pretrained weights into ctx.
	Init(ctx *context.Context) error
	// HiddenStates maps ids and mask, both [batch, seq], to [batch, seq, hidden].
	HiddenStates(ctx *context.Context, ids, mask *Node) *Node
}

// openBackbone builds the backbone and the vocabulary that feeds it. patterns are
// only used by the scratch kind, whose vocabulary is fitted on the corpus; vocabIDs
// restores a previously fitted one instead.
func openBackbone(cfg *BackboneConfig, patterns []string, vocabIDs []int, logger *zap.Logger) (Backbone, Vocabulary, error) {
	switch cfg.Kind {
	case BackbonePretrained:
		if cfg.Repo == "" {
			cfg.Repo = DefaultRepo
		}
		if cfg.ONNXFile == "" {
			cfg.ONNXFile = DefaultONNXFile
		}
		repo, path, err := downloadModel(*cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		vocab, err := newHubVocabulary(repo, logger)
		if err != nil {
			return nil, nil, err
		}
		model, err := parser.ParseFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load onnx model: %w", err)
		}
		return newPretrainedBackbone(cfg.Repo, model), vocab, nil

	case BackboneScratch:
		var (
			vocab *BPEVocabulary
			err   error
		)
		if vocabIDs != nil {
			vocab, err = RestoreBPEVocabulary(cfg.Encoding, vocabIDs)
		} else {
			vocab, err = NewBPEVocabulary(cfg.Encoding, patterns)
		}
		if err != nil {
			return nil, nil, err
		}
		cfg.Encoding = vocab.EncodingName()
		if vocabIDs != nil && cfg.VocabSize != vocab.Size() {
			return nil, nil, fmt.Errorf("checkpoint vocabulary has %d entries, model expects %d", vocab.Size(), cfg.VocabSize)
		}
		cfg.VocabSize = vocab.Size()
		b, err := newScratchBackbone(*cfg)
		if err != nil {
			return nil, nil, err
		}
		return b, vocab, nil

	default:
		return nil, nil, fmt.Errorf("unknown backbone kind %q", cfg.Kind)
	}
}

type pretrainedBackbone struct {
	name          string
	model         onnx.Model
	hasTokenTypes bool
}

func newPretrainedBackbone(name string, model onnx.Model) *pretrainedBackbone {
	inputs, _ := model.Inputs()
	return &pretrainedBackbone{
		name:          name,
		model:         model,
		hasTokenTypes: slices.Contains(inputs, "token_type_ids"),
	}
}

func (b *pretrainedBackbone) Name() string {
	return b.name
}

func (b *pretrainedBackbone) Init(ctx *context.Context) error {
	if err := b.model.VariablesToContext(ctx); err != nil {
		return fmt.Errorf("load %s weights: %w", b.name, err)
	}
	return nil
}

func (b *pretrainedBackbone) HiddenStates(ctx *context.Context, ids, mask *Node) *Node {
	ids = ConvertDType(ids, dtypes.Int64)
	inputs := map[string]*Node{
		"input_ids":      ids,
		"attention_mask": ConvertDType(mask, dtypes.Int64),
	}
	if b.hasTokenTypes {
		inputs["token_type_ids"] = ZerosLike(ids)
	}
	return b.model.CallGraph(ctx, ids.Graph(), inputs)[0]
}

// scratchBackbone is a post-norm transformer encoder with learned positions.
type scratchBackbone struct {
	cfg BackboneConfig
}

func newScratchBackbone(cfg BackboneConfig) (*scratchBackbone, error) {
	if cfg.HiddenSize < 1 || cfg.NumLayers < 1 || cfg.NumHeads < 1 || cfg.MaxLen < 1 {
		return nil, fmt.Errorf("invalid scratch backbone: hidden_size=%d num_layers=%d num_heads=%d max_len=%d",
			cfg.HiddenSize, cfg.NumLayers, cfg.NumHeads, cfg.MaxLen)
	}
	if cfg.HiddenSize%cfg.NumHeads != 0 {
		return nil, fmt.Errorf("hidden size %d is not divisible by %d heads", cfg.HiddenSize, cfg.NumHeads)
	}
	if cfg.VocabSize <= numSpecial {
		return nil, fmt.Errorf("vocabulary of %d entries is empty", cfg.VocabSize)
	}
	return &scratchBackbone{cfg: cfg}, nil
}

func (b *scratchBackbone) Name() string {
	return BackboneScratch
}

func (b *scratchBackbone) Init(*context.Context) error {
	return nil
}

func (b *scratchBackbone) HiddenStates(ctx *context.Context, ids, mask *Node) *Node {
	g := ids.Graph()
	hidden := b.cfg.HiddenSize
	seqLen := ids.Shape().Dimensions[1]

	x := layers.Embedding(ctx.In("token_embed"), ids, dtypes.Float32, b.cfg.VocabSize, hidden)
	pos := ctx.In("pos_embed").VariableWithShape("embeddings",
		shapes.Make(dtypes.Float32, b.cfg.MaxLen, hidden)).ValueGraph(g)
	pos = ExpandDims(Slice(pos, AxisRange(0, seqLen)), 0)
	x = Add(x, BroadcastToShape(pos, x.Shape()))

	keyMask := NotEqual(mask, ZerosLike(mask))
	for i := range b.cfg.NumLayers {
		layerCtx := ctx.Inf("layer_%d", i)
		attn := attention.MultiHeadAttention(layerCtx.In("attn"), x, x, x, b.cfg.NumHeads, hidden/b.cfg.NumHeads).
			WithKeyMask(keyMask).
			WithOutputDim(hidden).
			Done()
		x = layers.LayerNormalization(layerCtx.In("norm1"), Add(x, attn), -1).Done()
		ff := layers.Dense(layerCtx.In("ff1"), x, true, hidden*4)
		ff = Tanh(ff)
		ff = layers.Dense(layerCtx.In("ff2"), ff, true, hidden)
		x = layers.LayerNormalization(layerCtx.In("norm2"), Add(x, ff), -1).Done()
	}
	return x
}
