package classifier

import (
	"testing"

	"github.com/gomlx/gomlx/backends"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	_ "github.com/gomlx/gomlx/backends/simplego"
)

const testMaxLen = 32

var nopLogger = zap.NewNop()

func testBackend(t *testing.T) backends.Backend {
	t.Helper()
	backend, err := backends.New()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Finalize() })
	return backend
}

func scratchConfig() BackboneConfig {
	return BackboneConfig{
		Kind:       BackboneScratch,
		Encoding:   DefaultEncoding,
		MaxLen:     testMaxLen,
		HiddenSize: 16,
		NumLayers:  1,
		NumHeads:   2,
	}
}

// testModel builds a scratch model whose vocabulary is fitted on texts.
func testModel(t *testing.T, backend backends.Backend, texts []string, cfg ModelConfig) (*Model, *TextEncoder) {
	t.Helper()
	bc := scratchConfig()
	backbone, vocab, err := openBackbone(&bc, texts, nil, nopLogger)
	require.NoError(t, err)
	enc, err := NewTextEncoder(vocab, testMaxLen)
	require.NoError(t, err)
	model, err := NewModel(backend, backbone, cfg)
	require.NoError(t, err)
	return model, enc
}

func TestPredictIsADistribution(t *testing.T) {
	texts := []string{"i feel anxious", "hello there"}
	model, enc := testModel(t, testBackend(t), texts, ModelConfig{NumLabels: 3, Seed: 7})

	id, probs, err := model.Predict(enc.Encode("i feel anxious"))
	require.NoError(t, err)
	require.Len(t, probs, 3)
	total := 0.0
	for k, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, probs[k], probs[id])
		total += p
	}
	assert.InDelta(t, 1.0, total, 1e-5)
}

func TestSameSeedSameWeights(t *testing.T) {
	backend := testBackend(t)
	texts := []string{"i can't sleep", "hello there", "i feel sad"}
	cfg := ModelConfig{NumLabels: 4, Dropout: 0.1, Seed: 42}

	first, enc := testModel(t, backend, texts, cfg)
	second, _ := testModel(t, backend, texts, cfg)

	encs := []Encoding{enc.Encode("i can't sleep"), enc.Encode("something new")}
	want, err := first.PredictBatch(encs)
	require.NoError(t, err)
	got, err := second.PredictBatch(encs)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestInferenceSkipsDropout(t *testing.T) {
	model, enc := testModel(t, testBackend(t), []string{"hello"}, ModelConfig{NumLabels: 2, Dropout: 0.5, Seed: 3})

	x := enc.Encode("hello")
	_, first, err := model.Predict(x)
	require.NoError(t, err)
	_, second, err := model.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPredictBatchMatchesSingle(t *testing.T) {
	model, enc := testModel(t, testBackend(t), []string{"hello", "bye now"}, ModelConfig{NumLabels: 2, Seed: 5})

	batch, err := model.PredictBatch([]Encoding{enc.Encode("hello"), enc.Encode("bye now")})
	require.NoError(t, err)
	_, single, err := model.Predict(enc.Encode("bye now"))
	require.NoError(t, err)
	assert.InDeltaSlice(t, single, batch[1], 1e-5)

	none, err := model.PredictBatch(nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNewModelRejectsBadConfig(t *testing.T) {
	backend := testBackend(t)
	bc := scratchConfig()
	backbone, _, err := openBackbone(&bc, []string{"hello"}, nil, nopLogger)
	require.NoError(t, err)

	_, err = NewModel(backend, backbone, ModelConfig{NumLabels: 0})
	assert.Error(t, err)
	_, err = NewModel(backend, backbone, ModelConfig{NumLabels: 2, Dropout: 1})
	assert.Error(t, err)
}

func TestOpenBackboneValidatesScratchConfig(t *testing.T) {
	bc := scratchConfig()
	bc.NumHeads = 3
	_, _, err := openBackbone(&bc, []string{"hello"}, nil, nopLogger)
	assert.Error(t, err)

	bc = scratchConfig()
	_, _, err = openBackbone(&bc, nil, nil, nopLogger)
	assert.Error(t, err, "empty vocabulary")

	bc = scratchConfig()
	bc.Kind = "lstm"
	_, _, err = openBackbone(&bc, []string{"hello"}, nil, nopLogger)
	assert.Error(t, err)
}
