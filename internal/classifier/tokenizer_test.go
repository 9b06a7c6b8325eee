package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

func bpeEncoder(t *testing.T, texts ...string) (*TextEncoder, *BPEVocabulary) {
	t.Helper()
	vocab, err := NewBPEVocabulary(DefaultEncoding, texts)
	require.NoError(t, err)
	enc, err := NewTextEncoder(vocab, MaxSeqLen)
	require.NoError(t, err)
	return enc, vocab
}

func TestEncodeShortTextIsPadded(t *testing.T) {
	enc, vocab := bpeEncoder(t, "i feel anxious")

	got := enc.Encode("i feel anxious")
	require.Len(t, got.InputIDs, MaxSeqLen)
	require.Len(t, got.AttentionMask, MaxSeqLen)

	n := len(vocab.bpe.EncodeOrdinary("i feel anxious"))
	require.Positive(t, n)
	assert.Equal(t, 2*n+3, sum(got.AttentionMask))
	assert.Equal(t, ClsID, got.InputIDs[0])
	assert.Equal(t, SepID, got.InputIDs[n+1])
	assert.Equal(t, SepID, got.InputIDs[2*n+2])
	assert.Equal(t, PadID, got.InputIDs[MaxSeqLen-1])
	assert.Zero(t, got.AttentionMask[MaxSeqLen-1])
	assert.NotContains(t, got.InputIDs[:2*n+3], UnkID)
}

func TestEncodeLongTextIsTruncated(t *testing.T) {
	long := strings.Repeat("i feel anxious and tired ", 200)
	enc, _ := bpeEncoder(t, long)

	got := enc.Encode(long)
	require.Len(t, got.InputIDs, MaxSeqLen)
	require.Len(t, got.AttentionMask, MaxSeqLen)
	assert.Equal(t, MaxSeqLen, sum(got.AttentionMask))
	assert.Equal(t, ClsID, got.InputIDs[0])
	assert.Equal(t, SepID, got.InputIDs[64])
	assert.Equal(t, SepID, got.InputIDs[MaxSeqLen-1])
}

func TestEncodeEmptyText(t *testing.T) {
	enc, _ := bpeEncoder(t, "hello")

	got := enc.Encode("")
	require.Len(t, got.InputIDs, MaxSeqLen)
	assert.Equal(t, []int{ClsID, SepID, SepID, PadID}, got.InputIDs[:4])
	assert.Equal(t, 3, sum(got.AttentionMask))
}

func TestEncodeUnknownTokens(t *testing.T) {
	enc, _ := bpeEncoder(t, "hello")

	got := enc.Encode("xylophone zebra")
	assert.Contains(t, got.InputIDs, UnkID)
}

func TestEncodeIsDeterministic(t *testing.T) {
	texts := []string{"i can't sleep", "hello there", "i feel sad"}
	enc, vocab := bpeEncoder(t, texts...)

	restoredVocab, err := RestoreBPEVocabulary(vocab.EncodingName(), vocab.IDs())
	require.NoError(t, err)
	assert.Equal(t, vocab.Size(), restoredVocab.Size())
	restored, err := NewTextEncoder(restoredVocab, enc.MaxLen())
	require.NoError(t, err)

	for _, text := range append(texts, "something new") {
		assert.Equal(t, enc.Encode(text), enc.Encode(text))
		assert.Equal(t, enc.Encode(text), restored.Encode(text))
	}
}

type wordVocab struct {
	words map[string]int
}

func (v wordVocab) Tokenize(text string) []int {
	var ids []int
	for _, w := range strings.Fields(text) {
		ids = append(ids, v.words[w])
	}
	return ids
}

func (wordVocab) Specials() SpecialTokens {
	return SpecialTokens{Pad: 9, Cls: 101, Sep: 102}
}

func TestEncodeUsesVocabularySpecials(t *testing.T) {
	enc, err := NewTextEncoder(wordVocab{words: map[string]int{"hi": 5, "there": 6}}, 10)
	require.NoError(t, err)

	got := enc.Encode("hi there")
	assert.Equal(t, []int{101, 5, 6, 102, 5, 6, 102, 9, 9, 9}, got.InputIDs)
	assert.Equal(t, []int{1, 1, 1, 1, 1, 1, 1, 0, 0, 0}, got.AttentionMask)
}

func TestEncoderRejectsTinyLength(t *testing.T) {
	_, err := NewTextEncoder(wordVocab{}, 2)
	assert.Error(t, err)
}
