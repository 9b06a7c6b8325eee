package classifier

import (
	"fmt"
)

// MaxSeqLen is the fixed sequence length of every encoded example.
const MaxSeqLen = 128

// SpecialTokens are the ids the pair layout and padding are built from.
type SpecialTokens struct {
	Pad int
	Cls int
	Sep int
}

// Vocabulary splits text into backbone token ids, without special tokens.
type Vocabulary interface {
	Tokenize(text string) []int
	Specials() SpecialTokens
}

// Encoding is the fixed-length model input for one text.
type Encoding struct {
	InputIDs      []int
	AttentionMask []int
}

// TextEncoder turns normalized text into model inputs.
type TextEncoder struct {
	vocab  Vocabulary
	maxLen int
}

func NewTextEncoder(vocab Vocabulary, maxLen int) (*TextEncoder, error) {
	if maxLen < 3 {
		return nil, fmt.Errorf("max sequence length %d is too short", maxLen)
	}
	return &TextEncoder{vocab: vocab, maxLen: maxLen}, nil
}

// Encode produces [CLS] text [SEP] text [SEP], truncated longest-first and padded
// to the fixed length.
func (e *TextEncoder) Encode(text string) Encoding {
	sp := e.vocab.Specials()
	a := e.vocab.Tokenize(text)
	b := append([]int(nil), a...)

	for budget := e.maxLen - 3; len(a)+len(b) > budget; {
		if len(a) > len(b) {
			a = a[:len(a)-1]
		} else {
			b = b[:len(b)-1]
		}
	}

	ids := make([]int, e.maxLen)
	mask := make([]int, e.maxLen)
	seq := make([]int, 0, len(a)+len(b)+3)
	seq = append(seq, sp.Cls)
	seq = append(seq, a...)
	seq = append(seq, sp.Sep)
	seq = append(seq, b...)
	seq = append(seq, sp.Sep)
	for i := range ids {
		if i < len(seq) {
			ids[i] = seq[i]
			mask[i] = 1
		} else {
			ids[i] = sp.Pad
		}
	}
	return Encoding{InputIDs: ids, AttentionMask: mask}
}

func (e *TextEncoder) MaxLen() int {
	return e.maxLen
}
