package classifier

import (
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultEncoding is the BPE vocabulary used by the scratch backbone.
const DefaultEncoding = "cl100k_base"

// Local token ids of a BPEVocabulary. Corpus BPE ids are numbered after them.
const (
	PadID = iota
	UnkID
	ClsID
	SepID
	numSpecial
)

func init() {
	// Ship the BPE ranks with the binary instead of downloading them on first use.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// BPEVocabulary remaps tiktoken ids to a dense local vocabulary built from the
// training corpus, so the scratch embedding table only holds learnable rows.
type BPEVocabulary struct {
	encoding  string
	bpe       *tiktoken.Tiktoken
	toLocal   map[int]int
	fromLocal []int
}

// NewBPEVocabulary loads the named BPE encoding and fits the local vocabulary on texts.
func NewBPEVocabulary(encoding string, texts []string) (*BPEVocabulary, error) {
	v, err := newBPEVocabulary(encoding)
	if err != nil {
		return nil, err
	}
	for _, text := range texts {
		for _, id := range v.bpe.EncodeOrdinary(text) {
			if _, ok := v.toLocal[id]; !ok {
				v.add(id)
			}
		}
	}
	return v, nil
}

// RestoreBPEVocabulary rebuilds a vocabulary saved in a checkpoint manifest.
func RestoreBPEVocabulary(encoding string, ids []int) (*BPEVocabulary, error) {
	v, err := newBPEVocabulary(encoding)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		v.add(id)
	}
	return v, nil
}

func newBPEVocabulary(encoding string) (*BPEVocabulary, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	bpe, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load %s encoding: %w", encoding, err)
	}
	return &BPEVocabulary{encoding: encoding, bpe: bpe, toLocal: make(map[int]int)}, nil
}

func (v *BPEVocabulary) add(id int) {
	v.toLocal[id] = numSpecial + len(v.fromLocal)
	v.fromLocal = append(v.fromLocal, id)
}

func (v *BPEVocabulary) Tokenize(text string) []int {
	raw := v.bpe.EncodeOrdinary(text)
	out := make([]int, len(raw))
	for i, id := range raw {
		if local, ok := v.toLocal[id]; ok {
			out[i] = local
		} else {
			out[i] = UnkID
		}
	}
	return out
}

func (v *BPEVocabulary) Specials() SpecialTokens {
	return SpecialTokens{Pad: PadID, Cls: ClsID, Sep: SepID}
}

// Size includes the special tokens.
func (v *BPEVocabulary) Size() int {
	return numSpecial + len(v.fromLocal)
}

// IDs returns the BPE ids in local id order, without special tokens.
func (v *BPEVocabulary) IDs() []int {
	return v.fromLocal
}

func (v *BPEVocabulary) EncodingName() string {
	return v.encoding
}
