package classifier

import (
	"fmt"

	"github.com/gomlx/go-huggingface/hub"
	"github.com/gomlx/go-huggingface/tokenizers"
	"github.com/gomlx/go-huggingface/tokenizers/api"
	"go.uber.org/zap"
)

// Default pretrained backbone: DistilBERT base uncased, exported to ONNX.
const (
	DefaultRepo     = "Xenova/distilbert-base-uncased"
	DefaultONNXFile = "onnx/model.onnx"
)

// HubVocabulary is the tokenizer published alongside a HuggingFace model.
type HubVocabulary struct {
	tok      tokenizers.Tokenizer
	specials SpecialTokens
}

func newHubVocabulary(repo *hub.Repo, logger *zap.Logger) (*HubVocabulary, error) {
	tok, err := tokenizers.New(repo)
	if err != nil {
		return nil, fmt.Errorf("create tokenizer: %w", err)
	}
	// BERT-family defaults when the tokenizer config does not name them.
	sp := SpecialTokens{Pad: 0, Cls: 101, Sep: 102}
	if id, err := tok.SpecialTokenID(api.TokClassification); err == nil {
		sp.Cls = id
	} else {
		logger.Warn("Tokenizer has no [CLS] token, using default", zap.Int("id", sp.Cls))
	}
	if id, err := tok.SpecialTokenID(api.TokEndOfSentence); err == nil {
		sp.Sep = id
	} else {
		logger.Warn("Tokenizer has no [SEP] token, using default", zap.Int("id", sp.Sep))
	}
	if id, err := tok.SpecialTokenID(api.TokPad); err == nil {
		sp.Pad = id
	}
	return &HubVocabulary{tok: tok, specials: sp}, nil
}

func (v *HubVocabulary) Tokenize(text string) []int {
	return v.tok.Encode(text)
}

func (v *HubVocabulary) Specials() SpecialTokens {
	return v.specials
}

// downloadModel fetches the repository metadata and the ONNX export, returning the
// repo handle (for the tokenizer files) and the local ONNX path.
func downloadModel(cfg BackboneConfig, logger *zap.Logger) (*hub.Repo, string, error) {
	repo := hub.New(cfg.Repo).WithAuth(cfg.AuthToken)
	if err := repo.DownloadInfo(false); err != nil {
		return nil, "", fmt.Errorf("fetch %s info: %w", cfg.Repo, err)
	}
	path, err := repo.DownloadFile(cfg.ONNXFile)
	if err != nil {
		return nil, "", fmt.Errorf("download %s/%s: %w", cfg.Repo, cfg.ONNXFile, err)
	}
	logger.Info("Pretrained backbone available",
		zap.String("repo", cfg.Repo),
		zap.String("path", path))
	return repo, path, nil
}
