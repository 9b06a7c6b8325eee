package translate

import (
	"context"
	"strings"
)

// PivotLanguage is the language the classifier is trained in.
const PivotLanguage = "en"

// Translator is the contract every machine translation backend fulfils.
type Translator interface {
	// Translate translates text from sourceLang to targetLang (ISO 639-1 codes).
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)

	// CheckHealth verifies that the backend is reachable.
	CheckHealth(ctx context.Context) error

	// SupportedLanguages lists the language codes the backend accepts.
	SupportedLanguages(ctx context.Context) ([]string, error)
}

// LanguageMapper converts caller language tags to backend codes.
type LanguageMapper struct{}

func NewLanguageMapper() *LanguageMapper {
	return &LanguageMapper{}
}

// ToBackendCode lowercases tag and drops any region or script subtag:
//   - "EN" -> "en"
//   - "zh-cn" -> "zh"
//   - "pt_BR" -> "pt"
func (lm *LanguageMapper) ToBackendCode(tag string) string {
	lang := strings.ToLower(strings.TrimSpace(tag))
	if idx := strings.IndexAny(lang, "-_"); idx >= 0 {
		lang = lang[:idx]
	}
	return lang
}

// SameLanguage reports whether two tags resolve to the same backend code.
func (lm *LanguageMapper) SameLanguage(a, b string) bool {
	return lm.ToBackendCode(a) == lm.ToBackendCode(b)
}
