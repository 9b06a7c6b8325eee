package translate

import "context"

// Language is a code/name pair advertised to clients.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// LanguagesMessage points clients to the full list of codes.
const LanguagesMessage = "For a complete list, visit: https://cloud.google.com/translate/docs/languages"

var supported = []Language{
	{Code: "en", Name: "English"},
	{Code: "hi", Name: "Hindi"},
	{Code: "es", Name: "Spanish"},
	{Code: "fr", Name: "French"},
	{Code: "de", Name: "German"},
	{Code: "zh-cn", Name: "Chinese Simplified"},
	{Code: "ar", Name: "Arabic"},
	{Code: "ta", Name: "Tamil"},
	{Code: "te", Name: "Telugu"},
	{Code: "ru", Name: "Russian"},
	{Code: "ja", Name: "Japanese"},
	{Code: "ko", Name: "Korean"},
}

// Supported returns a copy of the advertised languages.
func Supported() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	return out
}

// LanguageName returns the English name of code, or code itself when unknown.
func LanguageName(code string) string {
	for _, l := range supported {
		if l.Code == code {
			return l.Name
		}
	}
	return code
}

// Unserved returns the advertised language codes the backend does not list.
func Unserved(ctx context.Context, t Translator) ([]string, error) {
	codes, err := t.SupportedLanguages(ctx)
	if err != nil {
		return nil, err
	}
	served := make(map[string]bool, len(codes))
	for _, c := range codes {
		served[c] = true
	}
	mapper := NewLanguageMapper()
	var missing []string
	for _, l := range supported {
		if !served[mapper.ToBackendCode(l.Code)] {
			missing = append(missing, l.Code)
		}
	}
	return missing, nil
}
