package translate

import "context"

// Passthrough returns every text unchanged. It lets the service run without a
// translation backend when all callers already write in the pivot language.
type Passthrough struct{}

func (Passthrough) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}

func (Passthrough) CheckHealth(context.Context) error {
	return nil
}

func (Passthrough) SupportedLanguages(context.Context) ([]string, error) {
	return []string{PivotLanguage}, nil
}
