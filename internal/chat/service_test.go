package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/mind-bot/internal/classifier"
	"github.com/xaenox/mind-bot/internal/corpus"
	"github.com/xaenox/mind-bot/internal/models"
	"github.com/xaenox/mind-bot/internal/responder"
	"github.com/xaenox/mind-bot/internal/storage"
)

const testCorpus = `{"intents": [
	{"tag": "anxious", "patterns": ["I feel anxious"], "responses": ["Take a deep breath."]},
	{"tag": "greeting", "patterns": ["Hello"], "responses": ["Hi there."]}
]}`

type call struct{ text, source, target string }

// fakeTranslator upper-cases the text and remembers every call.
type fakeTranslator struct {
	calls []call
	err   error
}

func (f *fakeTranslator) Translate(_ context.Context, text, source, target string) (string, error) {
	f.calls = append(f.calls, call{text, source, target})
	if f.err != nil {
		return "", f.err
	}
	if source == target {
		return text, nil
	}
	return strings.ToUpper(text), nil
}

func (f *fakeTranslator) CheckHealth(context.Context) error { return f.err }

func (f *fakeTranslator) SupportedLanguages(context.Context) ([]string, error) {
	return []string{"en", "es"}, nil
}

type fakeClassifier struct {
	got  string
	pred classifier.Prediction
	err  error
}

func (f *fakeClassifier) Classify(_ context.Context, text string) (classifier.Prediction, error) {
	f.got = text
	return f.pred, f.err
}

type failingStore struct{ storage.Storage }

func (failingStore) SaveExchange(context.Context, *models.Exchange) error {
	return errors.New("disk full")
}

func newTestService(t *testing.T, tr *fakeTranslator, clf *fakeClassifier, store storage.Storage) *Service {
	t.Helper()
	table, err := corpus.Parse(strings.NewReader(testCorpus))
	require.NoError(t, err)
	sel := responder.NewSelectorWithSource(table, func(int) int { return 0 })
	return NewService(tr, clf, sel, store, nil)
}

func TestRespondPipeline(t *testing.T) {
	tr := &fakeTranslator{}
	clf := &fakeClassifier{pred: classifier.Prediction{Tag: "anxious", Confidence: 0.9}}
	store := storage.NewMemoryStorage()
	svc := newTestService(t, tr, clf, store)

	reply, err := svc.Respond(context.Background(), Request{
		Text:         "me siento ansioso!!",
		LanguageCode: "es",
		Channel:      models.HTTPChannel,
	})
	require.NoError(t, err)

	assert.Equal(t, "TAKE A DEEP BREATH.", reply.Response)
	assert.Equal(t, "anxious", reply.Tag)
	assert.Equal(t, 0.9, reply.Confidence)

	// the classifier sees normalized pivot-language text
	assert.Equal(t, "me siento ansioso", clf.got)
	assert.Equal(t, []call{
		{"me siento ansioso!!", "es", "en"},
		{"Take a deep breath.", "en", "es"},
	}, tr.calls)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, map[string]int64{"anxious": 1}, stats.Tags)
}

func TestRespondUnknownTagFallsBack(t *testing.T) {
	tr := &fakeTranslator{}
	clf := &fakeClassifier{pred: classifier.Prediction{Tag: "not-in-corpus"}}
	svc := newTestService(t, tr, clf, nil)

	reply, err := svc.Respond(context.Background(), Request{Text: "hmm", LanguageCode: "en"})
	require.NoError(t, err)
	assert.Equal(t, responder.FallbackResponse, reply.Response)
}

func TestRespondTranslationError(t *testing.T) {
	boom := errors.New("translation unavailable")
	svc := newTestService(t, &fakeTranslator{err: boom}, &fakeClassifier{}, nil)

	_, err := svc.Respond(context.Background(), Request{Text: "hola", LanguageCode: "es"})
	assert.ErrorIs(t, err, boom)
}

func TestRespondClassifierError(t *testing.T) {
	boom := errors.New("model broken")
	svc := newTestService(t, &fakeTranslator{}, &fakeClassifier{err: boom}, nil)

	_, err := svc.Respond(context.Background(), Request{Text: "hello", LanguageCode: "en"})
	assert.ErrorIs(t, err, boom)
}

func TestRespondIgnoresStoreFailure(t *testing.T) {
	clf := &fakeClassifier{pred: classifier.Prediction{Tag: "greeting"}}
	svc := newTestService(t, &fakeTranslator{}, clf, failingStore{})

	reply, err := svc.Respond(context.Background(), Request{Text: "hello", LanguageCode: "en"})
	require.NoError(t, err)
	assert.Equal(t, "Hi there.", reply.Response)
}

func TestStatsWithoutStore(t *testing.T) {
	svc := newTestService(t, &fakeTranslator{}, &fakeClassifier{}, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Empty(t, stats.Tags)
}
