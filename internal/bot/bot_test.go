package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/mind-bot/internal/chat"
	"github.com/xaenox/mind-bot/internal/classifier"
	"github.com/xaenox/mind-bot/internal/corpus"
	"github.com/xaenox/mind-bot/internal/models"
	"github.com/xaenox/mind-bot/internal/responder"
	"github.com/xaenox/mind-bot/internal/storage"
	"github.com/xaenox/mind-bot/internal/translate"
	"go.uber.org/zap"
)

func TestLanguageFor(t *testing.T) {
	assert.Equal(t, "en", languageFor(nil))
	assert.Equal(t, "en", languageFor(&tgbotapi.User{ID: 1}))
	assert.Equal(t, "es", languageFor(&tgbotapi.User{ID: 1, LanguageCode: "es"}))
	assert.Equal(t, "pt-br", languageFor(&tgbotapi.User{ID: 1, LanguageCode: "pt-BR"}))
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `Chinese Simplified \(zh\-cn\)`, escapeMarkdown("Chinese Simplified (zh-cn)"))
	assert.Equal(t, `a\\b\_c\.`, escapeMarkdown(`a\b_c.`))
}

func TestFormatLanguages(t *testing.T) {
	text := formatLanguages(translate.Supported())

	assert.Contains(t, text, "*Supported languages:*")
	assert.Contains(t, text, `English \(en\)`)
	assert.Contains(t, text, `Korean \(ko\)`)
	assert.Contains(t, text, `https://cloud\.google\.com/translate/docs/languages`)
}

type recordingSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (r *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		r.sent = append(r.sent, msg)
	}
	return tgbotapi.Message{}, r.err
}

type fakeResponder struct {
	got []chat.Request
	err error
}

func (f *fakeResponder) Respond(_ context.Context, req chat.Request) (*chat.Reply, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return nil, f.err
	}
	return &chat.Reply{Response: "reply to " + req.Text, Tag: "greeting"}, nil
}

func newTestBot(responder Responder) (*Bot, *recordingSender) {
	out := &recordingSender{}
	return &Bot{out: out, chat: responder, logger: zap.NewNop()}, out
}

func textMessage(text, lang string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 7,
		Text:      text,
		Chat:      &tgbotapi.Chat{ID: 42},
		From:      &tgbotapi.User{ID: 99, LanguageCode: lang},
	}
}

func TestHandleMessageUsesSenderLanguage(t *testing.T) {
	responder := &fakeResponder{}
	b, out := newTestBot(responder)

	b.handleMessage(context.Background(), textMessage("Hola", "ES"))

	require.Len(t, responder.got, 1)
	assert.Equal(t, chat.Request{
		Text:         "Hola",
		LanguageCode: "es",
		Channel:      models.TelegramChannel,
		UserID:       99,
	}, responder.got[0])

	require.Len(t, out.sent, 1)
	assert.Equal(t, int64(42), out.sent[0].ChatID)
	assert.Equal(t, 7, out.sent[0].ReplyToMessageID)
	assert.Equal(t, "reply to Hola", out.sent[0].Text)
}

func TestHandleMessageFallsBackToPivotLanguage(t *testing.T) {
	responder := &fakeResponder{}
	b, _ := newTestBot(responder)

	msg := textMessage("Hello", "")
	msg.From = nil
	b.handleMessage(context.Background(), msg)

	require.Len(t, responder.got, 1)
	assert.Equal(t, translate.PivotLanguage, responder.got[0].LanguageCode)
	assert.Zero(t, responder.got[0].UserID)
}

func TestHandleMessageRepliesWithErrorText(t *testing.T) {
	b, out := newTestBot(&fakeResponder{err: errors.New("translation unavailable")})

	b.handleMessage(context.Background(), textMessage("Hola", "es"))

	require.Len(t, out.sent, 1)
	assert.True(t, strings.HasPrefix(out.sent[0].Text, "⚠️ "))
	assert.Contains(t, out.sent[0].Text, "couldn't process your message")
	assert.Zero(t, out.sent[0].ReplyToMessageID)
}

func TestHandleMessageRejectsEmptyText(t *testing.T) {
	responder := &fakeResponder{}
	b, out := newTestBot(responder)

	b.handleMessage(context.Background(), textMessage("   ", "en"))

	assert.Empty(t, responder.got)
	require.Len(t, out.sent, 1)
	assert.Equal(t, "Please send me a text message.", out.sent[0].Text)
}

func TestHandleCommand(t *testing.T) {
	responder := &fakeResponder{}
	b, out := newTestBot(responder)

	for _, cmd := range []string{"/start", "/help", "/languages", "/nope"} {
		msg := textMessage(cmd, "en")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
		b.handleMessage(context.Background(), msg)
	}

	assert.Empty(t, responder.got)
	require.Len(t, out.sent, 4)
	assert.Equal(t, welcomeText, out.sent[0].Text)
	assert.Equal(t, helpText, out.sent[1].Text)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, out.sent[2].ParseMode)
	assert.Contains(t, out.sent[3].Text, "Unknown command")
}

type fixedClassifier struct{ tag string }

func (f fixedClassifier) Classify(context.Context, string) (classifier.Prediction, error) {
	return classifier.Prediction{Tag: f.tag, Confidence: 0.8}, nil
}

func TestTelegramExchangesShowInStats(t *testing.T) {
	table, err := corpus.Parse(strings.NewReader(`{"intents": [
		{"tag": "sad", "patterns": ["I feel sad"], "responses": ["I'm here for you."]}
	]}`))
	require.NoError(t, err)
	svc := chat.NewService(translate.Passthrough{}, fixedClassifier{tag: "sad"},
		responder.NewSelector(table), storage.NewMemoryStorage(), zap.NewNop())
	b, out := newTestBot(svc)

	b.handleMessage(context.Background(), textMessage("Estoy triste", "es"))
	b.handleMessage(context.Background(), textMessage("I feel sad", "en"))

	require.Len(t, out.sent, 2)
	assert.Equal(t, "I'm here for you.", out.sent[0].Text)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, map[string]int64{"sad": 2}, stats.Tags)
}
