package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/mind-bot/internal/chat"
	"github.com/xaenox/mind-bot/internal/models"
	"github.com/xaenox/mind-bot/internal/translate"
	"go.uber.org/zap"
)

const (
	defaultLanguage = translate.PivotLanguage
	replyTimeout    = 60 * time.Second
)

// Responder answers one message through the chat pipeline.
type Responder interface {
	Respond(ctx context.Context, req chat.Request) (*chat.Reply, error)
}

// sender is the part of the Telegram API the handlers write through.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api    *tgbotapi.BotAPI
	out    sender
	chat   Responder
	logger *zap.Logger
}

func New(token string, responder Responder, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))

	return &Bot{
		api:    api,
		out:    api,
		chat:   responder,
		logger: logger,
	}, nil
}

// Start long-polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		b.handleCommand(message)
		return
	}

	content := message.Text
	if content == "" {
		content = message.Caption
	}
	if strings.TrimSpace(content) == "" {
		b.sendMessage(message.Chat.ID, "Please send me a text message.")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	var userID int64
	if message.From != nil {
		userID = message.From.ID
	}
	lang := languageFor(message.From)

	reply, err := b.chat.Respond(ctx, chat.Request{
		Text:         content,
		LanguageCode: lang,
		Channel:      models.TelegramChannel,
		UserID:       userID,
	})
	if err != nil {
		b.logger.Error("Failed to answer message",
			zap.Error(err),
			zap.Int64("user_id", userID),
			zap.String("language_code", lang))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't process your message right now. Please try again later.")
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, reply.Response)
	msg.ReplyToMessageID = message.MessageID
	if _, err := b.out.Send(msg); err != nil {
		b.logger.Error("Failed to send reply",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

func (b *Bot) handleCommand(message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.sendMessage(message.Chat.ID, welcomeText)
	case "help":
		b.sendMessage(message.Chat.ID, helpText)
	case "languages":
		msg := tgbotapi.NewMessage(message.Chat.ID, formatLanguages(translate.Supported()))
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		if _, err := b.out.Send(msg); err != nil {
			b.logger.Error("Failed to send languages",
				zap.Error(err),
				zap.Int64("chat_id", message.Chat.ID))
		}
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

const welcomeText = `Welcome! 🌱
I'm here to listen. Tell me how you are feeling, in your own language, and I'll do my best to support you.

Use /help to see all available commands.`

const helpText = `Available commands:
/start - Start the bot
/help - Show this help message
/languages - Show the languages I understand

Just write to me about how you feel. I answer in the language your Telegram app is set to.`

// languageFor picks the reply language from the sender's Telegram settings.
func languageFor(user *tgbotapi.User) string {
	if user == nil {
		return defaultLanguage
	}
	if lang := strings.TrimSpace(user.LanguageCode); lang != "" {
		return strings.ToLower(lang)
	}
	return defaultLanguage
}

func formatLanguages(languages []translate.Language) string {
	var sb strings.Builder
	sb.WriteString("*Supported languages:*\n")
	for _, l := range languages {
		sb.WriteString(escapeMarkdown(fmt.Sprintf("%s (%s)", l.Name, l.Code)))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(escapeMarkdown(translate.LanguagesMessage))
	return sb.String()
}

// escapeMarkdown escapes the characters MarkdownV2 reserves
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.out.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.out.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
