package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/safechat/internal/apperror"
	"github.com/xaenox/safechat/internal/composer"
	"github.com/xaenox/safechat/internal/models"
	"github.com/xaenox/safechat/internal/router"
)

// Responder produces the reply for one chat message.
type Responder interface {
	Handle(ctx context.Context, msg models.ChatMessage) (router.Reply, error)
}

// API is the subset of tgbotapi.BotAPI the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api       API
	responder Responder
	logger    *zap.Logger
}

func New(token string, responder Responder, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return NewWithAPI(api, responder, logger), nil
}

func NewWithAPI(api API, responder Responder, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:       api,
		responder: responder,
		logger:    logger,
	}
}

// Start polls for updates until ctx is done or the update channel closes.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
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

	text := strings.TrimSpace(message.Text)
	if text == "" {
		b.sendMessage(message.Chat.ID, "Please send your question as a text message.")
		return
	}

	reply, err := b.responder.Handle(ctx, models.ChatMessage{Text: text})
	if err != nil {
		b.logger.Error("Failed to answer message",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, errorText(err))
		return
	}

	b.logger.Info("Answered message",
		zap.Int64("chat_id", message.Chat.ID),
		zap.Stringer("classification", reply.Classification))

	msg := tgbotapi.NewMessage(message.Chat.ID, reply.Text)
	msg.ReplyToMessageID = message.MessageID
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send answer",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

func errorText(err error) string {
	if apperror.IsConfigMissing(err) {
		return "The assistant is not fully configured yet. Please try again later."
	}
	return "Sorry, something went wrong while answering. Please try again."
}

func (b *Bot) handleCommand(message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "helplines":
		b.sendMessage(message.Chat.ID, strings.TrimSpace(composer.EmergencyContacts))
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome! I answer questions about women's safety: helplines, legal rights, travel and online safety.

Just send me your question. Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/helplines - Show emergency contact numbers

Any other message is treated as a safety question.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
