package api

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/abelzeko/dengue-watch/internal/usecases"
)

const hotspotCount = 5

// Sender is the part of the Telegram client used to deliver messages
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramBot handles interactions with the Telegram API
type TelegramBot struct {
	bot      *tgbotapi.BotAPI
	sender   Sender
	risk     *usecases.RiskUseCase
	guidance *usecases.GuidanceUseCase
	alerts   *usecases.AlertsUseCase
	limiter  *rate.Limiter
	logger   *zap.SugaredLogger
}

// BotDeps groups the use cases the bot answers from
type BotDeps struct {
	Risk     *usecases.RiskUseCase
	Guidance *usecases.GuidanceUseCase
	Alerts   *usecases.AlertsUseCase
}

// NewTelegramBot creates a new Telegram bot handler. Broadcasts send at
// most ratePerSecond messages per second
func NewTelegramBot(botToken string, deps BotDeps, ratePerSecond float64, logger *zap.SugaredLogger) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %v", err)
	}

	t := newTelegramBot(bot, deps, ratePerSecond, logger)
	t.bot = bot
	return t, nil
}

func newTelegramBot(sender Sender, deps BotDeps, ratePerSecond float64, logger *zap.SugaredLogger) *TelegramBot {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	return &TelegramBot{
		sender:   sender,
		risk:     deps.Risk,
		guidance: deps.Guidance,
		alerts:   deps.Alerts,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		logger:   logger,
	}
}

// UserName returns the bot's Telegram handle
func (t *TelegramBot) UserName() string {
	if t.bot == nil {
		return ""
	}
	return t.bot.Self.UserName
}

// Start listens for and handles Telegram messages until ctx is cancelled
func (t *TelegramBot) Start(ctx context.Context) error {
	t.logger.Infof("Authorized on Telegram account %s", t.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	t.logger.Info("Bot is now listening for messages...")

	t.listen(ctx, updates)
	t.bot.StopReceivingUpdates()
	t.logger.Info("Bot stopped listening for messages")
	return nil
}

// listen handles updates until ctx is cancelled or the channel is closed
func (t *TelegramBot) listen(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			t.logger.Debugf("Received message from %s (chat %d): %s",
				userName(update.Message),
				update.Message.Chat.ID,
				update.Message.Text)
			t.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage answers a single message
func (t *TelegramBot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	msg := tgbotapi.NewMessage(message.Chat.ID, t.reply(ctx, message))

	if _, err := t.sender.Send(msg); err != nil {
		t.logger.Warnf("Error sending message to chat %d: %v", message.Chat.ID, err)
	}
}

func userName(message *tgbotapi.Message) string {
	if message.From == nil {
		return ""
	}
	return message.From.UserName
}

// reply computes the answer to a message
func (t *TelegramBot) reply(ctx context.Context, message *tgbotapi.Message) string {
	if !message.IsCommand() {
		return "I don't understand. Use /help to see available commands."
	}

	chatID := message.Chat.ID
	switch message.Command() {
	case "start":
		if err := t.alerts.Subscribe(ctx, chatID, userName(message)); err != nil {
			t.logger.Errorf("Error handling /start: %v", err)
			return "Sorry, I couldn't subscribe you right now. Please try again later."
		}
		return "Welcome to Dengue Watch! You are now subscribed to community alerts for high dengue risk in Lahore.\n\n" +
			"Use /risk to see current hotspots or /help for more information."

	case "stop":
		removed, err := t.alerts.Unsubscribe(ctx, chatID)
		if err != nil {
			t.logger.Errorf("Error handling /stop: %v", err)
			return "Sorry, I couldn't unsubscribe you right now. Please try again later."
		}
		if !removed {
			return "You are not subscribed. Use /start to receive alerts."
		}
		return "You have been unsubscribed from community alerts. Use /start to subscribe again."

	case "risk":
		points, updated, err := t.risk.Hotspots(ctx, hotspotCount)
		if err != nil {
			t.logger.Warnf("Error handling /risk: %v", err)
			return "Error fetching risk data. Please try again later."
		}
		return usecases.FormatHotspots(points, updated)

	case "tips":
		return t.guidance.FormatTips()

	case "myths":
		return t.guidance.FormatMyths()

	case "symptoms":
		return t.symptomsReply(message.CommandArguments())

	case "help":
		return "Available commands:\n" +
			"/start - Subscribe to community alerts\n" +
			"/stop - Unsubscribe from alerts\n" +
			"/risk - Show the top dengue risk hotspots\n" +
			"/tips - Show preventive measures\n" +
			"/myths - Dengue myths and facts\n" +
			"/symptoms [list] - Check symptoms, e.g. /symptoms fever, muscle pain\n" +
			"/help - Show this help message"

	default:
		t.logger.Debugf("Received unknown command /%s from chat %d", message.Command(), chatID)
		return "Unknown command. Use /help to see available commands."
	}
}

func (t *TelegramBot) symptomsReply(args string) string {
	known, unknown := t.guidance.ParseSymptoms(args)
	if len(known) == 0 {
		return "Please list your symptoms separated by commas. Known symptoms: " +
			strings.Join(t.guidance.Symptoms(), ", ")
	}

	var result strings.Builder
	result.WriteString("🩺 Symptoms: " + strings.Join(known, ", ") + "\n\n")
	for _, line := range usecases.SymptomAdvice(known) {
		result.WriteString("• " + line + "\n")
	}
	if len(unknown) > 0 {
		result.WriteString("\nNot recognised: " + strings.Join(unknown, ", "))
	}
	return strings.TrimRight(result.String(), "\n")
}

// Broadcast sends text to every subscriber, waiting on the rate limiter
// between messages. Failed deliveries are logged and skipped. It returns the
// number of messages delivered
func (t *TelegramBot) Broadcast(ctx context.Context, text string) (int, error) {
	subs, err := t.alerts.Subscribers(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, sub := range subs {
		if err := t.limiter.Wait(ctx); err != nil {
			return sent, fmt.Errorf("broadcast interrupted: %w", err)
		}
		if _, err := t.sender.Send(tgbotapi.NewMessage(sub.ChatID, text)); err != nil {
			t.logger.Warnf("Error sending alert to chat %d: %v", sub.ChatID, err)
			continue
		}
		sent++
	}
	return sent, nil
}

var _ usecases.Notifier = (*TelegramBot)(nil)
