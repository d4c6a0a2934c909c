package api

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelzeko/dengue-watch/internal/content"
	"github.com/abelzeko/dengue-watch/internal/logging"
	"github.com/abelzeko/dengue-watch/internal/usecases"
)

type fakeSender struct {
	mu     sync.Mutex
	sent   []tgbotapi.MessageConfig
	failOn map[int64]bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	if f.failOn[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("chat not found")
	}
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{Text: msg.Text}, nil
}

func (f *fakeSender) last() tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func newTestBot(t *testing.T) (*TelegramBot, *fakeSender, *memoryStore, *stubRisk) {
	t.Helper()
	logger := logging.Nop()
	store := newMemoryStore()
	risk := &stubRisk{points: samplePoints()}
	sender := &fakeSender{failOn: map[int64]bool{}}

	bot := newTelegramBot(sender, BotDeps{
		Risk:     usecases.NewRiskUseCase(risk, logger),
		Guidance: usecases.NewGuidanceUseCase(content.Default()),
		Alerts:   usecases.NewAlertsUseCase(store, logger),
	}, 1000, logger)
	return bot, sender, store, risk
}

func command(chatID int64, text string) *tgbotapi.Message {
	name := strings.SplitN(text, " ", 2)[0]
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{UserName: "ayesha"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func TestBotStartAndStop(t *testing.T) {
	bot, sender, store, _ := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, command(42, "/start"))
	assert.Equal(t, int64(42), sender.last().ChatID)
	assert.Contains(t, sender.last().Text, "subscribed to community alerts")
	require.Len(t, store.subscribers, 1)
	assert.Equal(t, "ayesha", store.subscribers[42].UserName)

	bot.handleMessage(ctx, command(42, "/stop"))
	assert.Contains(t, sender.last().Text, "unsubscribed")
	assert.Empty(t, store.subscribers)

	bot.handleMessage(ctx, command(42, "/stop"))
	assert.Equal(t, "You are not subscribed. Use /start to receive alerts.", sender.last().Text)
}

func TestBotListenHandlesMessagesWithoutSender(t *testing.T) {
	bot, sender, store, _ := newTestBot(t)

	anonymous := command(7, "/start")
	anonymous.From = nil

	updates := make(chan tgbotapi.Update, 3)
	updates <- tgbotapi.Update{UpdateID: 1}
	updates <- tgbotapi.Update{UpdateID: 2, Message: anonymous}
	updates <- tgbotapi.Update{UpdateID: 3, Message: command(8, "/help")}
	close(updates)

	bot.listen(context.Background(), updates)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(7), sender.sent[0].ChatID)
	assert.Equal(t, int64(8), sender.sent[1].ChatID)
	require.Contains(t, store.subscribers, int64(7))
	assert.Empty(t, store.subscribers[7].UserName)
}

func TestBotRiskCommand(t *testing.T) {
	bot, _, _, risk := newTestBot(t)
	ctx := context.Background()

	reply := bot.reply(ctx, command(1, "/risk"))
	assert.True(t, strings.HasPrefix(reply, "Top dengue risk hotspots in Lahore:"))
	// highest overall risk first
	assert.Less(t, strings.Index(reply, "31.5200"), strings.Index(reply, "31.5500"))
	assert.Less(t, strings.Index(reply, "31.5500"), strings.Index(reply, "31.4800"))

	risk.err = errUpstream
	assert.Equal(t, "Error fetching risk data. Please try again later.", bot.reply(ctx, command(1, "/risk")))
}

func TestBotGuidanceCommands(t *testing.T) {
	bot, _, _, _ := newTestBot(t)
	ctx := context.Background()

	assert.Contains(t, bot.reply(ctx, command(1, "/tips")), "Eliminate stagnant water around your home.")
	assert.Contains(t, bot.reply(ctx, command(1, "/myths")), "Only female Aedes aegypti mosquitoes")
	assert.Contains(t, bot.reply(ctx, command(1, "/help")), "/symptoms [list]")

	reply := bot.reply(ctx, command(1, "/symptoms fever, Muscle Pain, hiccups"))
	assert.Contains(t, reply, "Symptoms: Fever, Muscle Pain")
	assert.Contains(t, reply, "• Stay hydrated and monitor your temperature.")
	assert.Contains(t, reply, "• If you are experiencing multiple symptoms, consider seeking medical advice.")
	assert.Contains(t, reply, "Not recognised: hiccups")

	assert.Contains(t, bot.reply(ctx, command(1, "/symptoms")), "Known symptoms: Fever, Headache")
}

func TestBotUnknownInput(t *testing.T) {
	bot, _, _, _ := newTestBot(t)
	ctx := context.Background()

	assert.Equal(t, "Unknown command. Use /help to see available commands.", bot.reply(ctx, command(1, "/river")))
	plain := &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 1}}
	assert.Equal(t, "I don't understand. Use /help to see available commands.", bot.reply(ctx, plain))
}

func TestBroadcast(t *testing.T) {
	bot, sender, store, _ := newTestBot(t)
	ctx := context.Background()
	for _, id := range []int64{10, 20, 30} {
		bot.handleMessage(ctx, command(id, "/start"))
	}
	sender.sent = nil
	sender.failOn[20] = true

	sent, err := bot.Broadcast(ctx, "🚨 Dengue alert")
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(10), sender.sent[0].ChatID)
	assert.Equal(t, int64(30), sender.sent[1].ChatID)

	store.listErr = errors.New("database locked")
	_, err = bot.Broadcast(ctx, "again")
	assert.Error(t, err)
}

func TestBroadcastStopsOnCancel(t *testing.T) {
	bot, _, _, _ := newTestBot(t)
	ctx := context.Background()
	bot.handleMessage(ctx, command(10, "/start"))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	sent, err := bot.Broadcast(cancelled, "alert")
	assert.Error(t, err)
	assert.Zero(t, sent)
}
