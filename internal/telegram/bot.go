package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/polishtutor/polishtutor/internal/config"
	"github.com/polishtutor/polishtutor/internal/llm"
	"github.com/polishtutor/polishtutor/internal/logger"
	"golang.org/x/time/rate"
)

// maxMessageLength is Telegram's limit for one text message, in characters.
const maxMessageLength = 4096

// telegramAPI is the part of *tgbotapi.BotAPI the bot uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Tutor is the backend adapter as seen by the chat handlers.
type Tutor interface {
	Ask(ctx context.Context, request string) llm.Result
	Search(ctx context.Context, request string) llm.Result
	DailyWords(ctx context.Context) llm.Result
	DailyText(ctx context.Context) llm.Result
	DailyQuiz(ctx context.Context) llm.Result
	UploadImage(ctx context.Context, path string) llm.Artifact
	DescribeImage(ctx context.Context, artifact llm.Artifact, prompt string) llm.Result
}

// Recorder receives per-message outcomes.
type Recorder interface {
	RecordCommand(command, status string, duration time.Duration)
	RecordPhotoRequest(status string)
}

type Bot struct {
	api        telegramAPI
	tutor      Tutor
	config     *config.Config
	mention    string
	httpClient *http.Client
	recorder   Recorder
	pool       WorkerPoolConfig

	// Rate limiting
	globalLimiter  *rate.Limiter
	chatLimiters   map[int64]*rate.Limiter
	chatLimitersMu sync.Mutex
}

func NewBot(cfg *config.Config, tutor Tutor) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if api.Self.UserName != "" && api.Self.UserName != cfg.BotUsername {
		logger.Warn("BOT_USERNAME differs from the token's bot account", map[string]interface{}{
			"configured": cfg.BotUsername,
			"actual":     api.Self.UserName,
		})
	}

	return newBot(api, cfg, tutor), nil
}

func newBot(api telegramAPI, cfg *config.Config, tutor Tutor) *Bot {
	return &Bot{
		api:        api,
		tutor:      tutor,
		config:     cfg,
		mention:    cfg.Mention(),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		pool:       DefaultWorkerPoolConfig(),

		// Telegram allows ~30 msg/sec overall and roughly 1 msg/sec per chat.
		globalLimiter: rate.NewLimiter(rate.Limit(30), 30),
		chatLimiters:  make(map[int64]*rate.Limiter),
	}
}

func (b *Bot) SetRecorder(r Recorder) {
	b.recorder = r
}

// Start polls for updates and hands them to a worker pool until ctx is done.
// In-flight updates are drained before Start returns.
func (b *Bot) Start(ctx context.Context) error {
	logger.Info("Bot starting", map[string]interface{}{
		"mention":    b.mention,
		"channel_id": b.config.TelegramChannelID,
		"search":     b.config.EnableSearch,
	})

	pool := NewWorkerPool(b.handleUpdate, b.pool)
	if err := pool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}
	defer func() {
		logger.Info("Draining worker pool", pool.GetStats())
		if err := pool.Stop(); err != nil {
			logger.Error("Failed to stop worker pool", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "channel_post"}

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			logger.InfoMsg("Bot stopped receiving updates")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := pool.Submit(ctx, update); err != nil {
				logger.Warn("Update not queued", map[string]interface{}{
					"update_id": update.UpdateID,
					"error":     err.Error(),
				})
			}
		}
	}
}

// PostToChannel sends text to the configured output channel.
func (b *Bot) PostToChannel(ctx context.Context, text string) error {
	return b.sendText(ctx, b.config.TelegramChannelID, 0, text)
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil || msg.Chat == nil {
		logger.Debug("Update has no message, skipping", map[string]interface{}{
			"update_id": update.UpdateID,
		})
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Update handler panic recovered", map[string]interface{}{
				"update_id": update.UpdateID,
				"panic":     r,
			})
		}
	}()

	in := newInboundMessage(msg)

	logger.Info("Received message", map[string]interface{}{
		"chat_id":   in.ChatID,
		"chat_type": in.ChatType,
		"kind":      in.Kind.String(),
	})

	switch in.Kind {
	case KindPhoto:
		b.handlePhotoMessage(ctx, in)
	default:
		b.handleTextMessage(ctx, in)
	}
}

// sendText delivers text to chatID, splitting it when it exceeds Telegram's
// message limit. replyTo of 0 sends a plain message.
func (b *Bot) sendText(ctx context.Context, chatID int64, replyTo int, text string) error {
	for i, chunk := range splitMessage(text, maxMessageLength) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if i == 0 && replyTo != 0 {
			msg.ReplyToMessageID = replyTo
		}
		if _, err := b.rateLimitedSend(ctx, chatID, msg); err != nil {
			return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
		}
	}
	return nil
}

// rateLimitedSend sends a message with global and per-chat rate limiting
func (b *Bot) rateLimitedSend(ctx context.Context, chatID int64, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := b.globalLimiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, fmt.Errorf("global rate limiter error: %w", err)
	}

	if err := b.chatLimiter(chatID).Wait(ctx); err != nil {
		return tgbotapi.Message{}, fmt.Errorf("chat rate limiter error: %w", err)
	}

	logger.Debug("Sending rate-limited message", map[string]interface{}{
		"chat_id": chatID,
	})

	return b.api.Send(msg)
}

func (b *Bot) chatLimiter(chatID int64) *rate.Limiter {
	b.chatLimitersMu.Lock()
	defer b.chatLimitersMu.Unlock()

	limiter, ok := b.chatLimiters[chatID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(1), 5)
		b.chatLimiters[chatID] = limiter
	}
	return limiter
}

// splitMessage cuts text into pieces of at most limit characters, preferring
// to break at a newline.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		if nl := strings.LastIndex(string(runes[:limit]), "\n"); nl > 0 {
			cut = utf8.RuneCountInString(string(runes[:limit])[:nl]) + 1
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
