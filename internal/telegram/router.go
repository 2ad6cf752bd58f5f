package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/polishtutor/polishtutor/internal/consts"
	"github.com/polishtutor/polishtutor/internal/logger"
)

type MessageKind int

const (
	KindText MessageKind = iota
	KindPhoto
)

func (k MessageKind) String() string {
	if k == KindPhoto {
		return "photo"
	}
	return "text"
}

// InboundMessage is the routing view of a Telegram message or channel post.
// For photos Text holds the caption.
type InboundMessage struct {
	ChatID    int64
	ChatType  string
	MessageID int
	Kind      MessageKind
	Text      string
	Photos    []tgbotapi.PhotoSize
}

func newInboundMessage(msg *tgbotapi.Message) InboundMessage {
	in := InboundMessage{
		ChatID:    msg.Chat.ID,
		ChatType:  msg.Chat.Type,
		MessageID: msg.MessageID,
		Kind:      KindText,
		Text:      msg.Text,
	}
	if len(msg.Photo) > 0 {
		in.Kind = KindPhoto
		in.Text = msg.Caption
		in.Photos = msg.Photo
	}
	return in
}

type Keyword string

const (
	KeywordNone   Keyword = ""
	KeywordAsk    Keyword = "ask"
	KeywordRepeat Keyword = "repeat"
	KeywordText   Keyword = "text"
	KeywordQuiz   Keyword = "quiz"
	KeywordSearch Keyword = "search"
)

// Command is what an addressed message asks for.
type Command struct {
	Keyword Keyword
	Payload string
}

type commandToken struct {
	token   string
	keyword Keyword
}

var commandOrder = []commandToken{
	{consts.CommandAsk, KeywordAsk},
	{consts.CommandRepeat, KeywordRepeat},
	{consts.CommandText, KeywordText},
	{consts.CommandQuiz, KeywordQuiz},
}

// ParseCommand reports whether text addresses the bot (contains mention) and,
// if so, which command it carries. Keywords are plain substrings checked in a
// fixed order; the first match wins. Payload is the text after the keyword
// with the mention removed, trimmed.
func ParseCommand(text, mention string, searchEnabled bool) (Command, bool) {
	if mention == "" || !strings.Contains(text, mention) {
		return Command{}, false
	}

	order := commandOrder
	if searchEnabled {
		order = append(order[:len(order):len(order)], commandToken{consts.CommandSearch, KeywordSearch})
	}

	for _, c := range order {
		idx := strings.Index(text, c.token)
		if idx < 0 {
			continue
		}
		payload := text[idx+len(c.token):]
		payload = strings.TrimSpace(strings.ReplaceAll(payload, mention, ""))
		return Command{Keyword: c.keyword, Payload: payload}, true
	}

	return Command{Keyword: KeywordNone}, true
}

func (b *Bot) helpMessage() string {
	if b.config.EnableSearch {
		return consts.HelpMessageWithSearch
	}
	return consts.HelpMessage
}

// handleTextMessage answers an addressed text message with exactly one reply.
func (b *Bot) handleTextMessage(ctx context.Context, in InboundMessage) {
	cmd, addressed := ParseCommand(in.Text, b.mention, b.config.EnableSearch)
	if !addressed {
		logger.Debug("Message does not address the bot, ignoring", map[string]interface{}{
			"chat_id": in.ChatID,
		})
		return
	}

	command := string(cmd.Keyword)
	if cmd.Keyword == KeywordNone {
		command = "help"
	}
	start := time.Now()
	status := "success"

	defer func() {
		if r := recover(); r != nil {
			status = "error"
			logger.Error("Error occurred during text handler", map[string]interface{}{
				"chat_id": in.ChatID,
				"command": command,
				"panic":   r,
			})
			b.replyTextFailure(ctx, in.ChatID)
		}
		if b.recorder != nil {
			b.recorder.RecordCommand(command, status, time.Since(start))
		}
	}()

	reply := b.dispatchCommand(ctx, cmd)
	if reply.degraded {
		status = "degraded"
	}

	if err := b.sendText(ctx, in.ChatID, 0, reply.text); err != nil {
		status = "error"
		logger.Error("Failed to send command reply", map[string]interface{}{
			"chat_id": in.ChatID,
			"command": command,
			"error":   err.Error(),
		})
		b.replyTextFailure(ctx, in.ChatID)
		return
	}

	logger.Info("Responded to command", map[string]interface{}{
		"chat_id":   in.ChatID,
		"chat_type": in.ChatType,
		"command":   command,
		"degraded":  reply.degraded,
	})
}

// replyTextFailure tells the chat something went wrong. It is best effort:
// a second failure is only logged.
func (b *Bot) replyTextFailure(ctx context.Context, chatID int64) {
	if err := b.sendText(ctx, chatID, 0, consts.GenericFailureMessage); err != nil {
		logger.Error("Failed to send failure message", map[string]interface{}{
			"chat_id": chatID,
			"error":   err.Error(),
		})
	}
}

type commandReply struct {
	text     string
	degraded bool
}

func (b *Bot) dispatchCommand(ctx context.Context, cmd Command) commandReply {
	switch cmd.Keyword {
	case KeywordAsk:
		res := b.tutor.Ask(ctx, cmd.Payload)
		return commandReply{text: res.Text, degraded: !res.OK()}
	case KeywordRepeat:
		res := b.tutor.DailyWords(ctx)
		return commandReply{text: res.Text, degraded: !res.OK()}
	case KeywordText:
		res := b.tutor.DailyText(ctx)
		return commandReply{text: res.Text, degraded: !res.OK()}
	case KeywordQuiz:
		res := b.tutor.DailyQuiz(ctx)
		return commandReply{text: res.Text, degraded: !res.OK()}
	case KeywordSearch:
		res := b.tutor.Search(ctx, cmd.Payload)
		return commandReply{text: res.Text, degraded: !res.OK()}
	default:
		return commandReply{text: b.helpMessage()}
	}
}
