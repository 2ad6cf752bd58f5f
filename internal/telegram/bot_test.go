package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBot_UsesConfiguredMention(t *testing.T) {
	bot := newTestBot(t, &fakeAPI{}, &fakeTutor{})

	assert.Equal(t, testMention, bot.mention)
	assert.NotNil(t, bot.globalLimiter)
	assert.Equal(t, DefaultWorkerPoolConfig(), bot.pool)
}

func TestPostToChannel(t *testing.T) {
	api := &fakeAPI{}
	bot := newTestBot(t, api, &fakeTutor{})

	require.NoError(t, bot.PostToChannel(context.Background(), "Dzień dobry!"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(-1001234567890), msgs[0].ChatID)
	assert.Equal(t, "Dzień dobry!", msgs[0].Text)
	assert.Zero(t, msgs[0].ReplyToMessageID)
}

func TestPostToChannel_SendError(t *testing.T) {
	api := &fakeAPI{sendErr: errors.New("chat not found")}
	bot := newTestBot(t, api, &fakeTutor{})

	err := bot.PostToChannel(context.Background(), "hej")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSendText_SplitsLongReplies(t *testing.T) {
	api := &fakeAPI{}
	bot := newTestBot(t, api, &fakeTutor{})

	text := strings.Repeat("a", maxMessageLength) + strings.Repeat("b", 10)
	require.NoError(t, bot.sendText(context.Background(), 5, 99, text))

	msgs := api.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, 99, msgs[0].ReplyToMessageID)
	assert.Zero(t, msgs[1].ReplyToMessageID)
	assert.Equal(t, text, msgs[0].Text+msgs[1].Text)
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{name: "short", text: "hello", limit: 10, want: []string{"hello"}},
		{name: "empty", text: "", limit: 10, want: []string{""}},
		{name: "exact", text: "0123456789", limit: 10, want: []string{"0123456789"}},
		{name: "hard cut", text: "0123456789abc", limit: 10, want: []string{"0123456789", "abc"}},
		{name: "prefers newline", text: "line one\nline two", limit: 12, want: []string{"line one\n", "line two"}},
		{name: "counts runes", text: "ąęółśżźćń", limit: 5, want: []string{"ąęółś", "żźćń"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitMessage(tt.text, tt.limit)
			assert.Equal(t, tt.want, got)
			for _, chunk := range got {
				assert.LessOrEqual(t, utf8.RuneCountInString(chunk), tt.limit)
			}
		})
	}
}

func TestHandleUpdate_IgnoresEmptyUpdates(t *testing.T) {
	api := &fakeAPI{}
	tutor := &fakeTutor{}
	bot := newTestBot(t, api, tutor)

	assert.NotPanics(t, func() {
		bot.handleUpdate(context.Background(), tgbotapi.Update{UpdateID: 3})
		bot.handleUpdate(context.Background(), tgbotapi.Update{UpdateID: 4, Message: &tgbotapi.Message{Text: "@polish_tutor_bot /quiz"}})
	})

	assert.Empty(t, api.messages())
	assert.Empty(t, tutor.operations())
}

func TestStart_HandlesUpdatesAndStopsOnCancel(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 2)}
	tutor := &fakeTutor{}
	bot := newTestBot(t, api, tutor)

	api.updates <- textUpdate(1, "@polish_tutor_bot /quiz")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Start(ctx) }()

	require.Eventually(t, func() bool { return len(api.messages()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.True(t, api.stopped)
}

func TestStart_ReturnsWhenUpdatesClose(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update)}
	bot := newTestBot(t, api, &fakeTutor{})
	close(api.updates)

	assert.NoError(t, bot.Start(context.Background()))
}
