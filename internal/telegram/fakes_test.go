package telegram

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/polishtutor/polishtutor/internal/config"
	"github.com/polishtutor/polishtutor/internal/consts"
	"github.com/polishtutor/polishtutor/internal/llm"
	"google.golang.org/genai"
)

const testMention = "@polish_tutor_bot"

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	sendErr  error
	failNext int // fail this many sends before succeeding
	fileURL  string
	fileErr  error
	fileReqs []string
	updates  chan tgbotapi.Update
	stopped  bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	if f.failNext > 0 {
		f.failNext--
		return tgbotapi.Message{}, errors.New("message is too long")
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fileReqs = append(f.fileReqs, fileID)
	if f.fileErr != nil {
		return "", f.fileErr
	}
	return f.fileURL, nil
}

func (f *fakeAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

// fakeTutor records which operation ran and returns canned results.
type fakeTutor struct {
	mu          sync.Mutex
	calls       []string
	askPayloads []string
	fail        bool
	uploadFail  bool
	describeErr bool
	panicOn     string
	uploadSeen  func(path string)
}

func (f *fakeTutor) result(op, text, sentinel string) llm.Result {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.mu.Unlock()
	if f.panicOn == op {
		panic("tutor exploded")
	}
	if f.fail {
		return llm.Result{Text: sentinel, Reason: llm.ReasonBackend, Err: errors.New("backend down")}
	}
	return llm.Result{Text: text}
}

func (f *fakeTutor) Ask(ctx context.Context, request string) llm.Result {
	f.mu.Lock()
	f.askPayloads = append(f.askPayloads, request)
	f.mu.Unlock()
	return f.result("ask", "answer: "+request, consts.SentinelUserRequest)
}

func (f *fakeTutor) Search(ctx context.Context, request string) llm.Result {
	return f.result("search", "found: "+request, consts.SentinelSearchRequest)
}

func (f *fakeTutor) DailyWords(ctx context.Context) llm.Result {
	return f.result("words", "10 słów", consts.SentinelDailyWords)
}

func (f *fakeTutor) DailyText(ctx context.Context) llm.Result {
	return f.result("text", "tekst", consts.SentinelDailyText)
}

func (f *fakeTutor) DailyQuiz(ctx context.Context) llm.Result {
	return f.result("quiz", "quiz", consts.SentinelDailyQuiz)
}

func (f *fakeTutor) UploadImage(ctx context.Context, path string) llm.Artifact {
	f.mu.Lock()
	f.calls = append(f.calls, "upload")
	f.mu.Unlock()
	if f.uploadSeen != nil {
		f.uploadSeen(path)
	}
	if f.uploadFail {
		return llm.Artifact{
			Part:   genai.NewPartFromText(consts.SentinelUpload),
			Result: llm.Result{Text: consts.SentinelUpload, Reason: llm.ReasonUpload, Err: errors.New("upload failed")},
		}
	}
	return llm.Artifact{Part: genai.NewPartFromURI("https://files.example/"+path, consts.PhotoMIMEType), Result: llm.Result{Text: path}}
}

func (f *fakeTutor) DescribeImage(ctx context.Context, artifact llm.Artifact, prompt string) llm.Result {
	f.mu.Lock()
	f.calls = append(f.calls, "describe:"+prompt)
	f.mu.Unlock()
	if f.describeErr {
		return llm.Result{Text: consts.SentinelImageAnswer, Reason: llm.ReasonBackend, Err: errors.New("generation failed")}
	}
	return llm.Result{Text: "Na zdjęciu jest kot."}
}

func (f *fakeTutor) operations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeRecorder struct {
	mu       sync.Mutex
	commands []string
	photos   []string
}

func (r *fakeRecorder) RecordCommand(command, status string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, command+":"+status)
}

func (r *fakeRecorder) RecordPhotoRequest(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.photos = append(r.photos, status)
}

func newTestBot(t *testing.T, api *fakeAPI, tutor *fakeTutor) *Bot {
	t.Helper()
	cfg := &config.Config{
		TelegramChannelID: -1001234567890,
		BotUsername:       "polish_tutor_bot",
		DownloadDir:       t.TempDir(),
	}
	return newBot(api, cfg, tutor)
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 10,
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "group"},
			Text:      text,
		},
	}
}

func photoUpdate(chatID int64, caption string, fileIDs ...string) tgbotapi.Update {
	var sizes []tgbotapi.PhotoSize
	for i, id := range fileIDs {
		sizes = append(sizes, tgbotapi.PhotoSize{FileID: id, Width: 90 * (i + 1), Height: 90 * (i + 1)})
	}
	return tgbotapi.Update{
		UpdateID: 2,
		ChannelPost: &tgbotapi.Message{
			MessageID: 20,
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "channel"},
			Caption:   caption,
			Photo:     sizes,
		},
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
