package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/polishtutor/polishtutor/internal/config"
	"github.com/polishtutor/polishtutor/internal/consts"
	"github.com/polishtutor/polishtutor/internal/logger"
	"google.golang.org/genai"
)

// contentService is the slice of the genai client the tutor needs.
type contentService interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	UploadFromPath(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error)
}

// sdkService adapts *genai.Client to contentService.
type sdkService struct {
	client *genai.Client
}

func (s *sdkService) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return s.client.Models.GenerateContent(ctx, model, contents, config)
}

func (s *sdkService) UploadFromPath(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error) {
	return s.client.Files.UploadFromPath(ctx, path, config)
}

// RequestRecorder receives one call per backend operation.
type RequestRecorder interface {
	RecordBackendRequest(operation, status string)
}

// Tutor issues the bot's named operations against Gemini. It owns the one
// conversational session of the process.
type Tutor struct {
	svc         contentService
	session     *Session
	model       string
	searchModel string
	recorder    RequestRecorder
}

// NewTutor creates the genai client and seeds the tutor session.
func NewTutor(cfg *config.Config) (*Tutor, error) {
	if cfg == nil || cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return newTutor(&sdkService{client: client}, cfg.GeminiModel, cfg.GeminiSearchModel), nil
}

func newTutor(svc contentService, model, searchModel string) *Tutor {
	return &Tutor{
		svc:         svc,
		session:     newSession(svc, model, personaPreamble(consts.PersonaInstruction, consts.PersonaAcknowledgement)),
		model:       model,
		searchModel: searchModel,
	}
}

// SetRecorder attaches a metrics sink. Not safe to call concurrently with operations.
func (t *Tutor) SetRecorder(r RequestRecorder) {
	t.recorder = r
}

// Session exposes the shared session, mainly for inspection.
func (t *Tutor) Session() *Session {
	return t.session
}

func (t *Tutor) DailyWords(ctx context.Context) Result {
	return t.sessionCall(ctx, "daily_words", consts.PromptDailyWords, consts.SentinelDailyWords)
}

func (t *Tutor) DailyText(ctx context.Context) Result {
	return t.sessionCall(ctx, "daily_text", consts.PromptDailyText, consts.SentinelDailyText)
}

func (t *Tutor) DailyQuiz(ctx context.Context) Result {
	return t.sessionCall(ctx, "daily_quiz", consts.PromptDailyQuiz, consts.SentinelDailyQuiz)
}

func (t *Tutor) WordsReminder(ctx context.Context) Result {
	return t.sessionCall(ctx, "words_reminder", consts.PromptWordsReminder, consts.SentinelWordsReminder)
}

// Ask answers an arbitrary user request outside the tutor session.
func (t *Tutor) Ask(ctx context.Context, request string) Result {
	return t.generate(ctx, "user_request", t.model, request, nil, consts.SentinelUserRequest)
}

// Search answers a user request with Google Search grounding.
func (t *Tutor) Search(ctx context.Context, request string) Result {
	return t.generate(ctx, "user_search", t.searchModel, request, searchConfig(), consts.SentinelSearchRequest)
}

func (t *Tutor) DailyNews(ctx context.Context) Result {
	return t.generate(ctx, "daily_news", t.searchModel, consts.PromptDailyNews, searchConfig(), consts.SentinelDailyNews)
}

func (t *Tutor) DailyWeather(ctx context.Context) Result {
	return t.generate(ctx, "daily_weather", t.searchModel, consts.PromptDailyWeather, searchConfig(), consts.SentinelDailyWeather)
}

func (t *Tutor) WeeklyNews(ctx context.Context) Result {
	return t.generate(ctx, "weekly_news", t.searchModel, consts.PromptWeeklyNews, searchConfig(), consts.SentinelWeeklyNews)
}

// UploadImage sends a local JPEG to the Files API. On failure the artifact
// degrades to a text part holding the upload sentinel.
func (t *Tutor) UploadImage(ctx context.Context, path string) Artifact {
	var file *genai.File
	res := t.guard("upload_image", consts.SentinelUpload, func() (string, error) {
		if t.svc == nil {
			return "", fmt.Errorf("gemini SDK client not initialized")
		}
		f, err := t.svc.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: consts.PhotoMIMEType})
		if err != nil {
			return "", fmt.Errorf("failed to upload file: %w", err)
		}
		if f == nil || f.URI == "" {
			return "", fmt.Errorf("upload returned no file URI")
		}
		file = f
		return f.URI, nil
	})

	if !res.OK() {
		res.Reason = ReasonUpload
		return Artifact{Part: genai.NewPartFromText(res.Text), Result: res}
	}

	mimeType := file.MIMEType
	if mimeType == "" {
		mimeType = consts.PhotoMIMEType
	}
	return Artifact{Part: genai.NewPartFromURI(file.URI, mimeType), Result: res}
}

// DescribeImage answers prompt about an uploaded image in a single stateless turn.
func (t *Tutor) DescribeImage(ctx context.Context, artifact Artifact, prompt string) Result {
	return t.guard("describe_image", consts.SentinelImageAnswer, func() (string, error) {
		if t.svc == nil {
			return "", fmt.Errorf("gemini SDK client not initialized")
		}
		if artifact.Part == nil {
			return "", fmt.Errorf("no image artifact")
		}
		contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
			artifact.Part,
			genai.NewPartFromText("\n\n"),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser)}

		resp, err := t.svc.GenerateContent(ctx, t.model, contents, nil)
		if err != nil {
			return "", fmt.Errorf("failed to generate content from image: %w", err)
		}
		text, _, err := extractText(resp)
		return text, err
	})
}

func (t *Tutor) sessionCall(ctx context.Context, operation, prompt, sentinel string) Result {
	return t.guard(operation, sentinel, func() (string, error) {
		return t.session.Send(ctx, prompt)
	})
}

func (t *Tutor) generate(ctx context.Context, operation, model, prompt string, cfg *genai.GenerateContentConfig, sentinel string) Result {
	return t.guard(operation, sentinel, func() (string, error) {
		if t.svc == nil {
			return "", fmt.Errorf("gemini SDK client not initialized")
		}
		resp, err := t.svc.GenerateContent(ctx, model, genai.Text(prompt), cfg)
		if err != nil {
			return "", fmt.Errorf("failed to generate content: %w", err)
		}
		text, _, err := extractText(resp)
		return text, err
	})
}

// guard runs call and converts every failure, panics included, into the
// sentinel Result.
func (t *Tutor) guard(operation, sentinel string, call func() (string, error)) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = failure(sentinel, ReasonPanic, fmt.Errorf("panic in %s: %v", operation, r))
		}
		t.record(operation, res)
	}()

	text, err := call()
	if err != nil {
		reason := ReasonBackend
		var empty *emptyResponseError
		if errors.As(err, &empty) {
			reason = ReasonEmptyResponse
		}
		return failure(sentinel, reason, err)
	}

	return success(text)
}

func (t *Tutor) record(operation string, res Result) {
	if !res.OK() {
		logger.Error("Gemini operation failed", map[string]interface{}{
			"operation": operation,
			"reason":    res.Reason.String(),
			"error":     fmt.Sprint(res.Err),
		})
	}
	if t.recorder != nil {
		t.recorder.RecordBackendRequest(operation, res.Reason.String())
	}
}

func searchConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}
}

type emptyResponseError struct {
	what string
}

func (e *emptyResponseError) Error() string {
	return "no " + e.what + " in Gemini response"
}

// extractText joins the non-thought text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) (string, *genai.Content, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", nil, &emptyResponseError{what: "candidates"}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", nil, &emptyResponseError{what: "content parts"}
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", nil, &emptyResponseError{what: "text"}
	}

	return text, candidate.Content, nil
}
