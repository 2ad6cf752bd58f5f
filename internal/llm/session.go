package llm

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/polishtutor/polishtutor/internal/logger"
	"google.golang.org/genai"
)

// Session is the single conversational history shared by every recurring
// content operation. Send holds the lock for the whole backend round trip so
// two callers never interleave turns.
type Session struct {
	mu      sync.Mutex
	svc     contentService
	model   string
	history []*genai.Content
}

func newSession(svc contentService, model string, preamble []*genai.Content) *Session {
	return &Session{
		svc:     svc,
		model:   model,
		history: slices.Clone(preamble),
	}
}

// Send appends prompt as a user turn, asks the backend, and records the reply.
// A failed turn leaves the history untouched.
func (s *Session) Send(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.svc == nil {
		return "", fmt.Errorf("gemini SDK client not initialized")
	}

	turn := genai.NewContentFromText(prompt, genai.RoleUser)
	contents := append(slices.Clone(s.history), turn)

	resp, err := s.svc.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to send session message: %w", err)
	}

	text, reply, err := extractText(resp)
	if err != nil {
		return "", err
	}

	if reply.Role == "" {
		reply.Role = string(genai.RoleModel)
	}
	s.history = append(s.history, turn, reply)

	logger.Debug("Tutor session advanced", map[string]interface{}{
		"history_len": len(s.history),
		"model":       s.model,
	})

	return text, nil
}

// Len reports the number of turns in the history, preamble included.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

func personaPreamble(instruction, acknowledgement string) []*genai.Content {
	return []*genai.Content{
		genai.NewContentFromText(instruction, genai.RoleUser),
		genai.NewContentFromText(acknowledgement, genai.RoleModel),
	}
}
