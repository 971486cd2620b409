package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/docuchat/docuchat/models"
)

// FallbackPolicy controls how often a new fallback sentence is drawn from the
// pool for out-of-scope questions.
type FallbackPolicy string

const (
	// FallbackPerProcess draws once at construction time; every turn served
	// by this process uses the same sentence. This is the default.
	FallbackPerProcess FallbackPolicy = "per-process"
	// FallbackPerSession draws once per session id and remembers the choice.
	FallbackPerSession FallbackPolicy = "per-session"
	// FallbackPerRequest draws fresh on every turn.
	FallbackPerRequest FallbackPolicy = "per-request"
)

func (p FallbackPolicy) valid() bool {
	switch p {
	case FallbackPerProcess, FallbackPerSession, FallbackPerRequest:
		return true
	}
	return false
}

// Synthesizer produces the grounded answer for a standalone question. The
// prompt carries the retrieved passages as context plus the chat history, and
// instructs the model to refuse out-of-scope questions with a fixed fallback
// sentence rather than improvise.
type Synthesizer struct {
	llm    Completer
	policy FallbackPolicy

	processFallback string

	mu               sync.Mutex
	sessionFallbacks map[string]string

	now  func() time.Time
	pick func(n int) int
}

func NewSynthesizer(llm Completer, policy FallbackPolicy) *Synthesizer {
	if !policy.valid() {
		policy = FallbackPerProcess
	}
	s := &Synthesizer{
		llm:              llm,
		policy:           policy,
		sessionFallbacks: make(map[string]string),
		now:              time.Now,
		pick:             rand.Intn,
	}
	s.processFallback = fallbackResponses[s.pick(len(fallbackResponses))]
	return s
}

// Synthesize runs the answer prompt. An empty passage list is a valid input:
// the model still sees the question and the fallback instruction, so chit-chat
// and out-of-scope questions get a sensible reply.
func (s *Synthesizer) Synthesize(ctx context.Context, sessionID string, model models.ModelName, passages []models.Passage, history []models.Message, question string) (string, error) {
	system := fmt.Sprintf(qaSystemPrompt, s.now().Format("2006-01-02"), s.fallbackFor(sessionID))

	msgs := make([]models.Message, 0, len(history)+3)
	msgs = append(msgs, models.Message{Role: models.RoleSystem, Content: system})
	msgs = append(msgs, models.Message{Role: models.RoleSystem, Content: "Context: " + joinPassages(passages)})
	msgs = append(msgs, history...)
	msgs = append(msgs, models.Message{Role: models.RoleHuman, Content: question})

	out, err := s.llm.ChatCompletion(ctx, string(model), msgs)
	if err != nil {
		return "", fmt.Errorf("%w: synthesize: %v", ErrCompletion, err)
	}
	return strings.TrimSpace(out), nil
}

func (s *Synthesizer) fallbackFor(sessionID string) string {
	switch s.policy {
	case FallbackPerRequest:
		return fallbackResponses[s.pick(len(fallbackResponses))]
	case FallbackPerSession:
		s.mu.Lock()
		defer s.mu.Unlock()
		if f, ok := s.sessionFallbacks[sessionID]; ok {
			return f
		}
		f := fallbackResponses[s.pick(len(fallbackResponses))]
		s.sessionFallbacks[sessionID] = f
		return f
	default:
		return s.processFallback
	}
}

func joinPassages(passages []models.Passage) string {
	if len(passages) == 0 {
		return ""
	}
	parts := make([]string, 0, len(passages))
	for _, p := range passages {
		parts = append(parts, p.Content)
	}
	return strings.Join(parts, "\n\n")
}
