package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"weatheragent/internal/model"
)

// scriptedLLM answers by prompt kind so one fake can serve the whole pipeline.
type scriptedLLM struct {
	mu sync.Mutex

	guard       string
	intent      string
	city        string
	explanation string
	err         error
	// failKind limits err to one prompt kind when set
	failKind string

	calls    []string
	lastChat []ChatMessage
}

func (l *scriptedLLM) kind(prompt string) string {
	switch {
	case strings.Contains(prompt, "gatekeeper for a weather assistant"):
		return "guard"
	case strings.Contains(prompt, "Analyze the following weather query"):
		return "intent"
	case strings.Contains(prompt, "Current user query:"):
		return "city"
	default:
		return "explanation"
	}
}

func (l *scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return l.Chat(ctx, []ChatMessage{{Role: RoleUser, Content: prompt}})
}

func (l *scriptedLLM) Chat(_ context.Context, messages []ChatMessage) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	last := messages[len(messages)-1].Content
	kind := l.kind(last)
	l.calls = append(l.calls, kind)
	if kind == "explanation" {
		l.lastChat = append([]ChatMessage(nil), messages...)
	}
	if l.err != nil && (l.failKind == "" || l.failKind == kind) {
		return "", l.err
	}

	switch kind {
	case "guard":
		if l.guard == "" {
			return "yes", nil
		}
		return l.guard, nil
	case "intent":
		return l.intent, nil
	case "city":
		return l.city, nil
	default:
		return l.explanation, nil
	}
}

func (l *scriptedLLM) IsEnabled() bool { return true }

func (l *scriptedLLM) callKinds() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *scriptedLLM) count(kind string) int {
	n := 0
	for _, k := range l.callKinds() {
		if k == kind {
			n++
		}
	}
	return n
}

// fakeProvider returns small JSON payloads and counts calls per kind.
type fakeProvider struct {
	mu       sync.Mutex
	current  map[string]int
	forecast map[string]int
	err      error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{current: map[string]int{}, forecast: map[string]int{}}
}

func (p *fakeProvider) CurrentByCity(_ context.Context, city, _ string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current[city]++
	if p.err != nil {
		return nil, p.err
	}
	return []byte(fmt.Sprintf(`{"name":%q,"main":{"temp":20}}`, city)), nil
}

func (p *fakeProvider) ForecastByCity(_ context.Context, city, _ string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forecast[city]++
	if p.err != nil {
		return nil, p.err
	}
	return []byte(fmt.Sprintf(`{"city":{"name":%q},"list":[]}`, city)), nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.current {
		n += c
	}
	for _, c := range p.forecast {
		n += c
	}
	return n
}

// memoryHistory is an in-memory HistoryStore.
type memoryHistory struct {
	mu        sync.Mutex
	turns     []model.Turn
	readErr   error
	appendErr error
}

func (h *memoryHistory) Recent(_ context.Context, sessionID string, limit int) ([]model.Turn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.readErr != nil {
		return nil, h.readErr
	}
	var out []model.Turn
	for _, t := range h.turns {
		if sessionID == "" || t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	if out == nil {
		out = []model.Turn{}
	}
	return out, nil
}

func (h *memoryHistory) Append(_ context.Context, sessionID, userMessage, aiResponse string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.appendErr != nil {
		return h.appendErr
	}
	h.turns = append(h.turns, model.Turn{
		ID:          int64(len(h.turns) + 1),
		SessionID:   sessionID,
		UserMessage: userMessage,
		AIResponse:  aiResponse,
		CreatedAt:   time.Now(),
	})
	return nil
}

func (h *memoryHistory) Clear(_ context.Context, sessionID string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	kept := h.turns[:0]
	for _, t := range h.turns {
		if t.SessionID != sessionID {
			kept = append(kept, t)
		}
	}
	h.turns = kept
	return true, nil
}

func (h *memoryHistory) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}
