// Package copilot implements the dashboard's conversational assistant: the
// chat log, the local fallback responder, quick actions, the guided tour and
// the widget state machine that ties them to the assistant backend.
package copilot

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message types the widget itself produces. Remote replies may carry others.
const (
	TypeText     = "text"
	TypeWelcome  = "welcome"
	TypeError    = "error"
	TypeSuccess  = "success"
	TypeFallback = "fallback"
)

// Suggestion is a follow-up action attached to an assistant reply.
type Suggestion struct {
	Text   string `json:"text"`
	Type   string `json:"type,omitempty"`
	Action string `json:"action"`
}

// Message is one chat log entry. Messages are never edited once appended.
type Message struct {
	ID          string       `json:"id"`
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Type        string       `json:"type,omitempty"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Log is an append-only chat history, safe for concurrent use.
type Log struct {
	mu   sync.RWMutex
	msgs []Message
	now  func() time.Time
}

// NewLog returns an empty log stamping messages with now.
func NewLog(now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{now: now}
}

// Append stamps m with a fresh id and time and adds it to the log.
func (l *Log) Append(m Message) Message {
	m.ID = uuid.NewString()
	m.CreatedAt = l.now()
	if len(m.Suggestions) > 0 {
		m.Suggestions = append([]Suggestion(nil), m.Suggestions...)
	}
	l.mu.Lock()
	l.msgs = append(l.msgs, m)
	l.mu.Unlock()
	return m
}

// Len is the number of messages in the log.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.msgs)
}

// Messages returns a copy of the log in append order.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Message(nil), l.msgs...)
}

// Last returns the newest message.
func (l *Log) Last() (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.msgs) == 0 {
		return Message{}, false
	}
	return l.msgs[len(l.msgs)-1], true
}

// TypeIcon is the glyph shown next to a suggestion of the given type.
func TypeIcon(t string) string {
	switch t {
	case "navigation":
		return "🧭"
	case "analysis":
		return "📊"
	case "prediction":
		return "🤖"
	case "explanation":
		return "💡"
	case "help":
		return "❓"
	case "tour":
		return "🗺️"
	case "model_info":
		return "🎯"
	case "statistics":
		return "📈"
	}
	return "✨"
}
