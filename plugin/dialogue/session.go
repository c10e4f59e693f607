package dialogue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/haruplan/haruplan/plugin/parser"
)

// ErrSessionBusy is returned when an utterance arrives while a previous one
// is still being processed. Utterances are strictly serialized per session.
var ErrSessionBusy = errors.New("session is busy processing a previous message")

// Committer hands a confirmed parse to the event-creation collaborator.
type Committer interface {
	Commit(ctx context.Context, result parser.ParseResult, sourceText string) error
}

// Message is one entry in the conversation log.
type Message struct {
	ID        string `json:"id"`
	Role      string `json:"role"` // "user" | "assistant"
	Text      string `json:"text"`
	CreatedTs int64  `json:"createdTs"`
}

// Session owns one conversation: its dialogue state, its message log, and
// the busy flag that serializes turns. Pending state is never shared across
// sessions.
type Session struct {
	ID string

	machine   *Machine
	committer Committer

	mu         sync.Mutex
	busy       bool
	state      State
	messages   []Message
	lastActive time.Time
}

// NewSession creates an idle session.
func NewSession(machine *Machine, committer Committer) *Session {
	return &Session{
		ID:         uuid.NewString(),
		machine:    machine,
		committer:  committer,
		state:      Idle(),
		lastActive: time.Now(),
	}
}

// HandleUtterance processes one user utterance to completion, including any
// remote parse or persistence call, and returns the assistant messages
// produced by this turn. A second call while the first is outstanding fails
// with ErrSessionBusy.
func (s *Session) HandleUtterance(ctx context.Context, text string) ([]Message, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrSessionBusy
	}
	s.busy = true
	s.lastActive = time.Now()
	prev := s.state
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	s.append("user", text)

	next, effects := s.machine.Advance(ctx, prev, text)

	var replies []Message
	for _, effect := range effects {
		switch e := effect.(type) {
		case EmitMessage:
			replies = append(replies, s.append("assistant", e.Text))
		case CommitEvent:
			if err := s.commit(ctx, e); err != nil {
				// Keep the pending parse so the user can confirm again.
				slog.Error("failed to commit schedule", "session", s.ID, "error", err)
				next = prev
				replies = append(replies, s.append("assistant", msgSaveFailed))
				continue
			}
			replies = append(replies, s.append("assistant", msgSaved))
		}
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	return replies, nil
}

func (s *Session) commit(ctx context.Context, e CommitEvent) error {
	if s.committer == nil {
		return errors.New("no committer configured")
	}
	return s.committer.Commit(ctx, e.Result, e.SourceText)
}

// LastActive returns the time of the session's most recent turn.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// State returns a snapshot of the dialogue state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the conversation log.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) append(role, text string) Message {
	msg := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedTs: time.Now().Unix(),
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg
}
