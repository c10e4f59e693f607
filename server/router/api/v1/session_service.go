package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/haruplan/haruplan/plugin/dialogue"
)

// CreateSessionResponse is the body returned by POST /api/v1/sessions.
type CreateSessionResponse struct {
	ID    string `json:"id"`
	Phase string `json:"phase"`
}

// PostMessageRequest is the body of POST /api/v1/sessions/{id}/messages.
type PostMessageRequest struct {
	Text string `json:"text"`
}

// PostMessageResponse carries the assistant replies for one turn.
type PostMessageResponse struct {
	Phase   string             `json:"phase"`
	Replies []dialogue.Message `json:"replies"`
}

// CreateSession opens a new conversation.
// POST /api/v1/sessions
func (s *APIV1Service) CreateSession(c echo.Context) error {
	machine := dialogue.NewMachine(s.localParser, s.remoteParser, s.location)
	session := dialogue.NewSession(machine, s.ScheduleService)

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return c.JSON(http.StatusCreated, CreateSessionResponse{
		ID:    session.ID,
		Phase: string(session.State().Phase),
	})
}

// PostSessionMessage feeds one utterance to the session. Turns are strictly
// serialized: a message arriving while the previous one is still being
// processed gets 409.
// POST /api/v1/sessions/{id}/messages
func (s *APIV1Service) PostSessionMessage(c echo.Context) error {
	session := s.getSession(c.Param("id"))
	if session == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}

	var req PostMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "text is required"})
	}

	replies, err := session.HandleUtterance(c.Request().Context(), req.Text)
	if err != nil {
		if errors.Is(err, dialogue.ErrSessionBusy) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "이전 메시지를 처리 중입니다. 잠시 후 다시 시도해주세요."})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to process message"})
	}

	return c.JSON(http.StatusOK, PostMessageResponse{
		Phase:   string(session.State().Phase),
		Replies: replies,
	})
}

// ListSessionMessages returns the full conversation log.
// GET /api/v1/sessions/{id}/messages
func (s *APIV1Service) ListSessionMessages(c echo.Context) error {
	session := s.getSession(c.Param("id"))
	if session == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	return c.JSON(http.StatusOK, session.Messages())
}

// DeleteSession closes a conversation and frees its state.
// DELETE /api/v1/sessions/{id}
func (s *APIV1Service) DeleteSession(c echo.Context) error {
	id := c.Param("id")

	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIV1Service) getSession(id string) *dialogue.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}
