package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MaxFollowUpQuestions caps how many clarification questions a remote parse
// may carry back to the user.
const MaxFollowUpQuestions = 3

// ParseRequest is the remote parse request.
type ParseRequest struct {
	Text     string `json:"text"`
	Timezone string `json:"timezone"`
	NowISO   string `json:"nowISO"`
}

// ParseResponse is the remote parse response. A non-empty FollowUpQuestions
// means the service parsed successfully but needs more information; that is
// not an error.
type ParseResponse struct {
	Title             string   `json:"title"`
	StartAtISO        string   `json:"startAtISO"`
	RepeatType        string   `json:"repeatType"`
	FollowUpQuestions []string `json:"followUpQuestions"`
	MissingFields     []string `json:"missingFields"`
}

// RemoteParser is the contract around a remote text-to-schedule service.
type RemoteParser interface {
	Parse(ctx context.Context, req ParseRequest) (*ParseResponse, error)
}

// RemoteParseError codes.
const (
	ErrCodeTransport   = "TRANSPORT"
	ErrCodeBadStatus   = "BAD_STATUS"
	ErrCodeBadResponse = "BAD_RESPONSE"
)

// RemoteParseError is returned when a remote parse call cannot complete:
// network failure, non-success status, or a malformed response. It is
// distinguishable via errors.As from an ambiguous-but-successful parse.
type RemoteParseError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RemoteParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("remote parse failed [%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("remote parse failed [%s] %s", e.Code, e.Message)
}

func (e *RemoteParseError) Unwrap() error {
	return e.Cause
}

const parseSystemPrompt = `당신은 한국어 자연어 일정 파서입니다. 사용자 입력에서 일정 정보를 추출하세요.

반드시 아래 JSON 형식으로만 응답하세요 (다른 텍스트 없이):

{
  "title": "일정 제목",
  "startAtISO": "ISO 8601 날짜/시간 문자열",
  "repeatType": "none" | "monthly" | "yearly",
  "followUpQuestions": ["추가 질문1", ...],
  "missingFields": ["누락필드명", ...]
}

규칙:
1. title: 일정 내용을 간결하게 추출
2. startAtISO: 날짜/시간을 ISO 문자열로 변환. 시간이 없으면 09:00 기본.
3. repeatType: "매달", "매월" → "monthly" / "매년", "매해" → "yearly" / 없으면 "none"
4. followUpQuestions: 정보가 부족하면 최대 3개의 후속 질문 (한국어)
5. missingFields: 누락된 필드명 배열 ("title", "date", "time" 중)
6. 현재 시각과 타임존을 기준으로 상대적 날짜(오늘, 내일, 모레 등)를 해석하세요.`

// modelParser implements RemoteParser directly against an LLM.
type modelParser struct {
	llm LLMService
}

// NewModelParser creates a RemoteParser that prompts the given LLM.
func NewModelParser(llm LLMService) RemoteParser {
	return &modelParser{llm: llm}
}

func (p *modelParser) Parse(ctx context.Context, req ParseRequest) (*ParseResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, &RemoteParseError{Code: ErrCodeBadResponse, Message: "empty input text"}
	}

	userMessage := fmt.Sprintf("현재 시각: %s\n타임존: %s\n\n사용자 입력: %q", req.NowISO, req.Timezone, req.Text)

	content, err := p.llm.Chat(ctx, []Message{
		{Role: "system", Content: parseSystemPrompt},
		{Role: "user", Content: userMessage},
	})
	if err != nil {
		return nil, &RemoteParseError{Code: ErrCodeTransport, Message: "model call failed", Cause: err}
	}

	return decodeParseResponse([]byte(stripCodeFences(content)))
}

// decodeParseResponse unmarshals and normalizes a parse response body.
func decodeParseResponse(data []byte) (*ParseResponse, error) {
	var resp ParseResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &RemoteParseError{Code: ErrCodeBadResponse, Message: "malformed response", Cause: err}
	}

	if resp.FollowUpQuestions == nil {
		resp.FollowUpQuestions = []string{}
	}
	if len(resp.FollowUpQuestions) > MaxFollowUpQuestions {
		resp.FollowUpQuestions = resp.FollowUpQuestions[:MaxFollowUpQuestions]
	}
	if resp.MissingFields == nil {
		resp.MissingFields = []string{}
	}
	if resp.RepeatType == "" {
		resp.RepeatType = "none"
	}

	return &resp, nil
}

// stripCodeFences removes markdown code fences some models wrap JSON in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
