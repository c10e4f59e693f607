package dialogue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haruplan/haruplan/plugin/ai"
	"github.com/haruplan/haruplan/plugin/parser"
)

var seoul = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		panic(err)
	}
	return loc
}()

// refNow is 2024-06-01 12:00 KST, a Saturday.
var refNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, seoul)

func newTestMachine(remote ai.RemoteParser) *Machine {
	m := NewMachine(parser.New(seoul), remote, seoul)
	m.now = func() time.Time { return refNow }
	return m
}

func emitted(t *testing.T, effects []Effect) string {
	t.Helper()
	for _, e := range effects {
		if msg, ok := e.(EmitMessage); ok {
			return msg.Text
		}
	}
	t.Fatal("no EmitMessage effect")
	return ""
}

func commits(effects []Effect) []CommitEvent {
	var out []CommitEvent
	for _, e := range effects {
		if c, ok := e.(CommitEvent); ok {
			out = append(out, c)
		}
	}
	return out
}

func TestAdvanceCompleteParseAsksForConfirmation(t *testing.T) {
	remote := &ai.MockRemoteParser{}
	m := newTestMachine(remote)

	state, effects := m.Advance(context.Background(), Idle(), "내일 오후 3시 회의")

	assert.Equal(t, PhaseAwaitingConfirmation, state.Phase)
	require.NotNil(t, state.Pending)
	assert.Equal(t, "회의", state.Pending.TitleCandidate)

	prompt := emitted(t, effects)
	assert.Equal(t, "📌 \"회의\"\n📆 6월 2일 (일) 15:00\n\n이대로 저장할까요? (네/아니오)", prompt)

	// A locally resolved parse never reaches the remote parser.
	assert.Empty(t, remote.Requests)
}

func TestAdvanceRecurrenceLabelInPrompt(t *testing.T) {
	m := newTestMachine(nil)

	state, effects := m.Advance(context.Background(), Idle(), "매달 25일 오전 10시 월세")
	assert.Equal(t, PhaseAwaitingConfirmation, state.Phase)
	assert.Contains(t, emitted(t, effects), "(매월 반복)")

	state, effects = m.Advance(context.Background(), Idle(), "매년 3월 10일 오전 10시 결혼기념일")
	assert.Equal(t, PhaseAwaitingConfirmation, state.Phase)
	assert.Contains(t, emitted(t, effects), "(매년 반복)")
}

func TestAdvancePartialParseAsksFollowUp(t *testing.T) {
	remote := &ai.MockRemoteParser{}
	m := newTestMachine(remote)

	// Date resolved, time missing: exactly one missing field stays local.
	state, effects := m.Advance(context.Background(), Idle(), "매달 25일 월세")

	assert.Equal(t, PhaseAwaitingClarification, state.Phase)
	require.NotNil(t, state.Pending)
	assert.Equal(t, "몇 시에 알려드릴까요? (기본: 오전 9시)", emitted(t, effects))
	assert.Empty(t, remote.Requests, "one missing field must not escalate")
}

func TestAdvanceMissingTitleAsksForTitle(t *testing.T) {
	m := newTestMachine(nil)

	state, effects := m.Advance(context.Background(), Idle(), "내일 오후 3시")

	assert.Equal(t, PhaseAwaitingClarification, state.Phase)
	assert.Equal(t, "일정 제목을 알려주세요.", emitted(t, effects))
}

func TestAdvanceEscalatesToRemoteParser(t *testing.T) {
	remote := &ai.MockRemoteParser{Response: &ai.ParseResponse{
		Title:             "저녁 약속",
		StartAtISO:        "2024-06-07T19:00:00+09:00",
		RepeatType:        "none",
		FollowUpQuestions: []string{},
		MissingFields:     []string{},
	}}
	m := newTestMachine(remote)

	state, effects := m.Advance(context.Background(), Idle(), "다음주 금요일 저녁 약속")

	require.Len(t, remote.Requests, 1)
	assert.Equal(t, "다음주 금요일 저녁 약속", remote.Requests[0].Text)
	assert.Equal(t, "Asia/Seoul", remote.Requests[0].Timezone)
	assert.Equal(t, refNow.Format(time.RFC3339), remote.Requests[0].NowISO)

	assert.Equal(t, PhaseAwaitingConfirmation, state.Phase)
	require.NotNil(t, state.Pending)
	assert.Equal(t, "저녁 약속", state.Pending.TitleCandidate)
	assert.Contains(t, emitted(t, effects), "저녁 약속")
}

func TestAdvanceRemoteFollowUpQuestions(t *testing.T) {
	remote := &ai.MockRemoteParser{Response: &ai.ParseResponse{
		Title:             "발표",
		FollowUpQuestions: []string{"언제 발표인가요?", "몇 시인가요?"},
		MissingFields:     []string{"date", "time"},
	}}
	m := newTestMachine(remote)

	state, effects := m.Advance(context.Background(), Idle(), "발표 준비해야 하는데")

	assert.Equal(t, PhaseAwaitingClarification, state.Phase)
	require.NotNil(t, state.Pending)
	assert.Equal(t, "발표", state.Pending.TitleCandidate)
	assert.Equal(t, "언제 발표인가요?\n몇 시인가요?", emitted(t, effects))
}

func TestAdvanceRemoteResolvedNothing(t *testing.T) {
	remote := &ai.MockRemoteParser{Response: &ai.ParseResponse{
		FollowUpQuestions: []string{},
		MissingFields:     []string{"title", "date", "time"},
	}}
	m := newTestMachine(remote)

	state, effects := m.Advance(context.Background(), Idle(), "으으음")

	assert.Equal(t, PhaseIdle, state.Phase)
	assert.Nil(t, state.Pending)
	assert.Equal(t, msgNotUnderstood, emitted(t, effects))
}

func TestAdvanceRemoteFailureRecoversToIdle(t *testing.T) {
	remote := &ai.MockRemoteParser{Err: &ai.RemoteParseError{Code: ai.ErrCodeTransport, Message: "boom"}}
	m := newTestMachine(remote)

	state, effects := m.Advance(context.Background(), Idle(), "발표 준비해야 하는데")

	assert.Equal(t, PhaseIdle, state.Phase)
	assert.Nil(t, state.Pending, "a failed remote call must not leave a pending parse")
	assert.Equal(t, msgRetryWithDate, emitted(t, effects))
}

func TestAdvanceNilRemoteBehavesLikeFailure(t *testing.T) {
	m := newTestMachine(nil)

	state, effects := m.Advance(context.Background(), Idle(), "발표 준비해야 하는데")

	assert.Equal(t, PhaseIdle, state.Phase)
	assert.Equal(t, msgRetryWithDate, emitted(t, effects))
}

func TestAdvanceAffirmativeCommits(t *testing.T) {
	m := newTestMachine(nil)

	state, _ := m.Advance(context.Background(), Idle(), "내일 오후 3시 회의")
	require.Equal(t, PhaseAwaitingConfirmation, state.Phase)

	for _, token := range []string{"네", "YES", " ㅇ ", "응"} {
		next, effects := m.Advance(context.Background(), state, token)
		assert.Equal(t, PhaseIdle, next.Phase)
		assert.Nil(t, next.Pending)
		events := commits(effects)
		require.Len(t, events, 1)
		assert.Equal(t, "회의", events[0].Result.TitleCandidate)
	}
}

func TestAdvanceRepeatedAffirmativeDoesNotRecommit(t *testing.T) {
	remote := &ai.MockRemoteParser{Response: &ai.ParseResponse{
		FollowUpQuestions: []string{},
		MissingFields:     []string{"title", "date", "time"},
	}}
	m := newTestMachine(remote)

	state, _ := m.Advance(context.Background(), Idle(), "내일 오후 3시 회의")
	state, effects := m.Advance(context.Background(), state, "네")
	require.Len(t, commits(effects), 1)

	// Pending is cleared after commit, so a second affirmative is just an
	// unresolvable utterance: no duplicate commit.
	state, effects = m.Advance(context.Background(), state, "네")
	assert.Empty(t, commits(effects))
	assert.Equal(t, PhaseIdle, state.Phase)
}

func TestAdvanceNegativeCancels(t *testing.T) {
	m := newTestMachine(nil)

	state, _ := m.Advance(context.Background(), Idle(), "내일 오후 3시 회의")
	next, effects := m.Advance(context.Background(), state, "아니오")

	assert.Equal(t, PhaseIdle, next.Phase)
	assert.Nil(t, next.Pending)
	assert.Equal(t, msgCancelled, emitted(t, effects))
	assert.Empty(t, commits(effects))
}

func TestAdvanceSupplementaryMergeResolvesDate(t *testing.T) {
	m := newTestMachine(nil)

	state, _ := m.Advance(context.Background(), Idle(), "25일 회식")
	require.Equal(t, PhaseAwaitingClarification, state.Phase)

	next, effects := m.Advance(context.Background(), state, "25일 오후 7시")

	assert.Equal(t, PhaseAwaitingConfirmation, next.Phase)
	require.NotNil(t, next.Pending)
	require.NotNil(t, next.Pending.StartAt)
	assert.Equal(t, 19, next.Pending.StartAt.Hour())
	assert.Equal(t, "회식", next.Pending.TitleCandidate)
	assert.Contains(t, emitted(t, effects), "회식")
}

// A time-only answer carries no resolvable date, so the merge keeps the old
// start time including its 09:00 default. The merge rule replaces the start
// instant wholesale or not at all; it never splices a new hour into an old
// date. Kept as observed behavior.
func TestAdvanceMergeTimeOnlyAnswerKeepsOldStart(t *testing.T) {
	m := newTestMachine(nil)

	state, _ := m.Advance(context.Background(), Idle(), "25일 회식")
	require.Equal(t, PhaseAwaitingClarification, state.Phase)

	next, _ := m.Advance(context.Background(), state, "오후 7시")

	require.Equal(t, PhaseAwaitingConfirmation, next.Phase)
	assert.Equal(t, 9, next.Pending.StartAt.Hour())
	assert.Equal(t, 25, next.Pending.StartAt.Day())
}

func TestAdvanceMergePrefersNewFields(t *testing.T) {
	m := newTestMachine(nil)

	state, _ := m.Advance(context.Background(), Idle(), "내일 오후 3시 회의")
	require.Equal(t, PhaseAwaitingConfirmation, state.Phase)

	// Supplementary info replaces date and title but keeps the rest.
	next, _ := m.Advance(context.Background(), state, "모레 10시 워크숍")
	require.Equal(t, PhaseAwaitingConfirmation, next.Phase)
	assert.Equal(t, "워크숍", next.Pending.TitleCandidate)
	assert.Equal(t, 3, next.Pending.StartAt.Day())
	assert.Equal(t, 10, next.Pending.StartAt.Hour())
}

func TestAdvanceMergeStillNoDateReasks(t *testing.T) {
	remote := &ai.MockRemoteParser{Response: &ai.ParseResponse{
		Title:             "발표",
		FollowUpQuestions: []string{"언제인가요?"},
		MissingFields:     []string{"date"},
	}}
	m := newTestMachine(remote)

	state, _ := m.Advance(context.Background(), Idle(), "발표 준비")
	require.Equal(t, PhaseAwaitingClarification, state.Phase)

	next, effects := m.Advance(context.Background(), state, "글쎄요")

	assert.Equal(t, PhaseAwaitingClarification, next.Phase)
	assert.Equal(t, msgDateStillMissing, emitted(t, effects))
	// The previous pending parse survives the failed merge.
	assert.Equal(t, "발표", next.Pending.TitleCandidate)
}

// A merge that resolves the date but leaves the title empty still proceeds
// to confirmation; the prompt and the commit path fall back to the raw text.
func TestAdvanceMergeEmptyTitleProceedsToConfirmation(t *testing.T) {
	remote := &ai.MockRemoteParser{Response: &ai.ParseResponse{
		FollowUpQuestions: []string{"언제인가요?"},
		MissingFields:     []string{"date", "title"},
	}}
	m := newTestMachine(remote)

	state, _ := m.Advance(context.Background(), Idle(), "으으음")
	require.Equal(t, PhaseAwaitingClarification, state.Phase)

	next, effects := m.Advance(context.Background(), state, "내일 오후 3시")

	assert.Equal(t, PhaseAwaitingConfirmation, next.Phase)
	assert.Equal(t, "", next.Pending.TitleCandidate)
	assert.Contains(t, emitted(t, effects), "내일 오후 3시")
}

func TestAdvanceAffirmativeWithoutDateMergesInstead(t *testing.T) {
	remote := &ai.MockRemoteParser{Response: &ai.ParseResponse{
		Title:             "발표",
		FollowUpQuestions: []string{"언제인가요?"},
		MissingFields:     []string{"date"},
	}}
	m := newTestMachine(remote)

	state, _ := m.Advance(context.Background(), Idle(), "발표 준비")
	require.Equal(t, PhaseAwaitingClarification, state.Phase)
	require.Nil(t, state.Pending.StartAt)

	// "네" with no pending start time cannot commit; it is treated as
	// supplementary input, which resolves nothing.
	next, effects := m.Advance(context.Background(), state, "네")
	assert.Empty(t, commits(effects))
	assert.Equal(t, PhaseAwaitingClarification, next.Phase)
}

func TestAdvanceEmptyUtteranceIsNoop(t *testing.T) {
	m := newTestMachine(nil)
	state, effects := m.Advance(context.Background(), Idle(), "   ")
	assert.Equal(t, PhaseIdle, state.Phase)
	assert.Empty(t, effects)
}

func TestConfirmationPromptIsDeterministic(t *testing.T) {
	m := newTestMachine(nil)

	_, first := m.Advance(context.Background(), Idle(), "내일 오후 3시 회의")
	_, second := m.Advance(context.Background(), Idle(), "내일 오후 3시 회의")
	assert.Equal(t, emitted(t, first), emitted(t, second))
}

func TestResultFromRemoteBadISO(t *testing.T) {
	result := resultFromRemote(&ai.ParseResponse{Title: "회의", StartAtISO: "not-a-date"})
	assert.Nil(t, result.StartAt)
}

func TestRepeatFromString(t *testing.T) {
	assert.Equal(t, parser.RepeatMonthly, repeatFromString("monthly"))
	assert.Equal(t, parser.RepeatYearly, repeatFromString("yearly"))
	assert.Equal(t, parser.RepeatNone, repeatFromString("none"))
	assert.Equal(t, parser.RepeatNone, repeatFromString("weekly"))
}

func TestRemoteParseErrorIsDistinguishable(t *testing.T) {
	err := error(&ai.RemoteParseError{Code: ai.ErrCodeBadStatus, Message: "502", Cause: errors.New("bad gateway")})
	var parseErr *ai.RemoteParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, ai.ErrCodeBadStatus, parseErr.Code)
}
