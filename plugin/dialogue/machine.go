package dialogue

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/haruplan/haruplan/plugin/ai"
	"github.com/haruplan/haruplan/plugin/parser"
)

// maxLocalMissingFields is the hard cutoff for resolving a parse locally:
// a pending start time with at most one missing field stays local, anything
// weaker escalates to the remote parser.
const maxLocalMissingFields = 1

// Affirmative and negative confirmation tokens, compared after trimming and
// lowercasing.
var (
	affirmativeTokens = map[string]bool{"네": true, "yes": true, "ㅇ": true, "응": true}
	negativeTokens    = map[string]bool{"아니오": true, "no": true, "ㄴ": true}
)

// Machine computes dialogue transitions. It is safe for concurrent use as
// long as each State value is owned by a single conversation.
type Machine struct {
	local    *parser.Parser
	remote   ai.RemoteParser
	location *time.Location
	now      func() time.Time
}

// NewMachine creates a dialogue machine. remote may be nil, in which case
// escalation behaves like a remote failure.
func NewMachine(local *parser.Parser, remote ai.RemoteParser, location *time.Location) *Machine {
	if location == nil {
		location = time.Local
	}
	return &Machine{
		local:    local,
		remote:   remote,
		location: location,
		now:      time.Now,
	}
}

// Advance processes one user utterance and returns the next state plus the
// effects to execute. The remote parser call, if any, completes before
// Advance returns; the caller must not feed a new utterance until it has
// handled the effects.
func (m *Machine) Advance(ctx context.Context, state State, text string) (State, []Effect) {
	text = strings.TrimSpace(text)
	if text == "" {
		return state, nil
	}

	if state.Pending == nil {
		return m.advanceIdle(ctx, text)
	}
	return m.advancePending(state, text)
}

// advanceIdle handles the first utterance of a conversation round.
func (m *Machine) advanceIdle(ctx context.Context, text string) (State, []Effect) {
	now := m.now().In(m.location)
	result := m.local.ParseAt(text, now)

	// Fully resolved: ask for confirmation right away.
	if result.Complete() {
		return State{Phase: PhaseAwaitingConfirmation, Pending: &result},
			[]Effect{EmitMessage{Text: confirmationPrompt(&result, text)}}
	}

	// Partially resolved with a date: ask targeted follow-up questions.
	if result.StartAt != nil && len(result.MissingFields) <= maxLocalMissingFields {
		return State{Phase: PhaseAwaitingClarification, Pending: &result},
			[]Effect{EmitMessage{Text: followUpQuestions(result.MissingFields)}}
	}

	return m.escalate(ctx, text, now)
}

// escalate hands the utterance to the remote parser.
func (m *Machine) escalate(ctx context.Context, text string, now time.Time) (State, []Effect) {
	if m.remote == nil {
		return Idle(), []Effect{EmitMessage{Text: msgRetryWithDate}}
	}

	resp, err := m.remote.Parse(ctx, ai.ParseRequest{
		Text:     text,
		Timezone: m.location.String(),
		NowISO:   now.Format(time.RFC3339),
	})
	if err != nil {
		// Recovered locally: the raw error never reaches the user.
		slog.Warn("remote parse failed", "error", err)
		return Idle(), []Effect{EmitMessage{Text: msgRetryWithDate}}
	}

	pending := resultFromRemote(resp)

	if len(resp.FollowUpQuestions) > 0 {
		return State{Phase: PhaseAwaitingClarification, Pending: pending},
			[]Effect{EmitMessage{Text: strings.Join(resp.FollowUpQuestions, "\n")}}
	}

	if pending.StartAt != nil {
		pending.MissingFields = nil
		return State{Phase: PhaseAwaitingConfirmation, Pending: pending},
			[]Effect{EmitMessage{Text: confirmationPrompt(pending, text)}}
	}

	return Idle(), []Effect{EmitMessage{Text: msgNotUnderstood}}
}

// advancePending handles an utterance while a parse awaits confirmation or
// clarification.
func (m *Machine) advancePending(state State, text string) (State, []Effect) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	pending := state.Pending

	if affirmativeTokens[normalized] && pending.StartAt != nil {
		return Idle(), []Effect{CommitEvent{Result: *pending, SourceText: text}}
	}

	if negativeTokens[normalized] {
		return Idle(), []Effect{EmitMessage{Text: msgCancelled}}
	}

	// Anything else is supplementary information: re-parse and merge.
	now := m.now().In(m.location)
	parsed := m.local.ParseAt(text, now)
	merged := mergeParse(pending, &parsed)

	// Still no date after the merge: re-ask and keep the previous pending
	// parse untouched.
	if merged.StartAt == nil {
		return State{Phase: PhaseAwaitingClarification, Pending: pending},
			[]Effect{EmitMessage{Text: msgDateStillMissing}}
	}

	return State{Phase: PhaseAwaitingConfirmation, Pending: merged},
		[]Effect{EmitMessage{Text: confirmationPrompt(merged, text)}}
}

// mergeParse merges a supplementary parse into the pending one field by
// field: new-if-present wins. MissingFields resets optimistically; only the
// start time is re-checked by the caller, so a merge that resolves the date
// but not the title proceeds to confirmation (the commit path falls back to
// the source text as title).
func mergeParse(pending, parsed *parser.ParseResult) *parser.ParseResult {
	merged := &parser.ParseResult{
		TitleCandidate: pending.TitleCandidate,
		StartAt:        pending.StartAt,
		RepeatType:     pending.RepeatType,
	}
	if parsed.TitleCandidate != "" {
		merged.TitleCandidate = parsed.TitleCandidate
	}
	if parsed.StartAt != nil {
		merged.StartAt = parsed.StartAt
	}
	if parsed.RepeatType != parser.RepeatNone {
		merged.RepeatType = parsed.RepeatType
	}
	return merged
}

// resultFromRemote converts a remote parse response into a local ParseResult.
// An unparseable start time is treated as absent.
func resultFromRemote(resp *ai.ParseResponse) *parser.ParseResult {
	result := &parser.ParseResult{
		TitleCandidate: resp.Title,
		RepeatType:     repeatFromString(resp.RepeatType),
		MissingFields:  resp.MissingFields,
	}
	if resp.StartAtISO != "" {
		if t, err := time.Parse(time.RFC3339, resp.StartAtISO); err == nil {
			result.StartAt = &t
		}
	}
	return result
}

func repeatFromString(s string) parser.RepeatType {
	switch s {
	case string(parser.RepeatMonthly):
		return parser.RepeatMonthly
	case string(parser.RepeatYearly):
		return parser.RepeatYearly
	default:
		return parser.RepeatNone
	}
}
