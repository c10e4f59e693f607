// Package dialogue drives the clarification conversation that turns user
// utterances into a confirmed schedule parse.
//
// The transition logic is a pure function over an explicit state value; all
// side effects (user-facing messages, event commits) are returned as effect
// values for the caller to execute.
package dialogue

import (
	"github.com/haruplan/haruplan/plugin/parser"
)

// Phase identifies the dialogue phase.
type Phase string

const (
	// PhaseIdle means no parse is pending.
	PhaseIdle Phase = "IDLE"
	// PhaseAwaitingClarification means a partial parse is pending and the
	// assistant has asked a follow-up question.
	PhaseAwaitingClarification Phase = "AWAITING_CLARIFICATION"
	// PhaseAwaitingConfirmation means a complete candidate parse is pending
	// and the assistant has asked the user to confirm.
	PhaseAwaitingConfirmation Phase = "AWAITING_CONFIRMATION"
)

// State is the dialogue state. Pending is nil exactly in PhaseIdle.
type State struct {
	Phase   Phase
	Pending *parser.ParseResult
}

// Idle returns the initial state.
func Idle() State {
	return State{Phase: PhaseIdle}
}

// Effect is an action the caller must execute after a transition.
type Effect interface {
	isEffect()
}

// EmitMessage asks the caller to show an assistant message to the user.
type EmitMessage struct {
	Text string
}

// CommitEvent asks the caller to hand the confirmed parse to the
// event-creation collaborator. It is produced by exactly one transition.
type CommitEvent struct {
	Result     parser.ParseResult
	SourceText string
}

func (EmitMessage) isEffect() {}
func (CommitEvent) isEffect() {}
