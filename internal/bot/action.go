// Package bot contains the conversational core: the command router, the user
// request flow, the admin triage flow, and the action-token codec that binds
// inline-keyboard buttons to handlers.
package bot

import (
	"errors"
	"strings"
)

// ErrMalformedAction is returned when a button payload cannot be parsed into
// a known verb/argument shape. Action tokens arrive from the wire and are
// untrusted; the router treats this error as a silent no-op.
var ErrMalformedAction = errors.New("malformed action token")

// actionDelim separates the verb and arguments inside callback data.
const actionDelim = ":"

// Button verbs. Callback data is capped at 64 bytes by the chat platform, so
// tokens carry only record ids, catalog ids, and fixed menu words. Free text
// (the typed title) stays in the conversation-state registry.
const (
	// User flow.
	VerbConfirm = "confirm" // confirm (title held in conversation state)
	VerbPick    = "pick"    // pick:<catalog_id>

	// Admin triage flow.
	VerbMenu     = "menu"     // menu:<list|filter>
	VerbList     = "list"     // list:<all|pending|completed|rejected>
	VerbComplete = "complete" // complete:<request_id>
	VerbReject   = "reject"   // reject:<request_id>
	VerbDetails  = "details"  // details:<request_id>
	VerbFilter   = "filter"   // filter:<title|requester|pending|completed|rejected>
)

// arity maps each verb to its fixed argument count.
var arity = map[string]int{
	VerbConfirm:  0,
	VerbPick:     1,
	VerbMenu:     1,
	VerbList:     1,
	VerbComplete: 1,
	VerbReject:   1,
	VerbDetails:  1,
	VerbFilter:   1,
}

// Action is a parsed button command.
type Action struct {
	Verb string
	Args []string
}

// Encode serializes the action into callback data.
func (a Action) Encode() string {
	return strings.Join(append([]string{a.Verb}, a.Args...), actionDelim)
}

// NewAction is a small convenience constructor.
func NewAction(verb string, args ...string) Action {
	return Action{Verb: verb, Args: args}
}

// ParseAction decodes callback data into an Action. Unknown verbs, missing
// arguments, and empty segments yield ErrMalformedAction.
func ParseAction(raw string) (Action, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Action{}, ErrMalformedAction
	}

	verb := raw
	if i := strings.Index(raw, actionDelim); i >= 0 {
		verb = raw[:i]
	}
	n, ok := arity[verb]
	if !ok {
		return Action{}, ErrMalformedAction
	}

	// For a zero-arity verb the single segment must be the bare verb; any
	// trailing delimiter or argument is malformed.
	parts := strings.SplitN(raw, actionDelim, n+1)
	if len(parts) != n+1 || parts[0] != verb {
		return Action{}, ErrMalformedAction
	}
	args := parts[1:]
	for _, a := range args {
		if a == "" {
			return Action{}, ErrMalformedAction
		}
	}
	return Action{Verb: verb, Args: args}, nil
}
