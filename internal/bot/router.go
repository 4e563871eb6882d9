// Command router: maps inbound chat events to the user and admin flows.
//
// Dispatch order per event (free text first, commands second, buttons third):
//  1. A free-text message with an open text-awaiting conversation-state
//     entry for its (chat, user) key consumes that entry and runs the flow
//     it names. This takes absolute precedence over command parsing.
//  2. A recognized command word dispatches to its handler.
//  3. A button press parses its action token and dispatches by verb.
//  4. Anything else is a silent no-op.
//
// Every admin-only entry point is gated by the operator allow-list; denial is
// a flat reply that leaks nothing about the target. All errors are converted
// to user-visible replies here; nothing propagates out of HandleUpdate.
package bot

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-request-bot/internal/catalog"
	"github.com/tbourn/go-request-bot/internal/convstate"
	"github.com/tbourn/go-request-bot/internal/domain"
	"github.com/tbourn/go-request-bot/internal/repo"
	"github.com/tbourn/go-request-bot/internal/telegram"
)

//
// Collaborator contracts
//

// Channel is the outbound messaging surface. *telegram.Client satisfies it;
// tests substitute a fake that records calls.
type Channel interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb telegram.Keyboard) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, kb telegram.Keyboard) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

// RequestStore is the slice of the lifecycle engine the flows consume.
type RequestStore interface {
	Create(ctx context.Context, requesterID string, chatID int64, title string, catalogID *int64) (*domain.Request, error)
	Complete(ctx context.Context, id, link string) (*domain.Request, error)
	CompleteByTitle(ctx context.Context, title, link string) (*domain.Request, error)
	Reject(ctx context.Context, id string) (*domain.Request, error)
	RejectByTitle(ctx context.Context, title string) (*domain.Request, error)
	Get(ctx context.Context, id string) (*domain.Request, error)
	StatusOf(ctx context.Context, requesterID, title string) (*domain.Request, error)
	List(ctx context.Context, f repo.Filter) ([]domain.Request, error)
}

// CatalogLookup is the external catalog surface used for disambiguation and
// detail enrichment.
type CatalogLookup interface {
	Search(ctx context.Context, title string) ([]catalog.Entry, error)
	Get(ctx context.Context, id int64) (*catalog.Detail, error)
}

// Router wires inbound events to flows.
type Router struct {
	Channel  Channel
	Requests RequestStore
	Catalog  CatalogLookup
	States   *convstate.Registry

	// admins is the operator allow-list, keyed by decimal Telegram user id.
	admins map[string]struct{}
}

// NewRouter constructs a Router with the given collaborators and operator
// allow-list.
func NewRouter(ch Channel, reqs RequestStore, cat CatalogLookup, states *convstate.Registry, adminIDs []int64) *Router {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[strconv.FormatInt(id, 10)] = struct{}{}
	}
	return &Router{
		Channel:  ch,
		Requests: reqs,
		Catalog:  cat,
		States:   states,
		admins:   admins,
	}
}

// IsAdmin reports whether userID is on the operator allow-list.
func (rt *Router) IsAdmin(userID string) bool {
	_, ok := rt.admins[userID]
	return ok
}

// HandleUpdate routes one inbound event. It never returns an error: every
// failure is translated into a reply (or swallowed with a log line when no
// reply makes sense).
func (rt *Router) HandleUpdate(ctx context.Context, ev telegram.Event) {
	switch ev.Kind {
	case telegram.EventText:
		botUpdates.WithLabelValues("text").Inc()
		rt.handleText(ctx, ev)
	case telegram.EventCommand:
		botUpdates.WithLabelValues("command").Inc()
		rt.handleCommand(ctx, ev)
	case telegram.EventButton:
		botUpdates.WithLabelValues("button").Inc()
		rt.handleButton(ctx, ev)
	}
}

// handleText resolves free text against the conversation state registry.
// Text with no open entry is silently ignored.
func (rt *Router) handleText(ctx context.Context, ev telegram.Event) {
	entry, ok := rt.States.Take(convstate.Key{ChatID: ev.ChatID, UserID: ev.UserID})
	if !ok {
		return
	}
	switch entry.Kind {
	case convstate.KindAwaitLink:
		rt.finishAwaitLink(ctx, ev, entry)
	case convstate.KindAwaitFilterValue:
		rt.finishAwaitFilter(ctx, ev, entry)
	default:
		// A pending confirm keyboard is resolved by a button, not by text.
		// Unrelated chatter leaves it armed.
		rt.States.Set(convstate.Key{ChatID: ev.ChatID, UserID: ev.UserID}, entry)
	}
}

func (rt *Router) handleCommand(ctx context.Context, ev telegram.Event) {
	switch ev.Command {
	case "request":
		botCommands.WithLabelValues(ev.Command).Inc()
		rt.cmdRequest(ctx, ev)
	case "status":
		botCommands.WithLabelValues(ev.Command).Inc()
		rt.cmdStatus(ctx, ev)
	case "mylist":
		botCommands.WithLabelValues(ev.Command).Inc()
		rt.cmdMyList(ctx, ev)
	case "admin":
		botCommands.WithLabelValues(ev.Command).Inc()
		rt.cmdAdmin(ctx, ev)
	case "complete":
		botCommands.WithLabelValues(ev.Command).Inc()
		rt.cmdComplete(ctx, ev)
	case "reject":
		botCommands.WithLabelValues(ev.Command).Inc()
		rt.cmdReject(ctx, ev)
	case "help", "start":
		botCommands.WithLabelValues(ev.Command).Inc()
		rt.reply(ctx, ev.ChatID, helpText)
	default:
		// Command words arrive from the wire unbounded; unrecognized ones
		// are ignored and share a single metric label.
		botCommands.WithLabelValues("unknown").Inc()
	}
}

func (rt *Router) handleButton(ctx context.Context, ev telegram.Event) {
	act, err := ParseAction(ev.CallbackData)
	if err != nil {
		botMalformedActions.Inc()
		log.Debug().Str("data", ev.CallbackData).Msg("ignoring malformed action token")
		rt.answer(ctx, ev, "")
		return
	}
	botActions.WithLabelValues(act.Verb).Inc()

	switch act.Verb {
	case VerbConfirm:
		rt.answer(ctx, ev, "")
		rt.actConfirm(ctx, ev, act)
	case VerbPick:
		rt.answer(ctx, ev, "")
		rt.actPick(ctx, ev, act)

	case VerbMenu, VerbList, VerbComplete, VerbReject, VerbDetails, VerbFilter:
		if !rt.requireAdmin(ctx, ev) {
			return
		}
		rt.answer(ctx, ev, "")
		switch act.Verb {
		case VerbMenu:
			rt.actMenu(ctx, ev, act)
		case VerbList:
			rt.actList(ctx, ev, act)
		case VerbComplete:
			rt.actComplete(ctx, ev, act)
		case VerbReject:
			rt.actReject(ctx, ev, act)
		case VerbDetails:
			rt.actDetails(ctx, ev, act)
		case VerbFilter:
			rt.actFilter(ctx, ev, act)
		}
	}
}

// requireAdmin gates an admin-only entry point. The denial is flat on
// purpose: it must not reveal whether the target resource exists.
func (rt *Router) requireAdmin(ctx context.Context, ev telegram.Event) bool {
	if rt.IsAdmin(ev.UserID) {
		return true
	}
	botUnauthorized.Inc()
	if ev.CallbackID != "" {
		rt.answer(ctx, ev, msgUnauthorized)
	} else {
		rt.reply(ctx, ev.ChatID, msgUnauthorized)
	}
	return false
}

//
// Reply helpers
//

func (rt *Router) reply(ctx context.Context, chatID int64, text string) {
	if _, err := rt.Channel.SendMessage(ctx, chatID, text, nil); err != nil {
		rt.logSend(err, chatID)
	}
}

func (rt *Router) replyKB(ctx context.Context, chatID int64, text string, kb telegram.Keyboard) {
	if _, err := rt.Channel.SendMessage(ctx, chatID, text, kb); err != nil {
		rt.logSend(err, chatID)
	}
}

// edit rewrites the message a button lived on, dropping its keyboard unless a
// new one is supplied.
func (rt *Router) edit(ctx context.Context, ev telegram.Event, text string, kb telegram.Keyboard) {
	if ev.MessageID == 0 {
		rt.replyKB(ctx, ev.ChatID, text, kb)
		return
	}
	if err := rt.Channel.EditMessageText(ctx, ev.ChatID, ev.MessageID, text, kb); err != nil {
		rt.logSend(err, ev.ChatID)
	}
}

func (rt *Router) answer(ctx context.Context, ev telegram.Event, text string) {
	if ev.CallbackID == "" {
		return
	}
	if err := rt.Channel.AnswerCallbackQuery(ctx, ev.CallbackID, text); err != nil {
		rt.logSend(err, ev.ChatID)
	}
}

func (rt *Router) logSend(err error, chatID int64) {
	log.Warn().Err(err).Int64("chat_id", chatID).Msg("outbound message failed")
}

// logger returns an event-scoped logger for flow diagnostics.
func (rt *Router) logger(ev telegram.Event) *zerolog.Logger {
	l := log.With().
		Int64("chat_id", ev.ChatID).
		Str("user_id", ev.UserID).
		Logger()
	return &l
}
