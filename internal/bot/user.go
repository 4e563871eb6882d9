// User-facing flows: /request with catalog disambiguation, /status, /mylist.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tbourn/go-request-bot/internal/convstate"
	"github.com/tbourn/go-request-bot/internal/domain"
	"github.com/tbourn/go-request-bot/internal/repo"
	"github.com/tbourn/go-request-bot/internal/services"
	"github.com/tbourn/go-request-bot/internal/telegram"
)

// maxPickMatches caps how many catalog matches are offered as buttons.
const maxPickMatches = 5

// cmdRequest starts the request flow: search the catalog for the typed title
// and offer the matches for disambiguation. When the catalog has nothing to
// offer (no match, or unreachable), fall back to a plain confirm button so
// the primary flow never blocks on the catalog.
func (rt *Router) cmdRequest(ctx context.Context, ev telegram.Event) {
	title := strings.TrimSpace(ev.Text)
	if title == "" {
		rt.reply(ctx, ev.ChatID, "Please provide a movie title.")
		return
	}

	matches, err := rt.Catalog.Search(ctx, title)
	switch {
	case err != nil:
		botCatalogLookups.WithLabelValues("search", "error").Inc()
		rt.logger(ev).Warn().Err(err).Msg("catalog search failed, skipping disambiguation")
	case len(matches) == 0:
		botCatalogLookups.WithLabelValues("search", "empty").Inc()
	default:
		botCatalogLookups.WithLabelValues("search", "ok").Inc()
	}

	// The typed title is parked in conversation state; the confirm button
	// itself carries no payload (callback data is size-capped).
	rt.States.Set(convstate.Key{ChatID: ev.ChatID, UserID: ev.UserID}, convstate.Entry{
		Kind:  convstate.KindConfirmTitle,
		Title: title,
	})

	if len(matches) == 0 {
		kb := telegram.Keyboard{{{
			Text:         "Confirm Request",
			CallbackData: NewAction(VerbConfirm).Encode(),
		}}}
		rt.replyKB(ctx, ev.ChatID, fmt.Sprintf("Request %q. Are you sure?", title), kb)
		return
	}

	if len(matches) > maxPickMatches {
		matches = matches[:maxPickMatches]
	}
	rt.replyKB(ctx, ev.ChatID,
		fmt.Sprintf("Found these matches for %q. Pick one, or request exactly what you typed:", title),
		pickKeyboard(matches, title))
}

// actConfirm creates a request for the typed title with no catalog id. The
// title is taken from the conversation-state entry armed by cmdRequest; a
// tap on a keyboard whose entry has expired asks the user to start over.
func (rt *Router) actConfirm(ctx context.Context, ev telegram.Event, act Action) {
	key := convstate.Key{ChatID: ev.ChatID, UserID: ev.UserID}
	entry, ok := rt.States.TakeKind(key, convstate.KindConfirmTitle)
	if !ok {
		rt.edit(ctx, ev, "That confirmation has expired. Please run /request again.", nil)
		return
	}
	rt.createRequest(ctx, ev, entry.Title, nil)
}

// actPick creates a request bound to the chosen catalog entry. The canonical
// title comes from a catalog lookup by id, so the button payload stays small.
func (rt *Router) actPick(ctx context.Context, ev telegram.Event, act Action) {
	id, err := strconv.ParseInt(act.Args[0], 10, 64)
	if err != nil {
		botMalformedActions.Inc()
		rt.logger(ev).Debug().Str("arg", act.Args[0]).Msg("ignoring pick with non-numeric catalog id")
		return
	}

	d, err := rt.Catalog.Get(ctx, id)
	switch {
	case err != nil:
		botCatalogLookups.WithLabelValues("get", "error").Inc()
		rt.logger(ev).Warn().Err(err).Int64("catalog_id", id).Msg("catalog lookup for pick failed")
		rt.edit(ctx, ev, "The catalog is unreachable right now, please try again later.", nil)
		return
	case d == nil:
		botCatalogLookups.WithLabelValues("get", "empty").Inc()
		rt.edit(ctx, ev, "That catalog entry no longer exists. Please run /request again.", nil)
		return
	}
	botCatalogLookups.WithLabelValues("get", "ok").Inc()

	// Picking supersedes the open confirm step for this key.
	rt.States.TakeKind(convstate.Key{ChatID: ev.ChatID, UserID: ev.UserID}, convstate.KindConfirmTitle)
	rt.createRequest(ctx, ev, d.Title, &id)
}

func (rt *Router) createRequest(ctx context.Context, ev telegram.Event, title string, catalogID *int64) {
	r, err := rt.Requests.Create(ctx, ev.UserID, ev.ChatID, title, catalogID)
	switch {
	case err == nil:
		rt.edit(ctx, ev, fmt.Sprintf("Got it! We've added %q to the request list.", r.Title), nil)
	case errors.Is(err, services.ErrDuplicateRequest):
		rt.edit(ctx, ev, fmt.Sprintf("You already have a pending request for %q.", title), nil)
	case errors.Is(err, services.ErrAlreadyAvailable):
		text := fmt.Sprintf("Great news! %q is already available", title)
		var kb telegram.Keyboard
		if r != nil && r.Link != nil {
			text += ": " + *r.Link
			kb = telegram.Keyboard{{{Text: "View Link", URL: *r.Link}}}
		} else {
			text += "."
		}
		rt.edit(ctx, ev, text, kb)
	case errors.Is(err, services.ErrInvalidTitle):
		rt.edit(ctx, ev, "That title doesn't look right. Please try again.", nil)
	default:
		rt.logger(ev).Error().Err(err).Msg("create request failed")
		rt.edit(ctx, ev, "Something went wrong, please try again later.", nil)
	}
}

// cmdStatus reports the current state of the caller's request for a title.
func (rt *Router) cmdStatus(ctx context.Context, ev telegram.Event) {
	title := strings.TrimSpace(ev.Text)
	if title == "" {
		rt.reply(ctx, ev.ChatID, "Please provide a movie title.")
		return
	}

	r, err := rt.Requests.StatusOf(ctx, ev.UserID, title)
	if err != nil {
		if errors.Is(err, services.ErrRequestNotFound) {
			rt.reply(ctx, ev.ChatID, fmt.Sprintf("We couldn't find a request for %q under your account.", title))
			return
		}
		rt.logger(ev).Error().Err(err).Msg("status lookup failed")
		rt.reply(ctx, ev.ChatID, "Something went wrong, please try again later.")
		return
	}

	switch {
	case r.Available && r.Link != nil:
		kb := telegram.Keyboard{{{Text: "View Link", URL: *r.Link}}}
		rt.replyKB(ctx, ev.ChatID,
			fmt.Sprintf("Great news! %q is available here: %s", r.Title, *r.Link), kb)
	case r.Status == domain.StatusRejected:
		rt.reply(ctx, ev.ChatID, fmt.Sprintf("Your request for %q was declined.", r.Title))
	default:
		rt.reply(ctx, ev.ChatID, fmt.Sprintf("Your request for %q is still pending.", r.Title))
	}
}

// cmdMyList lists the caller's own requests, newest first, one card each.
func (rt *Router) cmdMyList(ctx context.Context, ev telegram.Event) {
	reqs, err := rt.Requests.List(ctx, repo.Filter{RequesterID: ev.UserID})
	if err != nil {
		rt.logger(ev).Error().Err(err).Msg("mylist failed")
		rt.reply(ctx, ev.ChatID, "Something went wrong, please try again later.")
		return
	}
	if len(reqs) == 0 {
		rt.reply(ctx, ev.ChatID, "You have no requests yet. Use /request <movie title> to add one.")
		return
	}
	for _, r := range reqs {
		var kb telegram.Keyboard
		if r.Link != nil {
			kb = telegram.Keyboard{{{Text: "View Link", URL: *r.Link}}}
		}
		rt.replyKB(ctx, ev.ChatID, requestCard(r), kb)
	}
}
