// Admin triage flow: listing, filtering, and per-record actions on top of
// the lifecycle engine. Every entry point here is behind the operator
// allow-list gate in the router.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tbourn/go-request-bot/internal/catalog"
	"github.com/tbourn/go-request-bot/internal/convstate"
	"github.com/tbourn/go-request-bot/internal/domain"
	"github.com/tbourn/go-request-bot/internal/repo"
	"github.com/tbourn/go-request-bot/internal/services"
	"github.com/tbourn/go-request-bot/internal/telegram"
)

// cmdAdmin shows the admin menu.
func (rt *Router) cmdAdmin(ctx context.Context, ev telegram.Event) {
	if !rt.requireAdmin(ctx, ev) {
		return
	}
	kb := telegram.Keyboard{
		{{Text: "List Requests", CallbackData: NewAction(VerbMenu, "list").Encode()}},
		{{Text: "Filter Requests", CallbackData: NewAction(VerbMenu, "filter").Encode()}},
	}
	rt.replyKB(ctx, ev.ChatID, "Admin Menu", kb)
}

// cmdComplete completes the newest pending request for a title without going
// through the card keyboard: /complete <movie title> <link>. The link is the
// final whitespace-separated field so the title may contain spaces.
func (rt *Router) cmdComplete(ctx context.Context, ev telegram.Event) {
	if !rt.requireAdmin(ctx, ev) {
		return
	}
	args := strings.TrimSpace(ev.Text)
	i := strings.LastIndexAny(args, " \t")
	if i < 0 {
		rt.reply(ctx, ev.ChatID, "Usage: /complete <movie title> <link>")
		return
	}
	title := strings.TrimSpace(args[:i])
	link := args[i+1:]
	if title == "" {
		rt.reply(ctx, ev.ChatID, "Usage: /complete <movie title> <link>")
		return
	}

	r, err := rt.Requests.CompleteByTitle(ctx, title, link)
	switch {
	case err == nil:
		rt.reply(ctx, ev.ChatID, fmt.Sprintf("Link added for %q.", r.Title))
	case errors.Is(err, services.ErrRequestNotFound):
		rt.reply(ctx, ev.ChatID, fmt.Sprintf("No pending request for %q.", title))
	default:
		rt.logger(ev).Error().Err(err).Msg("complete by title failed")
		rt.reply(ctx, ev.ChatID, "Something went wrong, please try again later.")
	}
}

// cmdReject rejects the newest pending request for a title: /reject <title>.
func (rt *Router) cmdReject(ctx context.Context, ev telegram.Event) {
	if !rt.requireAdmin(ctx, ev) {
		return
	}
	title := strings.TrimSpace(ev.Text)
	if title == "" {
		rt.reply(ctx, ev.ChatID, "Usage: /reject <movie title>")
		return
	}

	r, err := rt.Requests.RejectByTitle(ctx, title)
	switch {
	case err == nil:
		rt.reply(ctx, ev.ChatID, fmt.Sprintf("Request for %q rejected.", r.Title))
	case errors.Is(err, services.ErrRequestNotFound):
		rt.reply(ctx, ev.ChatID, fmt.Sprintf("No pending request for %q.", title))
	default:
		rt.logger(ev).Error().Err(err).Msg("reject by title failed")
		rt.reply(ctx, ev.ChatID, "Something went wrong, please try again later.")
	}
}

// actMenu expands an admin submenu in place.
func (rt *Router) actMenu(ctx context.Context, ev telegram.Event, act Action) {
	switch act.Args[0] {
	case "list":
		kb := telegram.Keyboard{
			{{Text: "All", CallbackData: NewAction(VerbList, "all").Encode()}},
			{{Text: "Pending", CallbackData: NewAction(VerbList, domain.StatusPending).Encode()}},
			{{Text: "Completed", CallbackData: NewAction(VerbList, domain.StatusCompleted).Encode()}},
			{{Text: "Rejected", CallbackData: NewAction(VerbList, domain.StatusRejected).Encode()}},
		}
		rt.edit(ctx, ev, "List which requests?", kb)
	case "filter":
		kb := telegram.Keyboard{
			{{Text: "Movie Title", CallbackData: NewAction(VerbFilter, "title").Encode()}},
			{{Text: "Requester ID", CallbackData: NewAction(VerbFilter, "requester").Encode()}},
			{{Text: "Pending", CallbackData: NewAction(VerbFilter, domain.StatusPending).Encode()}},
			{{Text: "Completed", CallbackData: NewAction(VerbFilter, domain.StatusCompleted).Encode()}},
			{{Text: "Rejected", CallbackData: NewAction(VerbFilter, domain.StatusRejected).Encode()}},
		}
		rt.edit(ctx, ev, "Filter Option", kb)
	default:
		rt.logger(ev).Debug().Str("menu", act.Args[0]).Msg("ignoring unknown admin submenu")
	}
}

// actList renders the selected listing, one card per record, newest first.
func (rt *Router) actList(ctx context.Context, ev telegram.Event, act Action) {
	var f repo.Filter
	switch scope := act.Args[0]; scope {
	case "all":
	case domain.StatusPending, domain.StatusCompleted, domain.StatusRejected:
		f.Status = scope
	default:
		rt.logger(ev).Debug().Str("scope", scope).Msg("ignoring unknown list scope")
		return
	}
	rt.renderListing(ctx, ev, f)
}

// actComplete opens the await-link step for a pending record and prompts the
// operator for the fulfillment link.
func (rt *Router) actComplete(ctx context.Context, ev telegram.Event, act Action) {
	r, err := rt.Requests.Get(ctx, act.Args[0])
	if err != nil {
		if errors.Is(err, services.ErrRequestNotFound) {
			rt.edit(ctx, ev, "That request no longer exists.", nil)
			return
		}
		rt.logger(ev).Error().Err(err).Msg("complete lookup failed")
		rt.edit(ctx, ev, "Something went wrong, please try again later.", nil)
		return
	}
	if r.Terminal() {
		rt.edit(ctx, ev, fmt.Sprintf("Request for %q is already %s.", r.Title, r.Status), nil)
		return
	}

	rt.States.Set(convstate.Key{ChatID: ev.ChatID, UserID: ev.UserID}, convstate.Entry{
		Kind:      convstate.KindAwaitLink,
		RequestID: r.ID,
		Title:     r.Title,
	})
	rt.edit(ctx, ev, fmt.Sprintf("Provide the link for %q", r.Title), nil)
}

// finishAwaitLink consumes the operator's free-text reply as the fulfillment
// link and completes the transition. The state entry was already taken;
// failures are reported, not re-armed.
func (rt *Router) finishAwaitLink(ctx context.Context, ev telegram.Event, entry convstate.Entry) {
	link := strings.TrimSpace(ev.Text)
	r, err := rt.Requests.Complete(ctx, entry.RequestID, link)
	switch {
	case err == nil:
		rt.reply(ctx, ev.ChatID, fmt.Sprintf("Link added for %q.", r.Title))
	case errors.Is(err, services.ErrRequestNotFound):
		rt.reply(ctx, ev.ChatID, fmt.Sprintf("No pending request for %q anymore.", entry.Title))
	case errors.Is(err, services.ErrInvalidLink):
		rt.reply(ctx, ev.ChatID, "That link looks empty. Start over with Mark Complete.")
	default:
		rt.logger(ev).Error().Err(err).Str("request_id", entry.RequestID).Msg("complete failed")
		rt.reply(ctx, ev.ChatID, "Something went wrong, please try again later.")
	}
}

// actReject rejects the record and redisplays the pending list.
func (rt *Router) actReject(ctx context.Context, ev telegram.Event, act Action) {
	r, err := rt.Requests.Reject(ctx, act.Args[0])
	switch {
	case err == nil:
		rt.edit(ctx, ev, fmt.Sprintf("Request for %q rejected.", r.Title), nil)
	case errors.Is(err, services.ErrRequestNotFound):
		rt.edit(ctx, ev, "That request no longer exists or is already completed.", nil)
		return
	default:
		rt.logger(ev).Error().Err(err).Msg("reject failed")
		rt.edit(ctx, ev, "Something went wrong, please try again later.", nil)
		return
	}
	rt.renderListing(ctx, ev, repo.Filter{Status: domain.StatusPending})
}

// actDetails shows the stored record, enriched with catalog data when the
// record carries a catalog id. Catalog failure degrades to the bare record.
func (rt *Router) actDetails(ctx context.Context, ev telegram.Event, act Action) {
	r, err := rt.Requests.Get(ctx, act.Args[0])
	if err != nil {
		if errors.Is(err, services.ErrRequestNotFound) {
			rt.edit(ctx, ev, "That request no longer exists.", nil)
			return
		}
		rt.logger(ev).Error().Err(err).Msg("details lookup failed")
		rt.edit(ctx, ev, "Something went wrong, please try again later.", nil)
		return
	}

	var detail *catalog.Detail
	if r.CatalogID != nil {
		d, cerr := rt.Catalog.Get(ctx, *r.CatalogID)
		switch {
		case cerr != nil:
			botCatalogLookups.WithLabelValues("get", "error").Inc()
			rt.logger(ev).Warn().Err(cerr).Int64("catalog_id", *r.CatalogID).Msg("catalog detail failed, showing stored record only")
		case d == nil:
			botCatalogLookups.WithLabelValues("get", "empty").Inc()
		default:
			botCatalogLookups.WithLabelValues("get", "ok").Inc()
			detail = d
		}
	}
	rt.reply(ctx, ev.ChatID, detailCard(*r, detail))
}

// actFilter either dispatches a status filter immediately or opens the
// await-filter-value step for free-text filters.
func (rt *Router) actFilter(ctx context.Context, ev telegram.Event, act Action) {
	switch kind := act.Args[0]; kind {
	case domain.StatusPending, domain.StatusCompleted, domain.StatusRejected:
		rt.renderListing(ctx, ev, repo.Filter{Status: kind})
	case "title":
		rt.States.Set(convstate.Key{ChatID: ev.ChatID, UserID: ev.UserID}, convstate.Entry{
			Kind:       convstate.KindAwaitFilterValue,
			FilterKind: "title",
		})
		rt.edit(ctx, ev, "Please provide a movie title to search for.", nil)
	case "requester":
		rt.States.Set(convstate.Key{ChatID: ev.ChatID, UserID: ev.UserID}, convstate.Entry{
			Kind:       convstate.KindAwaitFilterValue,
			FilterKind: "requester",
		})
		rt.edit(ctx, ev, "Please provide a requester ID to search for.", nil)
	default:
		rt.logger(ev).Debug().Str("kind", kind).Msg("ignoring unknown filter kind")
	}
}

// finishAwaitFilter consumes the free-text filter value and renders the
// matching records.
func (rt *Router) finishAwaitFilter(ctx context.Context, ev telegram.Event, entry convstate.Entry) {
	value := strings.TrimSpace(ev.Text)
	var f repo.Filter
	switch entry.FilterKind {
	case "title":
		f.Title = value
	case "requester":
		f.RequesterID = value
	default:
		return
	}
	rt.renderListing(ctx, ev, f)
}

// renderListing sends one card per matching record, newest first. Button
// events get their source message edited with the outcome headline so the
// tapped keyboard never goes stale.
func (rt *Router) renderListing(ctx context.Context, ev telegram.Event, f repo.Filter) {
	reqs, err := rt.Requests.List(ctx, f)
	if err != nil {
		rt.logger(ev).Error().Err(err).Msg("listing failed")
		rt.reply(ctx, ev.ChatID, "Something went wrong, please try again later.")
		return
	}
	if len(reqs) == 0 {
		rt.reply(ctx, ev.ChatID, "No requests found")
		return
	}
	for _, r := range reqs {
		rt.replyKB(ctx, ev.ChatID, requestCard(r), requestCardKeyboard(r))
	}
}
