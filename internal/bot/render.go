// Message texts and card/keyboard rendering shared by the user and admin
// flows.
package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-request-bot/internal/catalog"
	"github.com/tbourn/go-request-bot/internal/domain"
	"github.com/tbourn/go-request-bot/internal/telegram"
)

const (
	msgUnauthorized = "Unauthorized access"

	helpText = `Available commands:

/request <movie title> - Request a movie to be added.
/status <movie title> - Check the status of a requested movie.
/mylist - Show your requests.
/help - Show available commands.`
)

const cardTimeLayout = "2006-01-02 15:04"

// requestCard renders one record as a chat card.
func requestCard(r domain.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Movie: %s\n", r.Title)
	fmt.Fprintf(&b, "User: %s\n", r.RequesterID)
	fmt.Fprintf(&b, "Date: %s\n", r.CreatedAt.UTC().Format(cardTimeLayout))
	fmt.Fprintf(&b, "Status: %s", r.Status)
	if r.Link != nil {
		fmt.Fprintf(&b, "\nLink: %s", *r.Link)
	}
	return b.String()
}

// requestCardKeyboard builds the per-record action buttons. Pending records
// get the two transition buttons; every record gets Details.
func requestCardKeyboard(r domain.Request) telegram.Keyboard {
	var kb telegram.Keyboard
	if r.Status == domain.StatusPending {
		kb = append(kb, []telegram.Button{
			{Text: "Mark Complete", CallbackData: NewAction(VerbComplete, r.ID).Encode()},
			{Text: "Reject", CallbackData: NewAction(VerbReject, r.ID).Encode()},
		})
	}
	kb = append(kb, []telegram.Button{
		{Text: "View Details", CallbackData: NewAction(VerbDetails, r.ID).Encode()},
	})
	return kb
}

// pickKeyboard renders catalog matches as selection buttons plus the
// "request exactly what I typed" fallback. Payloads carry the catalog id
// only; titles are resolved at tap time.
func pickKeyboard(matches []catalog.Entry, typed string) telegram.Keyboard {
	var kb telegram.Keyboard
	for _, e := range matches {
		kb = append(kb, []telegram.Button{{
			Text:         entryLabel(e),
			CallbackData: NewAction(VerbPick, strconv.FormatInt(e.ID, 10)).Encode(),
		}})
	}
	kb = append(kb, []telegram.Button{{
		Text:         fmt.Sprintf("Request %q as typed", typed),
		CallbackData: NewAction(VerbConfirm).Encode(),
	}})
	return kb
}

// entryLabel renders a search result as "Title (year)".
func entryLabel(e catalog.Entry) string {
	if y := releaseYear(e.ReleaseDate); y != "" {
		return fmt.Sprintf("%s (%s)", e.Title, y)
	}
	return e.Title
}

func releaseYear(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	return strconv.Itoa(t.Year())
}

// detailCard renders a stored record enriched with catalog detail. detail may
// be nil when the catalog had nothing (or was unreachable); the stored record
// is always shown.
func detailCard(r domain.Request, d *catalog.Detail) string {
	var b strings.Builder
	b.WriteString(requestCard(r))
	if d == nil {
		if r.CatalogID != nil {
			b.WriteString("\n\nNo extra details available.")
		}
		return b.String()
	}
	b.WriteString("\n")
	if d.ReleaseDate != "" {
		fmt.Fprintf(&b, "\nRelease date: %s", d.ReleaseDate)
	}
	if d.PosterPath != "" {
		fmt.Fprintf(&b, "\nPoster: https://image.tmdb.org/t/p/w500%s", d.PosterPath)
	}
	if d.Overview != "" {
		fmt.Fprintf(&b, "\n\n%s", d.Overview)
	}
	return b.String()
}
