package telegram

import (
	"strconv"
	"strings"
)

// EventKind classifies a normalized inbound event.
type EventKind int

const (
	// EventCommand is a message starting with a "/word" command.
	EventCommand EventKind = iota + 1
	// EventText is any other non-empty text message.
	EventText
	// EventButton is an inline-keyboard callback.
	EventButton
)

// Event is the transport-neutral shape the router consumes. It flattens the
// Bot API's message/callback split into one struct keyed by kind.
type Event struct {
	Kind      EventKind
	ChatID    int64
	UserID    string
	MessageID int64

	// Text carries the raw message text (EventText) or the argument tail
	// after the command word (EventCommand).
	Text    string
	Command string

	// CallbackID and CallbackData are set for EventButton.
	CallbackID   string
	CallbackData string
}

// NormalizeUpdate converts a raw update into an Event. The second return is
// false for update types the bot does not handle (edits, channel posts, ...).
func NormalizeUpdate(u Update) (Event, bool) {
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		ev := Event{
			Kind:         EventButton,
			UserID:       strconv.FormatInt(cq.From.ID, 10),
			CallbackID:   cq.ID,
			CallbackData: cq.Data,
		}
		if cq.Message != nil {
			ev.ChatID = cq.Message.Chat.ID
			ev.MessageID = cq.Message.MessageID
		}
		return ev, true

	case u.Message != nil:
		m := u.Message
		text := strings.TrimSpace(m.Text)
		if text == "" {
			return Event{}, false
		}
		ev := Event{
			ChatID:    m.Chat.ID,
			MessageID: m.MessageID,
		}
		if m.From != nil {
			ev.UserID = strconv.FormatInt(m.From.ID, 10)
		}
		if cmd, args, ok := splitCommand(text); ok {
			ev.Kind = EventCommand
			ev.Command = cmd
			ev.Text = args
			return ev, true
		}
		ev.Kind = EventText
		ev.Text = text
		return ev, true
	}
	return Event{}, false
}

// splitCommand parses "/request Dune Part Two" into ("request", "Dune Part
// Two"). A "@botname" suffix on the command word is tolerated and dropped.
func splitCommand(text string) (cmd, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	word := text[1:]
	rest := ""
	if i := strings.IndexAny(word, " \t"); i >= 0 {
		word, rest = word[:i], strings.TrimSpace(word[i+1:])
	}
	if at := strings.IndexByte(word, '@'); at >= 0 {
		word = word[:at]
	}
	if word == "" {
		return "", "", false
	}
	return strings.ToLower(word), rest, true
}
