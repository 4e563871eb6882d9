package telegram

import "testing"

func TestNormalizeUpdate_Command(t *testing.T) {
	cases := map[string]struct {
		text     string
		wantCmd  string
		wantText string
	}{
		"bare":           {"/admin", "admin", ""},
		"with args":      {"/request Dune Part Two", "request", "Dune Part Two"},
		"botname suffix": {"/request@movies_bot Dune", "request", "Dune"},
		"upper cased":    {"/REQUEST Dune", "request", "Dune"},
		"padded":         {"  /status Dune  ", "status", "Dune"},
		"tab separator":  {"/request\tDune", "request", "Dune"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			u := Update{Message: &Message{
				MessageID: 5,
				From:      &User{ID: 42},
				Chat:      Chat{ID: 100},
				Text:      tc.text,
			}}
			ev, ok := NormalizeUpdate(u)
			if !ok {
				t.Fatalf("update dropped")
			}
			if ev.Kind != EventCommand || ev.Command != tc.wantCmd || ev.Text != tc.wantText {
				t.Fatalf("got kind=%d cmd=%q text=%q", ev.Kind, ev.Command, ev.Text)
			}
			if ev.ChatID != 100 || ev.UserID != "42" || ev.MessageID != 5 {
				t.Fatalf("identity fields: %+v", ev)
			}
		})
	}
}

func TestNormalizeUpdate_Text(t *testing.T) {
	u := Update{Message: &Message{
		From: &User{ID: 42},
		Chat: Chat{ID: 100},
		Text: "  http://example.org/dune  ",
	}}
	ev, ok := NormalizeUpdate(u)
	if !ok || ev.Kind != EventText {
		t.Fatalf("got %+v ok=%v", ev, ok)
	}
	if ev.Text != "http://example.org/dune" {
		t.Fatalf("text not trimmed: %q", ev.Text)
	}
}

func TestNormalizeUpdate_Button(t *testing.T) {
	u := Update{CallbackQuery: &CallbackQuery{
		ID:   "cb1",
		From: User{ID: 42},
		Message: &Message{
			MessageID: 7,
			Chat:      Chat{ID: 100},
		},
		Data: "details:r1",
	}}
	ev, ok := NormalizeUpdate(u)
	if !ok || ev.Kind != EventButton {
		t.Fatalf("got %+v ok=%v", ev, ok)
	}
	if ev.CallbackID != "cb1" || ev.CallbackData != "details:r1" {
		t.Fatalf("callback fields: %+v", ev)
	}
	if ev.ChatID != 100 || ev.MessageID != 7 || ev.UserID != "42" {
		t.Fatalf("identity fields: %+v", ev)
	}
}

func TestNormalizeUpdate_ButtonWithoutMessage(t *testing.T) {
	u := Update{CallbackQuery: &CallbackQuery{ID: "cb1", From: User{ID: 42}, Data: "x"}}
	ev, ok := NormalizeUpdate(u)
	if !ok || ev.ChatID != 0 || ev.MessageID != 0 {
		t.Fatalf("got %+v ok=%v", ev, ok)
	}
}

func TestNormalizeUpdate_Dropped(t *testing.T) {
	cases := map[string]Update{
		"empty update": {},
		"empty text":   {Message: &Message{Chat: Chat{ID: 1}, Text: "   "}},
	}
	for name, u := range cases {
		t.Run(name, func(t *testing.T) {
			if _, ok := NormalizeUpdate(u); ok {
				t.Fatalf("update should be dropped")
			}
		})
	}
}

func Test_splitCommand(t *testing.T) {
	cases := map[string]struct {
		in     string
		cmd    string
		args   string
		wantOK bool
	}{
		"plain":        {"/request Dune", "request", "Dune", true},
		"no args":      {"/mylist", "mylist", "", true},
		"at suffix":    {"/mylist@bot", "mylist", "", true},
		"not command":  {"hello /request", "", "", false},
		"lone slash":   {"/", "", "", false},
		"slash at":     {"/@bot", "", "", false},
		"args trimmed": {"/request   Dune  ", "request", "Dune", true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cmd, args, ok := splitCommand(tc.in)
			if ok != tc.wantOK || cmd != tc.cmd || args != tc.args {
				t.Fatalf("splitCommand(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tc.in, cmd, args, ok, tc.cmd, tc.args, tc.wantOK)
			}
		})
	}
}
