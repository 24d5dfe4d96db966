package router

import (
	"context"
	"strings"
	"testing"

	"lootbot/internal/catalog"
	"lootbot/internal/cycle"
	"lootbot/internal/transport"
	"lootbot/pkg/logx"
)

type fakeAdapter struct {
	sent      []string // texts sent
	edited    []string // texts edited in place
	answered  []string // callback ids acknowledged
	lastOpt   *transport.SendOptions
	sentChats []int64
}

func (a *fakeAdapter) Start(context.Context, chan<- transport.Update) error { return nil }
func (a *fakeAdapter) Stop(context.Context) error                          { return nil }

func (a *fakeAdapter) SendText(_ context.Context, chatID int64, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	a.sent = append(a.sent, text)
	a.sentChats = append(a.sentChats, chatID)
	a.lastOpt = opt
	return transport.MessageRef{ChatID: chatID, MessageID: len(a.sent)}, nil
}

func (a *fakeAdapter) EditText(_ context.Context, _ transport.MessageRef, text string, _ *transport.SendOptions) error {
	a.edited = append(a.edited, text)
	return nil
}

func (a *fakeAdapter) AnswerCallback(_ context.Context, callbackID, _ string) error {
	a.answered = append(a.answered, callbackID)
	return nil
}

type fakeRegistry struct {
	added []int64
}

func (r *fakeRegistry) Add(_ context.Context, chatID int64) error {
	r.added = append(r.added, chatID)
	return nil
}

type fakeCycle struct {
	res   cycle.Result
	calls int
}

func (c *fakeCycle) Run(context.Context) cycle.Result {
	c.calls++
	return c.res
}

func TestStartSubscribesAndSendsWelcome(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	reg := &fakeRegistry{}
	r := New(ad, reg, &fakeCycle{}, []string{"09:00", "19:00"}, logx.Nop())

	r.handleMessage(context.Background(), &transport.Message{ChatID: 42, Text: "/start"})

	if len(reg.added) != 1 || reg.added[0] != 42 {
		t.Fatalf("expected chat 42 registered, got %v", reg.added)
	}
	if len(ad.sent) != 1 || !strings.Contains(ad.sent[0], "subscribed") {
		t.Fatalf("unexpected welcome: %v", ad.sent)
	}
	if !strings.Contains(ad.sent[0], "09:00 and 19:00") {
		t.Fatalf("welcome should list check times:\n%s", ad.sent[0])
	}
	if ad.lastOpt == nil || len(ad.lastOpt.Buttons) != 1 || ad.lastOpt.Buttons[0].Data != CallbackCheck {
		t.Fatalf("expected a check-now button, got %+v", ad.lastOpt)
	}
}

func TestStartStripsBotMention(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	reg := &fakeRegistry{}
	r := New(ad, reg, &fakeCycle{}, nil, logx.Nop())

	r.handleMessage(context.Background(), &transport.Message{ChatID: 1, Text: "/start@lootbot"})
	if len(reg.added) != 1 {
		t.Fatalf("mention-suffixed command not recognized")
	}
}

func TestCheckRunsCycleAndReportsResult(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	cyc := &fakeCycle{res: cycle.Result{
		Candidates: 1,
		NewItems:   []catalog.Item{{ID: "100", Name: "Free Game"}},
		Recipients: 1,
	}}
	r := New(ad, &fakeRegistry{}, cyc, nil, logx.Nop())

	r.handleMessage(context.Background(), &transport.Message{ChatID: 42, Text: "/check"})

	if cyc.calls != 1 {
		t.Fatalf("cycle run %d times, want 1", cyc.calls)
	}
	if len(ad.sent) != 1 || ad.sent[0] != checkingText {
		t.Fatalf("expected a checking placeholder first, got %v", ad.sent)
	}
	if len(ad.edited) != 1 || !strings.Contains(ad.edited[0], "Free Game") {
		t.Fatalf("expected summary edit naming the game, got %v", ad.edited)
	}
}

func TestCallbackAcknowledgesBeforeRunning(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	cyc := &fakeCycle{}
	reg := &fakeRegistry{}
	r := New(ad, reg, cyc, nil, logx.Nop())

	r.handleCallback(context.Background(), &transport.Callback{
		ID: "cb-1", ChatID: 42, MessageID: 7, Data: CallbackCheck,
	})

	if len(ad.answered) != 1 || ad.answered[0] != "cb-1" {
		t.Fatalf("callback not acknowledged: %v", ad.answered)
	}
	if cyc.calls != 1 {
		t.Fatalf("cycle run %d times, want 1", cyc.calls)
	}
	if len(reg.added) != 1 || reg.added[0] != 42 {
		t.Fatalf("callback should register the chat, got %v", reg.added)
	}
}

func TestCallbackIgnoresUnknownToken(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	cyc := &fakeCycle{}
	r := New(ad, &fakeRegistry{}, cyc, nil, logx.Nop())

	r.handleCallback(context.Background(), &transport.Callback{ID: "cb-2", ChatID: 1, Data: "something_else"})

	if len(ad.answered) != 1 {
		t.Fatal("even unknown callbacks must be acknowledged")
	}
	if cyc.calls != 0 {
		t.Fatal("unknown callback must not trigger a check")
	}
}

func TestUnknownCommandIsIgnored(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	reg := &fakeRegistry{}
	r := New(ad, reg, &fakeCycle{}, nil, logx.Nop())

	r.handleMessage(context.Background(), &transport.Message{ChatID: 1, Text: "hello there"})
	r.handleMessage(context.Background(), &transport.Message{ChatID: 1, Text: "/frobnicate"})

	if len(ad.sent) != 0 || len(reg.added) != 0 {
		t.Fatalf("unexpected side effects: sent=%v added=%v", ad.sent, reg.added)
	}
}

func TestSummaryText(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		res  cycle.Result
		want string
	}{
		{"fetch error", cycle.Result{Err: &catalog.FetchError{URL: "x", Status: 500}}, "try again later"},
		{"one new", cycle.Result{Candidates: 1, NewItems: []catalog.Item{{Name: "A"}}}, "Found 1 new giveaway"},
		{"two new", cycle.Result{Candidates: 2, NewItems: []catalog.Item{{Name: "A"}, {Name: "B"}}}, "Found 2 new giveaways"},
		{"all already sent", cycle.Result{Candidates: 3}, "No new -100% promotion"},
		{"nothing on sale", cycle.Result{}, "No real -100% promotion"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := summaryText(tt.res)
			if !strings.Contains(got, tt.want) {
				t.Fatalf("summaryText() = %q, want substring %q", got, tt.want)
			}
		})
	}
}
