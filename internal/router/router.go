// Package router dispatches inbound bot updates to the subscribe and
// manual-check entry points.
package router

import (
	"context"
	"strings"

	"lootbot/internal/cycle"
	"lootbot/internal/transport"
	"lootbot/pkg/logx"
)

// CallbackCheck is the inline-button token for a manual check.
const CallbackCheck = "check_games"

type Registry interface {
	Add(ctx context.Context, chatID int64) error
}

type Cycle interface {
	Run(ctx context.Context) cycle.Result
}

type Router struct {
	adapter  transport.Adapter
	registry Registry
	cycle    Cycle
	times    []string
	log      logx.Logger
}

func New(adapter transport.Adapter, reg Registry, cyc Cycle, times []string, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{adapter: adapter, registry: reg, cycle: cyc, times: times, log: log}
}

// Run consumes updates until ctx is done. Handlers run inline: one update
// at a time, which also keeps manual checks naturally serialized with
// each other.
func (r *Router) Run(ctx context.Context, updates <-chan transport.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case up, ok := <-updates:
			if !ok {
				return
			}
			switch {
			case up.Message != nil:
				r.handleMessage(ctx, up.Message)
			case up.Callback != nil:
				r.handleCallback(ctx, up.Callback)
			}
		}
	}
}

func (r *Router) handleMessage(ctx context.Context, m *transport.Message) {
	cmd := command(m.Text)
	switch cmd {
	case "/start":
		r.subscribe(ctx, m.ChatID)
		opt := &transport.SendOptions{
			ParseMode: transport.ParseModeMarkdown,
			Buttons:   []transport.Button{{Text: "🔍 Check now", Data: CallbackCheck}},
		}
		if _, err := r.adapter.SendText(ctx, m.ChatID, welcomeText(r.times), opt); err != nil {
			r.log.Error("welcome reply failed", logx.Int64("chat_id", m.ChatID), logx.Err(err))
		}

	case "/check":
		r.subscribe(ctx, m.ChatID)
		ref, err := r.adapter.SendText(ctx, m.ChatID, checkingText, nil)
		if err != nil {
			r.log.Error("check reply failed", logx.Int64("chat_id", m.ChatID), logx.Err(err))
			return
		}
		res := r.cycle.Run(ctx)
		r.reply(ctx, ref, summaryText(res))

	default:
		// Not a command we know; stay silent.
	}
}

func (r *Router) handleCallback(ctx context.Context, cb *transport.Callback) {
	// Acknowledge first: the platform expects a prompt answer, and the
	// check below can take a while.
	if err := r.adapter.AnswerCallback(ctx, cb.ID, ""); err != nil {
		r.log.Warn("callback answer failed", logx.Err(err))
	}
	if cb.Data != CallbackCheck {
		return
	}

	r.subscribe(ctx, cb.ChatID)
	ref := transport.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}
	if err := r.adapter.EditText(ctx, ref, checkingText, nil); err != nil {
		// The original message may be too old to edit; fall back to a new one.
		if newRef, serr := r.adapter.SendText(ctx, cb.ChatID, checkingText, nil); serr == nil {
			ref = newRef
		}
	}
	res := r.cycle.Run(ctx)
	r.reply(ctx, ref, summaryText(res))
}

func (r *Router) subscribe(ctx context.Context, chatID int64) {
	if err := r.registry.Add(ctx, chatID); err != nil {
		// Still answer the user; the registration retries on the next command.
		r.log.Error("subscribe failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}

// reply edits the "checking..." message in place with the final status.
func (r *Router) reply(ctx context.Context, ref transport.MessageRef, text string) {
	opt := &transport.SendOptions{ParseMode: transport.ParseModeMarkdown}
	if err := r.adapter.EditText(ctx, ref, text, opt); err != nil {
		if _, serr := r.adapter.SendText(ctx, ref.ChatID, text, opt); serr != nil {
			r.log.Error("status reply failed", logx.Int64("chat_id", ref.ChatID), logx.Err(serr))
		}
	}
}

// command extracts the leading bot command, stripping an @botname suffix.
func command(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return cmd
}
