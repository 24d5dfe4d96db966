// Package notifier fans a giveaway alert out to every recipient.
package notifier

import (
	"context"

	"golang.org/x/time/rate"

	"lootbot/internal/catalog"
	"lootbot/internal/transport"
	"lootbot/pkg/logx"
)

// Sender is the transport subset the notifier needs.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, opt *transport.SendOptions) (transport.MessageRef, error)
}

type Notifier struct {
	sender  Sender
	log     logx.Logger
	limiter *rate.Limiter
}

// New builds a notifier. ratePerSec caps outbound sends so a large
// recipient list does not trip the messaging platform's flood limits.
func New(sender Sender, ratePerSec int, log logx.Logger) *Notifier {
	if ratePerSec <= 0 {
		ratePerSec = 3
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Notifier{
		sender:  sender,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
	}
}

// SendItem delivers one giveaway alert to every recipient, in order.
// A failure for one recipient is logged and skipped; the rest still get
// the message. Returns how many deliveries succeeded.
func (n *Notifier) SendItem(ctx context.Context, item catalog.Item, recipients []int64) int {
	if len(recipients) == 0 {
		return 0
	}

	text := ItemMessage(item)
	opt := &transport.SendOptions{ParseMode: transport.ParseModeMarkdown}

	delivered := 0
	for _, chatID := range recipients {
		if err := n.limiter.Wait(ctx); err != nil {
			// Context gone; remaining recipients are skipped.
			n.log.Warn("broadcast interrupted",
				logx.String("app_id", item.ID), logx.Int("delivered", delivered), logx.Err(err))
			return delivered
		}
		if _, err := n.sender.SendText(ctx, chatID, text, opt); err != nil {
			n.log.Error("delivery failed",
				logx.Int64("chat_id", chatID), logx.String("app_id", item.ID), logx.Err(err))
			continue
		}
		delivered++
	}

	n.log.Info("giveaway broadcast",
		logx.String("app_id", item.ID), logx.String("name", item.Name),
		logx.Int("delivered", delivered), logx.Int("recipients", len(recipients)))
	return delivered
}
