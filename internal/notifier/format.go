package notifier

import (
	"fmt"

	"lootbot/internal/catalog"
)

// ItemMessage renders the alert for one giveaway (Markdown parse mode).
func ItemMessage(it catalog.Item) string {
	msg := "🎮 *New -100% promotion on Steam!*\n\n" +
		fmt.Sprintf("🎯 *%s*\n", it.Name)
	if it.OriginalPrice > 0 {
		msg += fmt.Sprintf("💰 Temporarily free (normally $%.2f)\n", it.OriginalDollars())
	} else {
		msg += "💰 Temporarily free\n"
	}
	msg += fmt.Sprintf("🔗 [Grab it now](%s)\n\n", it.URL) +
		"⚡ *Limited-time promotion!*"
	return msg
}
