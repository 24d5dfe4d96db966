package router

import (
	"fmt"
	"strings"

	"lootbot/internal/cycle"
)

func welcomeText(times []string) string {
	return "🎮 *Welcome to the Steam giveaway bot!*\n\n" +
		"I watch for *real -100% promotions* — paid games that become " +
		"temporarily free — and notify you every day at " +
		strings.Join(times, " and ") + ".\n\n" +
		"⚡ *What I watch:*\n" +
		"• Paid games dropping to free for a limited time\n" +
		"• Explicit -100% discounts, never missing price data\n" +
		"• Baseline free-to-play titles (CS2, TF2, Dota 2, ...) are excluded\n\n" +
		"🔍 Manual check: use the button below or /check\n\n" +
		"✅ You are now subscribed!"
}

const (
	checkingText = "🔍 Checking for -100% promotions..."
	errorText    = "⚠️ Error checking promotions, try again later."

	noneFoundText = "🎮 No real -100% promotion on Steam right now.\n\n" +
		"ℹ️ I only report paid games that became temporarily free, " +
		"not baseline free-to-play titles."
	noneNewText = "🎮 No new -100% promotion since the last check."
)

// summaryText renders the manual-check reply. The broadcast itself already
// went to every recipient, including the requester; this is the status line.
func summaryText(res cycle.Result) string {
	switch {
	case res.Err != nil:
		return errorText
	case len(res.NewItems) == 1:
		return fmt.Sprintf("✅ Found 1 new giveaway: *%s*", res.NewItems[0].Name)
	case len(res.NewItems) > 1:
		names := make([]string, 0, len(res.NewItems))
		for _, it := range res.NewItems {
			names = append(names, it.Name)
		}
		return fmt.Sprintf("✅ Found %d new giveaways: *%s*", len(res.NewItems), strings.Join(names, "*, *"))
	case res.Candidates > 0:
		return noneNewText
	default:
		return noneFoundText
	}
}
