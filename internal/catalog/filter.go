package catalog

import "lootbot/pkg/logx"

// knownFreeToPlay are catalog ids of titles that are free by design
// (CS2, TF2, Dota 2, ...). They occasionally show up with a zero price
// and a 100% "discount" and must never be reported as giveaways.
var knownFreeToPlay = map[string]struct{}{
	"730":     {},
	"440":     {},
	"570":     {},
	"238960":  {},
	"386360":  {},
	"444090":  {},
	"578080":  {},
	"1222670": {},
	"359550":  {},
	"252490":  {},
}

const defaultPriceFloorCents = 100

// Filter selects genuine giveaways: an explicit 100% discount down to a
// zero price. A zero price alone is not enough, it can also mean the
// record simply has no price data.
type Filter struct {
	floor int
	log   logx.Logger
}

func NewFilter(floorCents int, log logx.Logger) *Filter {
	if floorCents <= 0 {
		floorCents = defaultPriceFloorCents
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Filter{floor: floorCents, log: log}
}

// Giveaways returns the qualifying items in source order.
func (f *Filter) Giveaways(records []Record) []Item {
	var out []Item
	for _, rec := range records {
		if rec.DiscountPct != 100 {
			continue
		}
		if rec.FinalPrice != 0 {
			continue
		}
		// When the record reports an original price, it must be above the
		// floor; near-zero "was" prices are rounding artifacts, not deals.
		if rec.OriginalPrice > 0 && rec.OriginalPrice <= f.floor {
			continue
		}
		if _, f2p := knownFreeToPlay[rec.ID]; f2p {
			f.log.Debug("excluding free-to-play title", logx.String("app_id", rec.ID), logx.String("name", rec.Name))
			continue
		}

		name := rec.Name
		if name == "" {
			name = fallbackName(rec.ID)
		}
		out = append(out, Item{
			ID:            rec.ID,
			Name:          name,
			OriginalPrice: rec.OriginalPrice,
			URL:           storeURL(rec.ID),
		})
	}
	return out
}
