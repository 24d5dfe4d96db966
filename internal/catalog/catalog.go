// Package catalog talks to the external pricing API and narrows its
// records down to genuine giveaways.
package catalog

// Record is one raw catalog entry as returned by the pricing API.
// Prices are integer cents. A Record lives for the duration of one check.
type Record struct {
	// ID is the stable key from the catalog (the JSON object key).
	ID            string `json:"-"`
	Name          string `json:"name"`
	FinalPrice    int    `json:"price"`
	OriginalPrice int    `json:"original_price"`
	DiscountPct   int    `json:"discount"`
}

// Item is a qualified giveaway ready for notification.
type Item struct {
	ID            string
	Name          string
	OriginalPrice int // cents, before the promotion
	URL           string
}

// OriginalDollars renders the pre-promotion price for display.
func (i Item) OriginalDollars() float64 {
	return float64(i.OriginalPrice) / 100
}

func storeURL(id string) string {
	return "https://store.steampowered.com/app/" + id + "/"
}

func fallbackName(id string) string {
	return "App " + id
}
