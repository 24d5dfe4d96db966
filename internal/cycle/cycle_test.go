package cycle

import (
	"context"
	"errors"
	"testing"

	"lootbot/internal/catalog"
	"lootbot/pkg/logx"
)

type fakeFetcher struct {
	records []catalog.Record
	err     error
	calls   int
}

func (f *fakeFetcher) Fetch(context.Context) ([]catalog.Record, error) {
	f.calls++
	return f.records, f.err
}

type memLedger struct {
	sent      map[string]string
	recordErr error
	records   int
}

func newMemLedger() *memLedger { return &memLedger{sent: map[string]string{}} }

func (l *memLedger) Contains(id string) bool {
	_, ok := l.sent[id]
	return ok
}

func (l *memLedger) Record(id, name string) error {
	l.records++
	l.sent[id] = name
	return l.recordErr
}

type memRegistry struct {
	ids []int64
	err error
}

func (r *memRegistry) List(context.Context) ([]int64, error) { return r.ids, r.err }

type recordingNotifier struct {
	sent []string // "<appID>-><chatID>" per delivery attempt
}

func (n *recordingNotifier) SendItem(_ context.Context, item catalog.Item, recipients []int64) int {
	for _, chatID := range recipients {
		n.sent = append(n.sent, item.ID+"->"+string(rune('0'+chatID)))
	}
	return len(recipients)
}

func newRunner(f *fakeFetcher, led *memLedger, reg *memRegistry, notif *recordingNotifier) *Runner {
	return New(f, catalog.NewFilter(0, logx.Nop()), led, reg, notif, logx.Nop())
}

func TestRunNotifiesOnlyGiveaways(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{records: []catalog.Record{
		{ID: "100", Name: "Free Game", FinalPrice: 0, DiscountPct: 100, OriginalPrice: 1999},
		{ID: "200", Name: "Paid Game", FinalPrice: 500},
	}}
	led := newMemLedger()
	notif := &recordingNotifier{}
	r := newRunner(fetcher, led, &memRegistry{ids: []int64{1, 2}}, notif)

	res := r.Run(context.Background())
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(res.NewItems) != 1 || res.NewItems[0].ID != "100" {
		t.Fatalf("expected exactly item 100, got %+v", res.NewItems)
	}
	if res.Recipients != 2 {
		t.Fatalf("Recipients = %d, want 2", res.Recipients)
	}
	if len(notif.sent) != 2 {
		t.Fatalf("expected 2 deliveries, got %v", notif.sent)
	}
	if !led.Contains("100") {
		t.Fatal("item 100 not recorded")
	}
	if led.Contains("200") {
		t.Fatal("item 200 must never be recorded")
	}
}

func TestRunSuppressesAlreadyNotified(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{records: []catalog.Record{
		{ID: "100", Name: "Free Game", FinalPrice: 0, DiscountPct: 100, OriginalPrice: 1999},
	}}
	led := newMemLedger()
	led.sent["100"] = "Free Game"
	notif := &recordingNotifier{}
	r := newRunner(fetcher, led, &memRegistry{ids: []int64{1}}, notif)

	res := r.Run(context.Background())
	if len(res.NewItems) != 0 {
		t.Fatalf("expected no new items, got %+v", res.NewItems)
	}
	if res.Candidates != 1 {
		t.Fatalf("Candidates = %d, want 1", res.Candidates)
	}
	if len(notif.sent) != 0 {
		t.Fatalf("expected no deliveries, got %v", notif.sent)
	}
}

func TestRunIdempotentAcrossPasses(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{records: []catalog.Record{
		{ID: "100", Name: "Free Game", FinalPrice: 0, DiscountPct: 100, OriginalPrice: 1999},
	}}
	led := newMemLedger()
	notif := &recordingNotifier{}
	r := newRunner(fetcher, led, &memRegistry{ids: []int64{1}}, notif)

	first := r.Run(context.Background())
	if len(first.NewItems) != 1 {
		t.Fatalf("first pass: expected 1 new item, got %d", len(first.NewItems))
	}

	second := r.Run(context.Background())
	if len(second.NewItems) != 0 {
		t.Fatalf("second pass with unchanged catalog: expected 0 new items, got %d", len(second.NewItems))
	}
	if led.records != 1 {
		t.Fatalf("Record called %d times, want 1", led.records)
	}
}

func TestRunFetchFailureTouchesNothing(t *testing.T) {
	t.Parallel()
	fetchErr := &catalog.FetchError{URL: "http://example.invalid", Status: 502}
	fetcher := &fakeFetcher{err: fetchErr}
	led := newMemLedger()
	notif := &recordingNotifier{}
	r := newRunner(fetcher, led, &memRegistry{ids: []int64{1}}, notif)

	res := r.Run(context.Background())
	if !errors.Is(res.Err, fetchErr) {
		t.Fatalf("Err = %v, want the fetch error", res.Err)
	}
	if len(res.NewItems) != 0 {
		t.Fatalf("expected no new items, got %d", len(res.NewItems))
	}
	if led.records != 0 {
		t.Fatal("ledger must be untouched on fetch failure")
	}
	if len(notif.sent) != 0 {
		t.Fatal("nothing must be sent on fetch failure")
	}
}

func TestRunRecordsOncePerItemDespiteDeliveryFailures(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{records: []catalog.Record{
		{ID: "100", Name: "Free Game", FinalPrice: 0, DiscountPct: 100, OriginalPrice: 1999},
	}}
	led := newMemLedger()
	// Notifier that fails for the first recipient but reaches the second.
	notif := &partialNotifier{failChat: 1}
	r := New(fetcher, catalog.NewFilter(0, logx.Nop()), led, &memRegistry{ids: []int64{1, 2}}, notif, logx.Nop())

	r.Run(context.Background())
	if got := notif.delivered; len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected delivery to chat 2 only, got %v", got)
	}
	if led.records != 1 {
		t.Fatalf("Record called %d times, want 1", led.records)
	}
}

func TestRunLedgerWriteFailureIsNonFatal(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{records: []catalog.Record{
		{ID: "100", Name: "Free Game", FinalPrice: 0, DiscountPct: 100, OriginalPrice: 1999},
	}}
	led := newMemLedger()
	led.recordErr = errors.New("disk full")
	notif := &recordingNotifier{}
	r := newRunner(fetcher, led, &memRegistry{ids: []int64{1}}, notif)

	res := r.Run(context.Background())
	if res.Err != nil {
		t.Fatalf("a ledger write failure must not fail the pass: %v", res.Err)
	}
	if len(res.NewItems) != 1 {
		t.Fatalf("expected the item to still be reported, got %d", len(res.NewItems))
	}
}

type partialNotifier struct {
	failChat  int64
	delivered []int64
}

func (n *partialNotifier) SendItem(_ context.Context, _ catalog.Item, recipients []int64) int {
	count := 0
	for _, chatID := range recipients {
		if chatID == n.failChat {
			continue
		}
		n.delivered = append(n.delivered, chatID)
		count++
	}
	return count
}
