package engine

import (
	"testing"

	"github.com/daviddao/timebank/pkg/bank"
	"github.com/daviddao/timebank/pkg/model"
	"github.com/daviddao/timebank/pkg/session"
)

func TestMovieScenario(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})
	fund(t, e, 1000)

	res, err := e.Purchase("movie", 200, 30)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 800 || res.Remaining != 1800 {
		t.Fatalf("purchase = %+v", res)
	}
	if err := e.StartConsumption("movie"); err != nil {
		t.Fatal(err)
	}
	var last TickResult
	for i := 0; i < 1800; i++ {
		if last, err = e.TickConsumption(); err != nil {
			t.Fatal(err)
		}
		if last.Stopped && i < 1799 {
			t.Fatalf("stopped early at tick %d", i)
		}
	}
	if !last.Stopped || last.Step.Remaining != 0 {
		t.Fatalf("last tick = %+v", last)
	}
	if e.Session().Active() {
		t.Fatal("session should auto-stop")
	}
	if left, ok := e.Bank()["movie"]; !ok || left != 0 {
		t.Fatal("drained bucket must stay in the bank")
	}
	if e.TotalPoints() != 800 {
		t.Fatal("auto-stop must not charge")
	}
	wantCode(t, e.StartConsumption("movie"), model.CodeEmptyBucket)
}

func TestPurchase_Insufficient(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})
	fund(t, e, 50)
	_, err := e.Purchase("movie", 51, 10)
	wantCode(t, err, model.CodeInsufficientPoints)
	if e.TotalPoints() != 50 || len(e.Bank()) != 0 {
		t.Fatal("refused purchase mutated state")
	}
}

func TestPurchase_Invalid(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})
	fund(t, e, 50)
	_, err := e.Purchase("", 1, 1)
	wantCode(t, err, model.CodeInvalidInput)
	_, err = e.Purchase("x", -1, 1)
	wantCode(t, err, model.CodeInvalidInput)
	_, err = e.Purchase("x", 1, -1)
	wantCode(t, err, model.CodeInvalidInput)
}

func TestPurchase_AccumulatesBucket(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})
	fund(t, e, 100)
	e.Purchase("game", 10, 5)
	res, _ := e.Purchase("game", 10, 5)
	if res.Remaining != 600 {
		t.Fatalf("remaining = %d", res.Remaining)
	}
}

func TestStartConsumption_Unknown(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})
	wantCode(t, e.StartConsumption("never"), model.CodeNotFound)
}

func TestTickConsumption_IdleIsNoop(t *testing.T) {
	e, _, st := newTestEngine(t, Options{})
	before := st.saveCount()
	res, err := e.TickConsumption()
	if err != nil || res.Step != nil {
		t.Fatalf("idle tick: %+v %v", res, err)
	}
	if st.saveCount() != before {
		t.Fatal("no-op tick should not save")
	}
}

func TestPenaltyOverdraft(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{Overdraft: bank.Penalty})
	fund(t, e, 10)
	e.Purchase("game", 5, 0)

	// Penalty allows starting on an empty bucket.
	if err := e.StartConsumption("game"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		res, err := e.TickConsumption()
		if err != nil {
			t.Fatal(err)
		}
		if res.Stopped || res.Step.Penalty != 1 {
			t.Fatalf("penalty tick %d: %+v", i, res)
		}
	}
	if e.TotalPoints() != 2 {
		t.Fatalf("total = %v, want 10-5-3", e.TotalPoints())
	}
	if !e.Session().IsBucket("game") {
		t.Fatal("penalty policy keeps the session running")
	}
	log := e.Transactions()
	last := log[len(log)-1]
	if last.Category != model.CategoryPurchase || last.Delta != -1 || last.Label != "Overdraft: game" {
		t.Fatalf("penalty entry = %+v", last)
	}

	// Overdraft entries are not purchases of the bucket.
	r, err := e.Refund("game")
	if err != nil {
		t.Fatal(err)
	}
	if r.Amount != 5 {
		t.Fatalf("refund = %v, want the 5-point purchase", r.Amount)
	}
}

func TestRefund_LastMatchingPurchase(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})
	fund(t, e, 1000)
	e.Purchase("movie", 200, 30)
	e.Purchase("movie", 150, 20)
	e.Purchase("movies", 99, 1)
	e.StartConsumption("movie")
	e.TickConsumption()

	r, err := e.Refund("movie")
	if err != nil {
		t.Fatal(err)
	}
	if r.Amount != 150 {
		t.Fatalf("refund amount = %v, want the latest movie purchase", r.Amount)
	}
	if r.Forfeited != 3000-1 {
		t.Fatalf("forfeited = %d", r.Forfeited)
	}
	if _, ok := e.Bank()["movie"]; ok {
		t.Fatal("refund should delete the bucket")
	}
	if _, ok := e.Bank()["movies"]; !ok {
		t.Fatal("refund deleted an unrelated bucket")
	}
	if e.Session().Kind == session.Consumption {
		t.Fatal("refund should stop consumption of the bucket")
	}
	if e.TotalPoints() != 1000-200-150-99+150 {
		t.Fatalf("total = %v", e.TotalPoints())
	}
}

func TestRefund_NoPurchaseRecordsZero(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})
	r, err := e.Refund("ghost")
	if err != nil {
		t.Fatal(err)
	}
	if r.Amount != 0 || r.Forfeited != 0 {
		t.Fatalf("refund = %+v", r)
	}
	log := e.Transactions()
	if len(log) != 1 || log[0].Category != model.CategoryRefund || log[0].Delta != 0 {
		t.Fatalf("zero refund entry missing: %+v", log)
	}
	_, err = e.Refund("  ")
	wantCode(t, err, model.CodeInvalidInput)
}

func TestRefund_LegacyLabelMatch(t *testing.T) {
	st := &memStore{body: []byte(`{
		"points": 80,
		"logs": [{"time": "2026-03-01T10:00:00Z", "type": "spend", "name": "Purchase: movie", "points": -20}],
		"bank": {"movie": 600},
		"last_interest_date": "2026-03-10"
	}`)}
	e := Open(st, Options{Clock: newTestClock()})
	r, err := e.Refund("movie")
	if err != nil {
		t.Fatal(err)
	}
	if r.Amount != 20 || r.Forfeited != 600 {
		t.Fatalf("legacy refund = %+v", r)
	}
}

func TestRefund_BucketWithoutPurchase(t *testing.T) {
	st := &memStore{body: []byte(`{
		"points": 10,
		"logs": [],
		"bank": {"x": 600},
		"last_interest_date": "2026-03-10"
	}`)}
	e := Open(st, Options{Clock: newTestClock()})
	if e.Bank()["x"] != 600 {
		t.Fatalf("bank = %v", e.Bank())
	}
	r, err := e.Refund("x")
	if err != nil {
		t.Fatal(err)
	}
	if r.Amount != 0 || r.Forfeited != 600 {
		t.Fatalf("refund = %+v, want 0 points and 600 forfeited seconds", r)
	}
	if _, ok := e.Bank()["x"]; ok {
		t.Fatal("refund should delete the bucket")
	}
	if e.TotalPoints() != 10 {
		t.Fatalf("total = %v, want 10", e.TotalPoints())
	}
	log := e.Transactions()
	if len(log) != 1 || log[0].Category != model.CategoryRefund || log[0].Delta != 0 {
		t.Fatalf("zero refund entry missing: %+v", log)
	}
}

func TestRefund_LegacyLabelMatchesBySubstring(t *testing.T) {
	st := &memStore{body: []byte(`{
		"points": 60,
		"logs": [
			{"time": "2026-03-01T10:00:00Z", "type": "spend", "name": "Purchase: movie", "points": -20},
			{"time": "2026-03-02T10:00:00Z", "type": "spend", "name": "Purchase: movies", "points": -20}
		],
		"bank": {"movie": 600, "movies": 60},
		"last_interest_date": "2026-03-10"
	}`)}
	e := Open(st, Options{Clock: newTestClock()})
	fund(t, e, 100)
	if _, err := e.Purchase("movies", 7, 1); err != nil {
		t.Fatal(err)
	}

	r, err := e.Refund("movie")
	if err != nil {
		t.Fatal(err)
	}
	// The new "movies" purchase carries a ref and is skipped; the legacy
	// one matches by label.
	if r.Amount != 20 {
		t.Fatalf("refund amount = %v, want 20 from the legacy movies entry", r.Amount)
	}
}

func TestCatalog_BuyItem(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})
	fund(t, e, 100)
	if _, err := e.AddStoreItem("game", 40, 30); err != nil {
		t.Fatal(err)
	}
	e.AddStoreItem("game", 60, 45)
	if items := e.StoreItems(); len(items) != 1 || items[0].Price != 60 {
		t.Fatalf("re-adding should replace: %+v", items)
	}
	res, err := e.BuyItem("game")
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 40 || res.Remaining != 45*60 {
		t.Fatalf("buy = %+v", res)
	}
	_, err = e.BuyItem("game")
	wantCode(t, err, model.CodeInsufficientPoints)
	_, err = e.BuyItem("nope")
	wantCode(t, err, model.CodeNotFound)

	if err := e.RemoveStoreItem("game"); err != nil {
		t.Fatal(err)
	}
	wantCode(t, e.RemoveStoreItem("game"), model.CodeNotFound)
	if _, ok := e.Bank()["game"]; !ok {
		t.Fatal("removing the item should keep bought time")
	}
}

func TestCatalog_Validation(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})
	_, err := e.AddStoreItem("", 1, 1)
	wantCode(t, err, model.CodeInvalidInput)
	_, err = e.AddStoreItem("x", 1, 0)
	wantCode(t, err, model.CodeInvalidInput)
	_, err = e.AddReward("x", -1)
	wantCode(t, err, model.CodeInvalidInput)
}

func TestRedeem(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})
	fund(t, e, 300)
	e.AddReward("book", 250)

	r, err := e.Redeem("book")
	if err != nil {
		t.Fatal(err)
	}
	if r.Total != 50 {
		t.Fatalf("total = %v", r.Total)
	}
	log := e.Transactions()
	last := log[len(log)-1]
	if last.Category != model.CategoryRedemption || last.Ref != "book" || last.Delta != -250 {
		t.Fatalf("redemption entry = %+v", last)
	}
	_, err = e.Redeem("book")
	wantCode(t, err, model.CodeInsufficientPoints)
	_, err = e.Redeem("car")
	wantCode(t, err, model.CodeNotFound)

	if err := e.RemoveReward("book"); err != nil {
		t.Fatal(err)
	}
	if len(e.Rewards()) != 0 {
		t.Fatal("reward not removed")
	}
}
