package engine

import (
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/daviddao/timebank/pkg/bank"
	"github.com/daviddao/timebank/pkg/model"
	"github.com/daviddao/timebank/pkg/session"
)

// Ledger labels.
const (
	purchasePrefix  = "Purchase: "
	overdraftPrefix = "Overdraft: "
	refundPrefix    = "Refund: "
	redeemPrefix    = "Redeem: "
	// overdraftRef marks penalty entries so they never look like a purchase
	// of the bucket they drained.
	overdraftRef = "overdraft:"
)

// PurchaseResult is the outcome of Purchase and BuyItem.
type PurchaseResult struct {
	Bucket    string  `json:"bucket"`
	Price     int     `json:"price"`
	Remaining int64   `json:"remaining_seconds"`
	Total     float64 `json:"total"`
}

// Purchase converts price points into minutes on the named bucket.
func (e *Engine) Purchase(bucket string, price, minutes int) (PurchaseResult, error) {
	var res PurchaseResult
	err := e.mutate("purchase", func(now time.Time) (bool, error) {
		var err error
		res, err = e.purchaseLocked(now, bucket, price, minutes)
		return err == nil, err
	})
	return res, err
}

func (e *Engine) purchaseLocked(now time.Time, bucket string, price, minutes int) (PurchaseResult, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return PurchaseResult{}, model.NewError(model.CodeInvalidInput, "bucket name is empty")
	}
	if price < 0 || minutes < 0 {
		return PurchaseResult{}, model.NewError(model.CodeInvalidInput, "price and minutes must not be negative")
	}
	if total := e.ledger.Total(); total < float64(price) {
		return PurchaseResult{}, model.Errorf(model.CodeInsufficientPoints,
			"%s costs %d points, balance is %s", bucket, price, model.FormatPoints(total, 2))
	}
	e.ledger.Record(now, model.CategoryPurchase, purchasePrefix+bucket, bucket, -float64(price))
	left := e.bank.Credit(bucket, minutes)
	return PurchaseResult{Bucket: bucket, Price: price, Remaining: left, Total: e.ledger.Total()}, nil
}

// Bank returns a copy of the time bank.
func (e *Engine) Bank() map[string]int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bank.Snapshot()
}

// StartConsumption binds the session clock to a bucket, stopping any other
// timer.
func (e *Engine) StartConsumption(bucket string) error {
	return e.mutate("start_consumption", func(time.Time) (bool, error) {
		left, ok := e.bank.Remaining(bucket)
		if !ok {
			return false, model.Errorf(model.CodeNotFound, "no time bank bucket %q", bucket)
		}
		if left <= 0 && e.opts.Overdraft != bank.Penalty {
			return false, model.Errorf(model.CodeEmptyBucket, "bucket %q is empty", bucket)
		}
		prev := e.session.StartConsumption(bucket)
		if prev.Active() && !prev.IsBucket(bucket) {
			e.log.Info("timer replaced", zap.String("previous", string(prev.Kind)))
		}
		return false, nil
	})
}

// TickConsumption drains one second from the active consumption bucket. It
// does nothing unless a consumption timer is running.
func (e *Engine) TickConsumption() (TickResult, error) {
	res := TickResult{Kind: session.Consumption}
	err := e.mutate("tick_consumption", func(now time.Time) (bool, error) {
		if e.session.Kind != session.Consumption {
			return false, nil
		}
		return e.tickConsumptionLocked(now, &res), nil
	})
	return res, err
}

func (e *Engine) tickConsumptionLocked(now time.Time, res *TickResult) bool {
	name := e.session.Bucket
	before, ok := e.bank.Remaining(name)
	if !ok {
		e.session.Stop(session.Consumption)
		res.Stopped = true
		return false
	}
	step := e.bank.Consume(name, e.opts.Overdraft)
	res.Step = &step
	if step.Penalty > 0 {
		e.ledger.Record(now, model.CategoryPurchase, overdraftPrefix+name, overdraftRef+name, -step.Penalty)
	}
	if step.Stopped {
		e.session.Stop(session.Consumption)
		res.Stopped = true
		e.log.Info("bucket empty, consumption stopped", zap.String("bucket", name))
	}
	return before > 0 || step.Penalty > 0
}

// StopConsumption stops the consumption timer if one is running.
func (e *Engine) StopConsumption() error {
	return e.mutate("stop_consumption", func(time.Time) (bool, error) {
		e.session.Stop(session.Consumption)
		return false, nil
	})
}

// RefundResult is the outcome of Refund.
type RefundResult struct {
	Bucket string `json:"bucket"`
	// Amount is the refunded points; zero when no purchase matched.
	Amount float64 `json:"amount"`
	// Forfeited is the seconds left in the bucket when it was deleted.
	Forfeited int64   `json:"forfeited_seconds"`
	Total     float64 `json:"total"`
}

// Refund returns the price of the latest purchase of a bucket and deletes
// the bucket. Only the most recent purchase is refunded, however many were
// made; with none on record the refund is zero and still recorded.
//
// Purchases that carry a ref match the bucket exactly. Older entries have
// no ref and match when their label contains the bucket name, so a legacy
// "Purchase: movies" entry is refunded for "movie". Whether that substring
// rule should apply to new entries too is still open with the product
// owners; until they decide, only legacy entries use it.
func (e *Engine) Refund(bucket string) (RefundResult, error) {
	var res RefundResult
	err := e.mutate("refund", func(now time.Time) (bool, error) {
		bucket = strings.TrimSpace(bucket)
		if bucket == "" {
			return false, model.NewError(model.CodeInvalidInput, "bucket name is empty")
		}
		var amount float64
		if p, ok := e.ledger.LastMatching(purchaseOf(bucket)); ok {
			amount = math.Abs(p.Delta)
		}
		e.ledger.Record(now, model.CategoryRefund, refundPrefix+bucket, bucket, amount)
		res = RefundResult{Bucket: bucket, Amount: amount, Forfeited: e.bank.Delete(bucket)}
		if e.session.IsBucket(bucket) {
			e.session.Stop(session.Consumption)
		}
		res.Total = e.ledger.Total()
		return true, nil
	})
	return res, err
}

// purchaseOf matches purchase entries for bucket. Entries written before
// refs existed are matched by their label.
func purchaseOf(bucket string) func(model.Transaction) bool {
	return func(t model.Transaction) bool {
		if t.Category != model.CategoryPurchase {
			return false
		}
		if t.Ref != "" {
			return t.Ref == bucket
		}
		return strings.Contains(t.Label, bucket)
	}
}

// ---------------------------------------------------------------------------
// Store catalog
// ---------------------------------------------------------------------------

// AddStoreItem adds or replaces a catalog item.
func (e *Engine) AddStoreItem(name string, price, minutes int) (model.StoreItem, error) {
	item := model.StoreItem{Name: strings.TrimSpace(name), Price: price, Minutes: minutes}
	err := e.mutate("add_store_item", func(time.Time) (bool, error) {
		if item.Name == "" {
			return false, model.NewError(model.CodeInvalidInput, "item name is empty")
		}
		if price < 0 || minutes <= 0 {
			return false, model.NewError(model.CodeInvalidInput, "price must not be negative and minutes must be positive")
		}
		for i := range e.storeItems {
			if e.storeItems[i].Name == item.Name {
				e.storeItems[i] = item
				return true, nil
			}
		}
		e.storeItems = append(e.storeItems, item)
		return true, nil
	})
	return item, err
}

// RemoveStoreItem drops a catalog item. Buckets bought from it remain.
func (e *Engine) RemoveStoreItem(name string) error {
	return e.mutate("remove_store_item", func(time.Time) (bool, error) {
		for i := range e.storeItems {
			if e.storeItems[i].Name == name {
				e.storeItems = append(e.storeItems[:i], e.storeItems[i+1:]...)
				return true, nil
			}
		}
		return false, model.Errorf(model.CodeNotFound, "no store item %q", name)
	})
}

// StoreItems lists the catalog.
func (e *Engine) StoreItems() []model.StoreItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.StoreItem{}, e.storeItems...)
}

// BuyItem purchases a catalog item into the bucket of the same name.
func (e *Engine) BuyItem(name string) (PurchaseResult, error) {
	var res PurchaseResult
	err := e.mutate("buy_item", func(now time.Time) (bool, error) {
		for _, it := range e.storeItems {
			if it.Name == name {
				var err error
				res, err = e.purchaseLocked(now, it.Name, it.Price, it.Minutes)
				return err == nil, err
			}
		}
		return false, model.Errorf(model.CodeNotFound, "no store item %q", name)
	})
	return res, err
}
